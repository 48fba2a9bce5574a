// Destructuring and reconstruction translate between application value
// objects and the fact multiset that represents them. Field→attribute
// mapping is driven by Go's reflect package over plain struct tags
// rather than by runtime class introspection, producing "<Type>.<prop>"
// attribute names.
package models

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
	"unicode"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	zonedType = reflect.TypeOf(ZonedTimestamp{})
	eidType   = reflect.TypeOf(EID{})
	byteSlice = reflect.TypeOf([]byte(nil))
)

// DefaultRegistry memoizes one default (zero-valued) entity per Go type,
// as an explicit, injected instance rather than a process-wide global
// cache. A nil *DefaultRegistry is valid and behaves as if every type's
// default were freshly allocated each time — callers that want the
// optional-field asymmetry preserved across multiple destruct calls must
// share one registry.
type DefaultRegistry struct {
	mu        sync.Mutex
	instances map[reflect.Type]EID
}

// NewDefaultRegistry returns an empty registry.
func NewDefaultRegistry() *DefaultRegistry {
	return &DefaultRegistry{instances: make(map[reflect.Type]EID)}
}

func (d *DefaultRegistry) lookup(t reflect.Type) (EID, bool) {
	if d == nil {
		return NilEID, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.instances[t]
	return e, ok
}

func (d *DefaultRegistry) store(t reflect.Type, eid EID) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances[t] = eid
}

// fieldKind classifies how a destructured struct field maps onto facts.
type fieldKind int

const (
	fieldScalar fieldKind = iota
	fieldScalarOptional
	fieldNested
	fieldNestedOptional
	fieldListScalar
	fieldListNested
)

type fieldPlan struct {
	index    int
	propName string
	attrName string
	kind     fieldKind
	goType   reflect.Type // element type for lists, pointed-to type for optionals
	wireKind ValueKind
}

func propName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("fact"); ok && tag != "" && tag != "-" {
		return tag
	}
	r := []rune(f.Name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func wireKindOf(t reflect.Type) (ValueKind, bool) {
	switch {
	case t == timeType:
		return KindInstant, true
	case t == zonedType:
		return KindZoned, true
	case t == eidType:
		return KindEID, true
	case t == byteSlice:
		return KindBytes, true
	case t.Kind() == reflect.Bool:
		return KindBool, true
	case t.Kind() == reflect.Uint8:
		return KindByte, true
	case t.Kind() == reflect.Int32:
		return KindInt32, true
	case t.Kind() == reflect.Int64:
		return KindInt64, true
	case t.Kind() == reflect.String:
		return KindString, true
	default:
		return 0, false
	}
}

// planFields inspects a struct type once per destruct/reconstruct call
// (no caching: targetType's shape cannot change mid-process, but keeping
// this simple keeps the mapping layer free of hidden global state).
func planFields(t reflect.Type) ([]fieldPlan, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("factdb: mapping target must be a struct, got %s", t.Kind())
	}
	typeName := t.Name()
	var plans []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "ID" || !f.IsExported() {
			continue
		}
		name := propName(f)
		attr := typeName + "." + name

		ft := f.Type
		if wk, ok := wireKindOf(ft); ok {
			plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldScalar, wireKind: wk})
			continue
		}
		if ft.Kind() == reflect.Ptr {
			elem := ft.Elem()
			if wk, ok := wireKindOf(elem); ok {
				plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldScalarOptional, goType: elem, wireKind: wk})
				continue
			}
			if elem.Kind() == reflect.Struct {
				plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldNestedOptional, goType: elem})
				continue
			}
			return nil, fmt.Errorf("factdb: field %s.%s has unsupported pointer type %s", typeName, f.Name, ft)
		}
		if ft.Kind() == reflect.Struct {
			plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldNested, goType: ft})
			continue
		}
		if ft.Kind() == reflect.Slice {
			elem := ft.Elem()
			if wk, ok := wireKindOf(elem); ok {
				plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldListScalar, goType: elem, wireKind: wk})
				continue
			}
			if elem.Kind() == reflect.Struct {
				plans = append(plans, fieldPlan{index: i, propName: name, attrName: attr, kind: fieldListNested, goType: elem})
				continue
			}
			return nil, fmt.Errorf("factdb: field %s.%s has unsupported slice element type %s", typeName, f.Name, elem)
		}
		return nil, fmt.Errorf("factdb: field %s.%s has unsupported type %s", typeName, f.Name, ft)
	}
	return plans, nil
}

func goToValue(rv reflect.Value, wk ValueKind) (Value, error) {
	switch wk {
	case KindBool:
		return BoolValue(rv.Bool()), nil
	case KindByte:
		return ByteValue(byte(rv.Uint())), nil
	case KindInt32:
		return Int32Value(int32(rv.Int())), nil
	case KindInt64:
		return Int64Value(rv.Int()), nil
	case KindString:
		return StringValue(rv.String()), nil
	case KindBytes:
		b, _ := rv.Interface().([]byte)
		return BytesValue(b), nil
	case KindInstant:
		t, _ := rv.Interface().(time.Time)
		return InstantValue(t), nil
	case KindZoned:
		z, _ := rv.Interface().(ZonedTimestamp)
		return ZonedValue(z), nil
	case KindEID:
		e, _ := rv.Interface().(EID)
		return EIDValue(e), nil
	default:
		return Value{}, fmt.Errorf("%w: cannot encode go value of kind %s", ErrUnsupportedValue, rv.Kind())
	}
}

func valueToGo(v Value, t reflect.Type) reflect.Value {
	switch {
	case t == timeType:
		return reflect.ValueOf(v.Instant())
	case t == zonedType:
		return reflect.ValueOf(v.Zoned())
	case t == eidType:
		return reflect.ValueOf(v.EID())
	case t == byteSlice:
		return reflect.ValueOf(v.Bytes())
	case t.Kind() == reflect.Bool:
		return reflect.ValueOf(v.Bool())
	case t.Kind() == reflect.Uint8:
		return reflect.ValueOf(v.Byte())
	case t.Kind() == reflect.Int32:
		return reflect.ValueOf(v.Int32())
	case t.Kind() == reflect.Int64:
		return reflect.ValueOf(v.Int64())
	case t.Kind() == reflect.String:
		return reflect.ValueOf(v.String_())
	default:
		return reflect.Zero(t)
	}
}

// Destruct flattens v (a pointer to, or value of, a registered struct
// type) into facts, allocating a fresh EID unless v's ID field already
// holds one. Schema attributes encountered for the first
// time are auto-declared with the List-ness implied by the Go field type;
// Unique must be declared by the caller beforehand — it cannot be inferred
// from Go types alone.
func Destruct(schema *Schema, alloc *EIDAllocator, defaults *DefaultRegistry, v interface{}, now int64) (EID, []Fact, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return NilEID, nil, fmt.Errorf("factdb: cannot destruct a nil pointer")
		}
		rv = rv.Elem()
	}
	return destructValue(schema, alloc, defaults, rv, now)
}

func destructValue(schema *Schema, alloc *EIDAllocator, defaults *DefaultRegistry, rv reflect.Value, now int64) (EID, []Fact, error) {
	t := rv.Type()
	eid := existingID(rv)
	if eid.IsNil() {
		var err error
		eid, err = alloc.Next()
		if err != nil {
			return NilEID, nil, err
		}
	}

	plans, err := planFields(t)
	if err != nil {
		return NilEID, nil, err
	}

	var facts []Fact
	for _, p := range plans {
		fv := rv.Field(p.index)
		if err := declareIfMissing(schema, p); err != nil {
			return NilEID, nil, err
		}

		switch p.kind {
		case fieldScalar:
			val, err := goToValue(fv, p.wireKind)
			if err != nil {
				return NilEID, nil, err
			}
			facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: val})

		case fieldScalarOptional:
			if fv.IsNil() {
				continue
			}
			val, err := goToValue(fv.Elem(), p.wireKind)
			if err != nil {
				return NilEID, nil, err
			}
			facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: val})

		case fieldNested:
			childEID, childFacts, err := destructValue(schema, alloc, defaults, fv, now)
			if err != nil {
				return NilEID, nil, err
			}
			facts = append(facts, childFacts...)
			facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: EIDValue(childEID)})

		case fieldNestedOptional:
			var childEID EID
			var childFacts []Fact
			var err error
			if !fv.IsNil() {
				childEID, childFacts, err = destructValue(schema, alloc, defaults, fv.Elem(), now)
				if err != nil {
					return NilEID, nil, err
				}
			} else {
				// A nil optional still gets destructured, against a shared
				// zero-valued default instance of its type, so reconstruction
				// under a Query that opts the path in has something to resolve.
				childEID, childFacts, err = defaultInstance(schema, alloc, defaults, p.goType, now)
				if err != nil {
					return NilEID, nil, err
				}
			}
			facts = append(facts, childFacts...)
			facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: EIDValue(childEID)})

		case fieldListScalar:
			for i := 0; i < fv.Len(); i++ {
				val, err := goToValue(fv.Index(i), p.wireKind)
				if err != nil {
					return NilEID, nil, err
				}
				facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: val})
			}

		case fieldListNested:
			for i := 0; i < fv.Len(); i++ {
				childEID, childFacts, err := destructValue(schema, alloc, defaults, fv.Index(i), now)
				if err != nil {
					return NilEID, nil, err
				}
				facts = append(facts, childFacts...)
				facts = append(facts, Fact{EID: eid, Attr: p.attrName, Value: EIDValue(childEID)})
			}
		}
	}
	return eid, facts, nil
}

// defaultInstance returns the shared default entity for t, destructuring a
// zero value of t (and registering it) on first use. The facts describing
// it are returned only on that first use — later calls return the cached
// EID with no facts, since the entity was already committed.
func defaultInstance(schema *Schema, alloc *EIDAllocator, defaults *DefaultRegistry, t reflect.Type, now int64) (EID, []Fact, error) {
	if eid, ok := defaults.lookup(t); ok {
		return eid, nil, nil
	}
	zero := reflect.New(t).Elem()
	eid, facts, err := destructValue(schema, alloc, defaults, zero, now)
	if err != nil {
		return NilEID, nil, err
	}
	defaults.store(t, eid)
	return eid, facts, nil
}

func existingID(rv reflect.Value) EID {
	f := rv.FieldByName("ID")
	if !f.IsValid() || f.Type() != eidType {
		return NilEID
	}
	e, _ := f.Interface().(EID)
	return e
}

func declareIfMissing(schema *Schema, p fieldPlan) error {
	if schema == nil {
		return nil
	}
	wk := p.wireKind
	isList := p.kind == fieldListScalar || p.kind == fieldListNested
	if p.kind == fieldNested || p.kind == fieldNestedOptional || p.kind == fieldListNested {
		wk = KindEID
	}
	if existing, ok := schema.Attr(p.attrName); ok {
		if existing.Type != wk {
			return wrapSchemaError("attribute %q expects %s, inferred %s from field", p.attrName, existing.Type, wk)
		}
		return nil
	}
	return schema.Declare(Attribute{Name: p.attrName, Type: wk, List: isList})
}

// Reconstruct builds a value of targetType from the live facts of eid,
// following Query to decide which references to resolve. The
// returned value is addressable (a pointer to targetType is also accepted
// as a convenience but the result is always targetType, not a pointer).
func Reconstruct(idx *Index, eid EID, targetType reflect.Type, query *Query) (interface{}, error) {
	for targetType.Kind() == reflect.Ptr {
		targetType = targetType.Elem()
	}
	rv, err := reconstructValue(idx, eid, targetType, query)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func reconstructValue(idx *Index, eid EID, t reflect.Type, query *Query) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if idField := out.FieldByName("ID"); idField.IsValid() && idField.Type() == eidType {
		idField.Set(reflect.ValueOf(eid))
	}

	plans, err := planFields(t)
	if err != nil {
		return reflect.Value{}, err
	}

	for _, p := range plans {
		fv := out.Field(p.index)
		vals := idx.ValuesOf(eid, p.attrName)

		switch p.kind {
		case fieldScalar:
			if len(vals) == 0 {
				fv.Set(valueToGo(ZeroValue(p.wireKind), p.goTypeOrSelf(fv.Type())))
				continue
			}
			fv.Set(valueToGo(vals[0], fv.Type()))

		case fieldScalarOptional:
			if len(vals) == 0 {
				continue // Absent stays nil
			}
			ptr := reflect.New(p.goType)
			ptr.Elem().Set(valueToGo(vals[0], p.goType))
			fv.Set(ptr)

		case fieldNested:
			if len(vals) == 0 {
				continue // leave zero struct; no known child
			}
			childEID := vals[0].EID()
			sub, opted := query.sub(p.propName)
			if !opted {
				stub := reflect.New(p.goType).Elem()
				if idField := stub.FieldByName("ID"); idField.IsValid() && idField.Type() == eidType {
					idField.Set(reflect.ValueOf(childEID))
				}
				fv.Set(stub)
				continue
			}
			child, err := reconstructValue(idx, childEID, p.goType, sub)
			if err != nil {
				return reflect.Value{}, err
			}
			fv.Set(child)

		case fieldNestedOptional:
			sub, opted := query.sub(p.propName)
			if !opted {
				continue // absent regardless of whether a fact was written
			}
			if len(vals) == 0 {
				continue
			}
			childEID := vals[0].EID()
			child, err := reconstructValue(idx, childEID, p.goType, sub)
			if err != nil {
				return reflect.Value{}, err
			}
			ptr := reflect.New(p.goType)
			ptr.Elem().Set(child)
			fv.Set(ptr)

		case fieldListScalar:
			slice := reflect.MakeSlice(fv.Type(), 0, len(vals))
			for _, v := range vals {
				slice = reflect.Append(slice, valueToGo(v, p.goType))
			}
			fv.Set(slice)

		case fieldListNested:
			sub, opted := query.sub(p.propName)
			slice := reflect.MakeSlice(fv.Type(), 0, len(vals))
			for _, v := range vals {
				childEID := v.EID()
				if !opted {
					stub := reflect.New(p.goType).Elem()
					if idField := stub.FieldByName("ID"); idField.IsValid() && idField.Type() == eidType {
						idField.Set(reflect.ValueOf(childEID))
					}
					slice = reflect.Append(slice, stub)
					continue
				}
				child, err := reconstructValue(idx, childEID, p.goType, sub)
				if err != nil {
					return reflect.Value{}, err
				}
				slice = reflect.Append(slice, child)
			}
			fv.Set(slice)
		}
	}
	return out, nil
}

func (p fieldPlan) goTypeOrSelf(t reflect.Type) reflect.Type {
	if p.goType != nil {
		return p.goType
	}
	return t
}

// sortedPropNames returns the property names of a plan set in sorted
// order, for deterministic iteration.
func sortedPropNames(plans []fieldPlan) []string {
	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = p.propName
	}
	sort.Strings(names)
	return names
}
