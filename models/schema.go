package models

import (
	"fmt"
	"sort"
	"sync"
)

func wrapSchemaError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrSchemaError}, args...)...)
}

// Schema is the live attribute registry: the set of Attribute declarations
// currently known to a Db. It is itself persisted as facts under reserved
// EIDs so schema evolves alongside the data it describes.
type Schema struct {
	mu    sync.RWMutex
	attrs map[string]Attribute
	// order preserves declaration order for deterministic AsFacts output.
	order []string
}

// NewSchema returns a Schema pre-declared with the reserved system
// attributes that describe the schema itself, so that committing the
// schema's own facts (AsFacts) passes schema validation.
func NewSchema() *Schema {
	s := &Schema{attrs: make(map[string]Attribute)}
	s.mustDeclareSystem(Attribute{Name: schemaAttrNameAttr, Type: KindString})
	s.mustDeclareSystem(Attribute{Name: schemaAttrTypeAttr, Type: KindByte})
	s.mustDeclareSystem(Attribute{Name: schemaAttrUniqueAttr, Type: KindBool})
	s.mustDeclareSystem(Attribute{Name: schemaAttrListAttr, Type: KindBool})
	return s
}

func (s *Schema) mustDeclareSystem(attr Attribute) {
	s.attrs[attr.Name] = attr
	s.order = append(s.order, attr.Name)
}

// Declare registers an Attribute. It fails if the name is already declared
// with a different type (attribute names are stable identifiers, not
// independently re-typeable per entity), or if the attribute itself is
// internally inconsistent (unique + list).
func (s *Schema) Declare(attr Attribute) error {
	if err := attr.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.attrs[attr.Name]; ok {
		if existing.Type != attr.Type {
			return wrapSchemaError("attribute %q redeclared with type %s, previously %s",
				attr.Name, attr.Type, existing.Type)
		}
		s.attrs[attr.Name] = attr
		return nil
	}
	s.attrs[attr.Name] = attr
	s.order = append(s.order, attr.Name)
	return nil
}

// Attr looks up a declared attribute by name.
func (s *Schema) Attr(name string) (Attribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attrs[name]
	return a, ok
}

// MustAttr looks up a declared attribute, returning ErrSchemaError if it is
// undeclared. Used by code paths that must validate against the schema
// before writing a fact.
func (s *Schema) MustAttr(name string) (Attribute, error) {
	a, ok := s.Attr(name)
	if !ok {
		return Attribute{}, wrapSchemaError("attribute %q is not declared", name)
	}
	return a, nil
}

// ValidateFact checks a single fact against the declared attribute: the
// attribute must exist, and the value kind must match the declared type
// (for list and non-list attributes alike).
func (s *Schema) ValidateFact(f Fact) error {
	attr, err := s.MustAttr(f.Attr)
	if err != nil {
		return err
	}
	if f.Value.Kind != attr.Type {
		return wrapSchemaError("attribute %q expects %s, got %s", f.Attr, attr.Type, f.Value.Kind)
	}
	return nil
}

// reserved EID block layout for schema facts: one synthetic entity per
// attribute, indexed by declaration order within [0, ReservedLocalBound).
const (
	schemaAttrNameAttr   = "Schema.name"
	schemaAttrTypeAttr   = "Schema.type"
	schemaAttrUniqueAttr = "Schema.unique"
	schemaAttrListAttr   = "Schema.list"
)

// AsFacts serializes every declared attribute as facts under reserved
// system EIDs, so the schema versions alongside the data it governs.
func (s *Schema) AsFacts(now int64) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := append([]string(nil), s.order...)
	sort.Strings(names)

	facts := make([]Fact, 0, len(names)*4)
	for i, name := range names {
		local := uint64(i) + 1
		if local >= ReservedLocalBound {
			return nil, wrapSchemaError("too many attributes for the reserved schema range (%d)", len(names))
		}
		eid := EID{IID: ReservedIID, Local: local}
		attr := s.attrs[name]
		facts = append(facts,
			Fact{EID: eid, Attr: schemaAttrNameAttr, Value: StringValue(attr.Name)},
			Fact{EID: eid, Attr: schemaAttrTypeAttr, Value: ByteValue(byte(attr.Type))},
			Fact{EID: eid, Attr: schemaAttrUniqueAttr, Value: BoolValue(attr.Unique)},
			Fact{EID: eid, Attr: schemaAttrListAttr, Value: BoolValue(attr.List)},
		)
	}
	return facts, nil
}

// SchemaFromFacts reconstructs a Schema from the reserved-EID facts
// AsFacts produces, grouping the four facts per attribute back into one
// Attribute declaration each.
func SchemaFromFacts(facts []Fact) (*Schema, error) {
	byEID := make(map[EID]map[string]Value)
	for _, f := range facts {
		if !f.EID.IsReserved() || f.Deleted {
			continue
		}
		m, ok := byEID[f.EID]
		if !ok {
			m = make(map[string]Value)
			byEID[f.EID] = m
		}
		m[f.Attr] = f.Value
	}

	s := NewSchema()
	eids := make([]EID, 0, len(byEID))
	for e := range byEID {
		eids = append(eids, e)
	}
	sort.Slice(eids, func(i, j int) bool { return eids[i].Less(eids[j]) })

	for _, e := range eids {
		m := byEID[e]
		name, ok := m[schemaAttrNameAttr]
		if !ok {
			continue
		}
		attr := Attribute{
			Name:   name.String_(),
			Type:   ValueKind(m[schemaAttrTypeAttr].Byte()),
			Unique: m[schemaAttrUniqueAttr].Bool(),
			List:   m[schemaAttrListAttr].Bool(),
		}
		if err := s.Declare(attr); err != nil {
			return nil, err
		}
	}
	return s, nil
}
