package models

import "sort"

// Index is the materialized, queryable projection of a fact multiset. It
// has value semantics: AddFacts returns a new Index and never mutates the
// receiver, so concurrent readers always observe a consistent snapshot.
type Index struct {
	// eav[eid][attr] holds the ordered, live values for that (eid, attr).
	eav map[EID]map[string][]Value
	// ave[attr][value.Key()] holds the set of eids currently asserting
	// that (attr, value).
	ave map[string]map[string]map[EID]bool
	// vae[value.Key()][attr] holds the set of eids whose attr references
	// that value, restricted to KindEID values (reverse walking).
	vae map[string]map[string]map[EID]bool
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		eav: make(map[EID]map[string][]Value),
		ave: make(map[string]map[string]map[EID]bool),
		vae: make(map[string]map[string]map[EID]bool),
	}
}

func (ix *Index) clone() *Index {
	out := NewIndex()
	for eid, attrs := range ix.eav {
		cp := make(map[string][]Value, len(attrs))
		for attr, vals := range attrs {
			cpVals := make([]Value, len(vals))
			copy(cpVals, vals)
			cp[attr] = cpVals
		}
		out.eav[eid] = cp
	}
	for attr, byVal := range ix.ave {
		cp := make(map[string]map[EID]bool, len(byVal))
		for k, eids := range byVal {
			cpEids := make(map[EID]bool, len(eids))
			for e := range eids {
				cpEids[e] = true
			}
			cp[k] = cpEids
		}
		out.ave[attr] = cp
	}
	for key, byAttr := range ix.vae {
		cp := make(map[string]map[EID]bool, len(byAttr))
		for attr, eids := range byAttr {
			cpEids := make(map[EID]bool, len(eids))
			for e := range eids {
				cpEids[e] = true
			}
			cp[attr] = cpEids
		}
		out.vae[key] = cp
	}
	return out
}

// AddFacts folds fs into a copy of ix and returns the result. Facts are
// applied in input order; callers that care about assert/retract
// ordering for the same (eid, attr, value) within one batch should sort
// retractions after assertions themselves, or rely on the stable
// ordering this function imposes: assertions before retractions when
// both are present for the same key in the same batch.
func (ix *Index) AddFacts(fs []Fact, schema *Schema) (*Index, error) {
	ordered := make([]Fact, len(fs))
	copy(ordered, fs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Deleted != ordered[j].Deleted {
			return !ordered[i].Deleted // assertions (false) before retractions (true)
		}
		return false
	})

	out := ix.clone()
	for _, f := range ordered {
		if schema != nil {
			if err := schema.ValidateFact(f); err != nil {
				return nil, err
			}
		}
		if f.Deleted {
			out.retract(f)
			continue
		}
		if err := out.assert(f, schema); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ix *Index) assert(f Fact, schema *Schema) error {
	var attrDecl Attribute
	if schema != nil {
		attrDecl, _ = schema.Attr(f.Attr)
	}

	if attrDecl.Unique {
		if holders := ix.ave[f.Attr][f.Value.Key()]; holders != nil {
			for existing := range holders {
				if existing != f.EID {
					return &UniquenessViolation{
						Attr:     f.Attr,
						Value:    f.Value,
						Existing: existing,
						New:      f.EID,
					}
				}
			}
		}
	}

	attrs, ok := ix.eav[f.EID]
	if !ok {
		attrs = make(map[string][]Value)
		ix.eav[f.EID] = attrs
	}

	if attrDecl.List {
		attrs[f.Attr] = append(attrs[f.Attr], f.Value)
	} else {
		// Cardinality-one: a new assertion replaces any prior live value,
		// and its AVE/VAE entries are retired first.
		for _, old := range attrs[f.Attr] {
			ix.unindexValue(f.EID, f.Attr, old)
		}
		attrs[f.Attr] = []Value{f.Value}
	}

	ix.indexValue(f.EID, f.Attr, f.Value)
	return nil
}

func (ix *Index) retract(f Fact) {
	attrs, ok := ix.eav[f.EID]
	if !ok {
		return
	}
	vals := attrs[f.Attr]
	kept := vals[:0]
	removedOne := false
	for _, v := range vals {
		if !removedOne && v.Equal(f.Value) {
			removedOne = true
			ix.unindexValue(f.EID, f.Attr, v)
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		delete(attrs, f.Attr)
	} else {
		attrs[f.Attr] = kept
	}
	if len(attrs) == 0 {
		delete(ix.eav, f.EID)
	}
}

func (ix *Index) indexValue(eid EID, attr string, v Value) {
	byVal, ok := ix.ave[attr]
	if !ok {
		byVal = make(map[string]map[EID]bool)
		ix.ave[attr] = byVal
	}
	set, ok := byVal[v.Key()]
	if !ok {
		set = make(map[EID]bool)
		byVal[v.Key()] = set
	}
	set[eid] = true

	if v.Kind == KindEID {
		byAttr, ok := ix.vae[v.Key()]
		if !ok {
			byAttr = make(map[string]map[EID]bool)
			ix.vae[v.Key()] = byAttr
		}
		set, ok := byAttr[attr]
		if !ok {
			set = make(map[EID]bool)
			byAttr[attr] = set
		}
		set[eid] = true
	}
}

func (ix *Index) unindexValue(eid EID, attr string, v Value) {
	if byVal, ok := ix.ave[attr]; ok {
		if set, ok := byVal[v.Key()]; ok {
			delete(set, eid)
			if len(set) == 0 {
				delete(byVal, v.Key())
			}
		}
		if len(byVal) == 0 {
			delete(ix.ave, attr)
		}
	}
	if v.Kind == KindEID {
		if byAttr, ok := ix.vae[v.Key()]; ok {
			if set, ok := byAttr[attr]; ok {
				delete(set, eid)
				if len(set) == 0 {
					delete(byAttr, attr)
				}
			}
			if len(byAttr) == 0 {
				delete(ix.vae, v.Key())
			}
		}
	}
}

// EntitiesByAttrValue returns the eids currently asserting (attr, value).
func (ix *Index) EntitiesByAttrValue(attr string, v Value) []EID {
	set := ix.ave[attr][v.Key()]
	out := make([]EID, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ValuesOf returns the ordered, live values held by (eid, attr).
func (ix *Index) ValuesOf(eid EID, attr string) []Value {
	vals := ix.eav[eid][attr]
	out := make([]Value, len(vals))
	copy(out, vals)
	return out
}

// Exists reports whether eid has any live facts.
func (ix *Index) Exists(eid EID) bool {
	_, ok := ix.eav[eid]
	return ok
}

// Attrs returns the set of attribute names holding live facts for eid.
func (ix *Index) Attrs(eid EID) []string {
	attrs := ix.eav[eid]
	out := make([]string, 0, len(attrs))
	for a := range attrs {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ReferencesTo returns the (attr, eid) pairs of every live fact whose
// KindEID value points at target, walking the VAE index in reverse.
type Reference struct {
	Attr string
	EID  EID
}

func (ix *Index) ReferencesTo(target EID) []Reference {
	byAttr := ix.vae[EIDValue(target).Key()]
	out := make([]Reference, 0, len(byAttr))
	for attr, eids := range byAttr {
		for e := range eids {
			out = append(out, Reference{Attr: attr, EID: e})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attr != out[j].Attr {
			return out[i].Attr < out[j].Attr
		}
		return out[i].EID.Less(out[j].EID)
	})
	return out
}

// EntityCount returns the number of distinct live entities, for
// diagnostics (db.Stat).
func (ix *Index) EntityCount() int {
	return len(ix.eav)
}

// EAVKeys returns every entity currently holding live facts, so an
// EIDAllocator can be fast-forwarded past everything replay observed.
func (ix *Index) EAVKeys() []EID {
	out := make([]EID, 0, len(ix.eav))
	for e := range ix.eav {
		out = append(out, e)
	}
	return out
}
