package models

// Attribute gives a wire-stable name identity, type, and cardinality rules.
// Names follow the "<Type>.<prop>" convention so attributes stay readable
// on disk and stable across schema evolution.
type Attribute struct {
	Name   string
	Type   ValueKind
	Unique bool
	List   bool
}

// Validate checks the internal consistency rules a single attribute
// declaration must satisfy: a unique attribute must be scalar, not list.
func (a Attribute) Validate() error {
	if a.Unique && a.List {
		return wrapSchemaError("attribute %q cannot be both unique and list", a.Name)
	}
	return nil
}
