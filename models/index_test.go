package models

import "testing"

func TestIndexAssertAndValuesOf(t *testing.T) {
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	idx, err := idx.AddFacts([]Fact{{EID: e, Attr: "User.login", Value: StringValue("ada")}}, nil)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	vals := idx.ValuesOf(e, "User.login")
	if len(vals) != 1 || vals[0].String_() != "ada" {
		t.Fatalf("expected [ada], got %v", vals)
	}
}

func TestIndexCardinalityOneReplaces(t *testing.T) {
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	idx, _ = idx.AddFacts([]Fact{{EID: e, Attr: "User.login", Value: StringValue("ada")}}, nil)
	idx, err := idx.AddFacts([]Fact{{EID: e, Attr: "User.login", Value: StringValue("grace")}}, nil)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	vals := idx.ValuesOf(e, "User.login")
	if len(vals) != 1 || vals[0].String_() != "grace" {
		t.Fatalf("expected cardinality-one replace to leave [grace], got %v", vals)
	}
}

func TestIndexListAccumulates(t *testing.T) {
	schema := NewSchema()
	if err := schema.Declare(Attribute{Name: "User.tags", Type: KindString, List: true}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	idx, err := idx.AddFacts([]Fact{
		{EID: e, Attr: "User.tags", Value: StringValue("x")},
		{EID: e, Attr: "User.tags", Value: StringValue("y")},
	}, schema)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	vals := idx.ValuesOf(e, "User.tags")
	if len(vals) != 2 {
		t.Fatalf("expected 2 list values, got %v", vals)
	}
}

func TestIndexRetractionRemovesOneOccurrence(t *testing.T) {
	schema := NewSchema()
	if err := schema.Declare(Attribute{Name: "User.tags", Type: KindString, List: true}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	idx, _ = idx.AddFacts([]Fact{
		{EID: e, Attr: "User.tags", Value: StringValue("x")},
		{EID: e, Attr: "User.tags", Value: StringValue("x")},
	}, schema)
	idx, err := idx.AddFacts([]Fact{
		{EID: e, Attr: "User.tags", Value: StringValue("x"), Deleted: true},
	}, schema)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	vals := idx.ValuesOf(e, "User.tags")
	if len(vals) != 1 {
		t.Fatalf("expected one surviving occurrence of x, got %v", vals)
	}
}

func TestIndexUniquenessViolation(t *testing.T) {
	schema := NewSchema()
	if err := schema.Declare(Attribute{Name: "User.login", Type: KindString, Unique: true}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	idx := NewIndex()
	e1 := EID{IID: 1, Local: 1}
	e2 := EID{IID: 1, Local: 2}
	idx, err := idx.AddFacts([]Fact{{EID: e1, Attr: "User.login", Value: StringValue("ada")}}, schema)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	_, err = idx.AddFacts([]Fact{{EID: e2, Attr: "User.login", Value: StringValue("ada")}}, schema)
	if !IsUniquenessViolation(err) {
		t.Fatalf("expected UniquenessViolation, got %v", err)
	}
}

func TestIndexAssertionsBeforeRetractionsInSameBatch(t *testing.T) {
	// Within one batch, a retraction of a value asserted in the same
	// transaction must not outrun the assertion: even when the retraction
	// comes first in the input, it is applied after the assertion.
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	idx, err := idx.AddFacts([]Fact{
		{EID: e, Attr: "User.login", Value: StringValue("ada"), Deleted: true},
		{EID: e, Attr: "User.login", Value: StringValue("ada")},
	}, nil)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	vals := idx.ValuesOf(e, "User.login")
	if len(vals) != 0 {
		t.Fatalf("expected the retraction to apply after the assertion regardless of input order, got %v", vals)
	}
}

func TestIndexReferencesTo(t *testing.T) {
	schema := NewSchema()
	if err := schema.Declare(Attribute{Name: "Post.author", Type: KindEID}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	idx := NewIndex()
	author := EID{IID: 1, Local: 1}
	post := EID{IID: 1, Local: 2}
	idx, err := idx.AddFacts([]Fact{{EID: post, Attr: "Post.author", Value: EIDValue(author)}}, schema)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	refs := idx.ReferencesTo(author)
	if len(refs) != 1 || refs[0].EID != post || refs[0].Attr != "Post.author" {
		t.Fatalf("expected one reference from post to author, got %v", refs)
	}
}

func TestIndexEntityCount(t *testing.T) {
	idx := NewIndex()
	idx, err := idx.AddFacts([]Fact{
		{EID: EID{IID: 1, Local: 1}, Attr: "User.login", Value: StringValue("ada")},
		{EID: EID{IID: 1, Local: 2}, Attr: "User.login", Value: StringValue("grace")},
	}, nil)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	if idx.EntityCount() != 2 {
		t.Fatalf("expected entity count 2, got %d", idx.EntityCount())
	}
}

func TestIndexAddFactsDoesNotMutateReceiver(t *testing.T) {
	idx := NewIndex()
	e := EID{IID: 1, Local: 1}
	next, err := idx.AddFacts([]Fact{{EID: e, Attr: "User.login", Value: StringValue("ada")}}, nil)
	if err != nil {
		t.Fatalf("AddFacts: %v", err)
	}
	if idx.Exists(e) {
		t.Fatal("expected original Index to remain empty after AddFacts")
	}
	if !next.Exists(e) {
		t.Fatal("expected new Index to contain the asserted entity")
	}
}
