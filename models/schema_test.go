package models

import (
	"errors"
	"testing"
)

func TestNewSchemaPreDeclaresSystemAttributes(t *testing.T) {
	s := NewSchema()
	for _, name := range []string{schemaAttrNameAttr, schemaAttrTypeAttr, schemaAttrUniqueAttr, schemaAttrListAttr} {
		if _, ok := s.Attr(name); !ok {
			t.Fatalf("expected %q to be pre-declared", name)
		}
	}
}

func TestSchemaDeclareRejectsRetypedAttribute(t *testing.T) {
	s := NewSchema()
	if err := s.Declare(Attribute{Name: "User.login", Type: KindString}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Declare(Attribute{Name: "User.login", Type: KindInt64})
	if !errors.Is(err, ErrSchemaError) {
		t.Fatalf("expected ErrSchemaError on retype, got %v", err)
	}
}

func TestSchemaValidateFactChecksDeclaredType(t *testing.T) {
	s := NewSchema()
	if err := s.Declare(Attribute{Name: "User.age", Type: KindInt32}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	good := Fact{EID: EID{IID: 1, Local: 1}, Attr: "User.age", Value: Int32Value(30)}
	if err := s.ValidateFact(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := Fact{EID: EID{IID: 1, Local: 1}, Attr: "User.age", Value: StringValue("thirty")}
	if err := s.ValidateFact(bad); !errors.Is(err, ErrSchemaError) {
		t.Fatalf("expected ErrSchemaError, got %v", err)
	}
}

func TestSchemaAsFactsRoundTrip(t *testing.T) {
	s := NewSchema()
	if err := s.Declare(Attribute{Name: "User.login", Type: KindString, Unique: true}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if err := s.Declare(Attribute{Name: "User.tags", Type: KindString, List: true}); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	facts, err := s.AsFacts(1700000000000)
	if err != nil {
		t.Fatalf("AsFacts: %v", err)
	}

	restored, err := SchemaFromFacts(facts)
	if err != nil {
		t.Fatalf("SchemaFromFacts: %v", err)
	}

	login, ok := restored.Attr("User.login")
	if !ok || !login.Unique || login.Type != KindString {
		t.Fatalf("expected User.login unique string attribute restored, got %+v ok=%v", login, ok)
	}
	tags, ok := restored.Attr("User.tags")
	if !ok || !tags.List || tags.Type != KindString {
		t.Fatalf("expected User.tags list string attribute restored, got %+v ok=%v", tags, ok)
	}
}

func TestSchemaAsFactsUsesReservedEIDRange(t *testing.T) {
	s := NewSchema()
	if err := s.Declare(Attribute{Name: "Order.total", Type: KindInt64}); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	facts, err := s.AsFacts(0)
	if err != nil {
		t.Fatalf("AsFacts: %v", err)
	}
	for _, f := range facts {
		if !f.EID.IsReserved() {
			t.Fatalf("expected schema fact eid %v to be reserved", f.EID)
		}
	}
}
