package models

import (
	"errors"
	"testing"
)

func TestAttributeValidateRejectsUniqueList(t *testing.T) {
	attr := Attribute{Name: "User.tags", Type: KindString, Unique: true, List: true}
	if err := attr.Validate(); !errors.Is(err, ErrSchemaError) {
		t.Fatalf("expected ErrSchemaError, got %v", err)
	}
}

func TestAttributeValidateAllowsUniqueScalar(t *testing.T) {
	attr := Attribute{Name: "User.login", Type: KindString, Unique: true}
	if err := attr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
