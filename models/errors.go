package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the KV storage and codec layers. Callers compare with
// errors.Is; wrapped occurrences keep the call-site context via %w.
var (
	// ErrAlreadyExists is returned by Store.Add when the key is already present.
	ErrAlreadyExists = errors.New("key already exists")

	// ErrNotFound is returned by Store.Overwrite when the key is absent.
	ErrNotFound = errors.New("not found")

	// ErrIO wraps a transient storage failure. Callers may retry.
	ErrIO = errors.New("io error")

	// ErrCorruptedNode is returned when a node's parent layout or encoded
	// bytes cannot be classified as Root, Leaf, or Merge.
	ErrCorruptedNode = errors.New("corrupted node")

	// ErrUnknownTag is returned by the codec when a type tag byte is not
	// one of the recognized scalar tags.
	ErrUnknownTag = errors.New("unknown type tag")

	// ErrUnexpectedEOF is returned by the codec when a payload is shorter
	// than its declared length.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrUnsupportedValue is returned by the codec encoder when asked to
	// serialize a Go value with no corresponding scalar tag.
	ErrUnsupportedValue = errors.New("unsupported value type")

	// ErrSchemaError covers undeclared attributes, type mismatches, and
	// cardinality mismatches detected by the schema registry.
	ErrSchemaError = errors.New("schema error")

	// ErrEidSpaceExhausted is returned by the EID allocator once its
	// monotonic counter wraps.
	ErrEidSpaceExhausted = errors.New("eid space exhausted")
)

// UniquenessViolation reports a conflicting assertion against a unique
// attribute: two live facts would assign the same (attr, value) to two
// different entities.
type UniquenessViolation struct {
	Attr     string
	Value    Value
	Existing EID
	New      EID
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("uniqueness violation on %s=%v: entity %s already holds it, cannot assign to %s",
		e.Attr, e.Value, e.Existing, e.New)
}

// Is matches the package's unexported uniqueness-violation sentinel.
// Callers outside the package test for the error class with
// IsUniquenessViolation.
func (e *UniquenessViolation) Is(target error) bool {
	return target == errUniquenessViolationSentinel
}

var errUniquenessViolationSentinel = errors.New("uniqueness violation")

// IsUniquenessViolation reports whether err is (or wraps) a UniquenessViolation.
func IsUniquenessViolation(err error) bool {
	var v *UniquenessViolation
	return errors.As(err, &v)
}
