// Package storage implements the namespaced key/value abstraction that
// the node DAG is persisted over: put-once semantics for immutable
// nodes, explicit overwrite for the mutable head ref.
package storage

import (
	"strings"

	"factdb/models"
)

// Namespace is a finite ordered path of segments rooted at RootNamespace.
// Two namespaces are equal iff their segment sequences are equal.
type Namespace []string

// RootNamespace is the empty path.
var RootNamespace = Namespace{}

// Child returns a new Namespace with segment appended.
func (n Namespace) Child(segment string) Namespace {
	out := make(Namespace, len(n)+1)
	copy(out, n)
	out[len(n)] = segment
	return out
}

// String renders the namespace as a "/"-joined path, for logging and for
// the filesystem and SQLite realizations' key encoding.
func (n Namespace) String() string {
	return strings.Join(n, "/")
}

// Key addresses a single value: a namespace plus a name within it.
type Key struct {
	NS   Namespace
	Name string
}

// String renders the key as a "/"-joined path, "ns/seg/.../name"; MemStore
// keys its map by it.
func (k Key) String() string {
	if len(k.NS) == 0 {
		return k.Name
	}
	return k.NS.String() + "/" + k.Name
}

// Store is the contract every storage backend implements. Add is
// the write path for immutable nodes (put-once); Overwrite is reserved for
// mutable pointers such as refs/head.
type Store interface {
	// Add creates a new entry. It fails with models.ErrAlreadyExists if the
	// key is already present.
	Add(k Key, v []byte) error

	// Overwrite replaces an existing entry. It fails with
	// models.ErrNotFound if the key is absent.
	Overwrite(k Key, v []byte) error

	// Load returns the bytes stored at k, or ok=false if absent.
	Load(k Key) (v []byte, ok bool, err error)

	// HasKey reports whether k is present.
	HasKey(k Key) (bool, error)

	// Keys lists the names directly present in ns (non-recursive).
	Keys(ns Namespace) ([]string, error)

	// SubNamespaces lists the child namespace segments directly under ns
	// (non-recursive).
	SubNamespaces(ns Namespace) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// well-known namespaces making up the storage layout.
var (
	NodesNamespace  = RootNamespace.Child("nodes")
	RefsNamespace   = RootNamespace.Child("refs")
	SchemaNamespace = RootNamespace.Child("schema")
)

// HeadKey is the mutable ref holding the current head node's hash.
var HeadKey = Key{NS: RefsNamespace, Name: "head"}

// NodeKey addresses a node's immutable bytes by its content hash.
func NodeKey(h models.Hash) Key {
	return Key{NS: NodesNamespace, Name: h.String()}
}

// SchemaAttrKey addresses the denormalized YAML mirror of one declared
// attribute.
func SchemaAttrKey(attrName string) Key {
	return Key{NS: SchemaNamespace, Name: attrName}
}
