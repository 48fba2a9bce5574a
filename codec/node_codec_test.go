package codec

import (
	"errors"
	"testing"

	"factdb/models"
)

func sampleFacts() []models.Fact {
	return []models.Fact{
		{EID: models.EID{IID: 1, Local: 1}, Attr: "User.login", Value: models.StringValue("ada")},
		{EID: models.EID{IID: 1, Local: 2}, Attr: "User.login", Value: models.StringValue("grace")},
	}
}

func TestEncodeDecodeNodeRoundTrip(t *testing.T) {
	n := models.NewRoot(models.Source{IID: 1, InstanceBits: 0}, 1700000000000, sampleFacts())

	encoded, err := EncodeNode(n)
	if err != nil {
		t.Fatalf("EncodeNode: %v", err)
	}
	decoded, err := DecodeNode(encoded)
	if err != nil {
		t.Fatalf("DecodeNode: %v", err)
	}

	if decoded.Kind() != models.KindRoot {
		t.Fatalf("expected KindRoot, got %v", decoded.Kind())
	}
	if decoded.Timestamp != n.Timestamp {
		t.Fatalf("timestamp mismatch: want %d got %d", n.Timestamp, decoded.Timestamp)
	}
	if len(decoded.Facts) != len(n.Facts) {
		t.Fatalf("fact count mismatch: want %d got %d", len(n.Facts), len(decoded.Facts))
	}
}

func TestEncodeNodeIsOrderIndependent(t *testing.T) {
	facts := sampleFacts()
	reversed := []models.Fact{facts[1], facts[0]}

	n1 := models.NewRoot(models.Source{IID: 1}, 5, facts)
	n2 := models.NewRoot(models.Source{IID: 1}, 5, reversed)

	h1, err := HashNode(n1)
	if err != nil {
		t.Fatalf("HashNode n1: %v", err)
	}
	h2, err := HashNode(n2)
	if err != nil {
		t.Fatalf("HashNode n2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hashes for reordered facts, got %s vs %s", h1, h2)
	}
}

func TestHashNodeIsDeterministic(t *testing.T) {
	n := models.NewRoot(models.Source{IID: 3}, 42, sampleFacts())
	h1, err := HashNode(n)
	if err != nil {
		t.Fatalf("HashNode: %v", err)
	}
	h2, err := HashNode(n)
	if err != nil {
		t.Fatalf("HashNode: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %s vs %s", h1, h2)
	}
}

func TestDecodeNodeRejectsIllegalParentCombination(t *testing.T) {
	e := NewEncoder()
	var nullHash [models.HashSize]byte
	var someHash [models.HashSize]byte
	someHash[0] = 1

	e.WriteRaw(nullHash[:])
	e.WriteRaw(someHash[:])
	// iid, instance bits, timestamp, fact count = 0
	e.writeUint32(1)
	e.writeByte(0)
	e.writeInt64(0)
	e.writeUint32(0)

	_, err := DecodeNode(e.Bytes())
	if !errors.Is(err, models.ErrCorruptedNode) {
		t.Fatalf("expected ErrCorruptedNode, got %v", err)
	}
}

func TestDecodeNodeTruncated(t *testing.T) {
	n := models.NewRoot(models.Source{IID: 1}, 1, sampleFacts())
	encoded, err := EncodeNode(n)
	if err != nil {
		t.Fatalf("EncodeNode: %v", err)
	}
	_, err = DecodeNode(encoded[:len(encoded)-5])
	if !errors.Is(err, models.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
