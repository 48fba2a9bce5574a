package codec

import (
	"fmt"
	"sort"

	"factdb/models"

	"golang.org/x/crypto/blake2b"
)

// EncodeNode serializes n in the canonical layout:
//
//	bytes(parent1_hash) bytes(parent2_hash)
//	i(iid) b(instance_bits) l(timestamp)
//	i(fact_count) { e(eid) s(attr) <value> B(deleted) }*
//
// Facts are sorted by (eid, attr) before encoding so that equal fact sets
// with an equal header always produce equal bytes, regardless of the
// order callers built them in.
func EncodeNode(n *models.Node) ([]byte, error) {
	facts := make([]models.Fact, len(n.Facts))
	copy(facts, n.Facts)
	sort.SliceStable(facts, func(i, j int) bool { return facts[i].Less(facts[j]) })

	e := NewEncoder()
	e.WriteRaw(n.Parent1[:])
	e.WriteRaw(n.Parent2[:])
	e.writeUint32(n.Source.IID)
	e.writeByte(n.Source.InstanceBits)
	e.writeInt64(n.Timestamp)
	e.writeUint32(uint32(len(facts)))
	for _, f := range facts {
		if err := e.WriteValue(models.EIDValue(f.EID)); err != nil {
			return nil, err
		}
		e.writeLenPrefixed([]byte(f.Attr))
		if err := e.WriteValue(f.Value); err != nil {
			return nil, err
		}
		if f.Deleted {
			e.writeByte(1)
		} else {
			e.writeByte(0)
		}
	}
	return e.Bytes(), nil
}

// DecodeNode parses bytes produced by EncodeNode. It classifies the
// resulting Node's variant from parent null-ness and rejects the one
// illegal combination the format allows to exist on the wire: Parent1
// null while Parent2 is set.
func DecodeNode(buf []byte) (*models.Node, error) {
	d := NewDecoder(buf)

	p1Bytes, err := d.ReadRaw(models.HashSize)
	if err != nil {
		return nil, err
	}
	p2Bytes, err := d.ReadRaw(models.HashSize)
	if err != nil {
		return nil, err
	}
	var parent1, parent2 models.Hash
	copy(parent1[:], p1Bytes)
	copy(parent2[:], p2Bytes)

	iid, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	instanceBits, err := d.readByte()
	if err != nil {
		return nil, err
	}
	timestamp, err := d.readInt64()
	if err != nil {
		return nil, err
	}
	factCount, err := d.readUint32()
	if err != nil {
		return nil, err
	}

	facts := make([]models.Fact, 0, factCount)
	for i := uint32(0); i < factCount; i++ {
		eidVal, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		if eidVal.Kind != models.KindEID {
			return nil, fmt.Errorf("%w: fact eid field carries kind %s", models.ErrCorruptedNode, eidVal.Kind)
		}
		attrBytes, err := d.readLenPrefixed()
		if err != nil {
			return nil, err
		}
		val, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		deletedByte, err := d.readByte()
		if err != nil {
			return nil, err
		}
		facts = append(facts, models.Fact{
			EID:     eidVal.EID(),
			Attr:    string(attrBytes),
			Value:   val,
			Deleted: deletedByte != 0,
		})
	}

	if parent1.IsNull() && !parent2.IsNull() {
		return nil, fmt.Errorf("%w: parent1 is null but parent2 is set", models.ErrCorruptedNode)
	}

	n := &models.Node{
		Parent1:   parent1,
		Parent2:   parent2,
		Source:    models.Source{IID: iid, InstanceBits: instanceBits},
		Timestamp: timestamp,
		Facts:     facts,
	}
	return n, nil
}

// HashNode computes the node's content hash: BLAKE2b-256 over its
// canonical bytes.
func HashNode(n *models.Node) (models.Hash, error) {
	encoded, err := EncodeNode(n)
	if err != nil {
		return models.Hash{}, err
	}
	digest := blake2b.Sum256(encoded)
	return models.Hash(digest), nil
}
