// Package codec implements the factdb binary codec: a self-describing
// TLV encoding for scalar values and the canonical node serialization that
// content hashes are computed over.
//
// Every value begins with a single type tag byte followed by its payload.
// Integers are big-endian so lexicographic byte order matches numeric
// order for unsigned use, matching the wire format's stated intent.
package codec

import (
	"encoding/binary"
	"fmt"
	"time"

	"factdb/models"
)

// Encoder writes values to an underlying byte buffer in the canonical TLV
// encoding.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with an empty internal buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) writeByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *Encoder) writeBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *Encoder) writeUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.writeBytes(tmp[:])
}

func (e *Encoder) writeInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	e.writeBytes(tmp[:])
}

func (e *Encoder) writeLenPrefixed(b []byte) {
	e.writeUint32(uint32(len(b)))
	e.writeBytes(b)
}

// WriteRaw writes bytes with no type tag and no length prefix, used for the
// fixed-width hash fields in the node header.
func (e *Encoder) WriteRaw(b []byte) {
	e.writeBytes(b)
}

// WriteValue encodes v with its type tag followed by its payload.
func (e *Encoder) WriteValue(v models.Value) error {
	e.writeByte(byte(v.Kind))
	switch v.Kind {
	case models.KindBool:
		if v.Bool() {
			e.writeByte(1)
		} else {
			e.writeByte(0)
		}
	case models.KindByte:
		e.writeByte(v.Byte())
	case models.KindInt32:
		e.writeUint32(uint32(v.Int32()))
	case models.KindInt64:
		e.writeInt64(v.Int64())
	case models.KindString:
		e.writeLenPrefixed([]byte(v.String_()))
	case models.KindBytes:
		e.writeLenPrefixed(v.Bytes())
	case models.KindInstant:
		e.writeInt64(v.Instant().UnixMilli())
	case models.KindZoned:
		z := v.Zoned()
		e.writeInt64(z.Seconds)
		e.writeUint32(uint32(z.Nanos))
		e.writeLenPrefixed([]byte(z.Zone))
	case models.KindEID:
		eid := v.EID()
		e.writeUint32(eid.IID)
		e.writeInt64(int64(eid.Local))
	default:
		return fmt.Errorf("%w: tag %c", models.ErrUnsupportedValue, byte(v.Kind))
	}
	return nil
}

// Decoder reads values from an in-memory byte slice in the same encoding
// Encoder produces.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential decoding.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining reports how many bytes are left unread.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, models.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadRaw reads exactly n unframed bytes, used for the fixed-width hash
// fields in the node header.
func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	return d.readN(n)
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) readInt64() (int64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (d *Decoder) readLenPrefixed() ([]byte, error) {
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	return d.readN(int(n))
}

// ReadValue decodes one tagged value. It returns models.ErrUnknownTag for
// an unrecognized tag byte and models.ErrUnexpectedEOF for a truncated
// payload.
func (d *Decoder) ReadValue() (models.Value, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return models.Value{}, err
	}
	tag := models.ValueKind(tagByte)

	switch tag {
	case models.KindBool:
		b, err := d.readByte()
		if err != nil {
			return models.Value{}, err
		}
		return models.BoolValue(b != 0), nil
	case models.KindByte:
		b, err := d.readByte()
		if err != nil {
			return models.Value{}, err
		}
		return models.ByteValue(b), nil
	case models.KindInt32:
		v, err := d.readUint32()
		if err != nil {
			return models.Value{}, err
		}
		return models.Int32Value(int32(v)), nil
	case models.KindInt64:
		v, err := d.readInt64()
		if err != nil {
			return models.Value{}, err
		}
		return models.Int64Value(v), nil
	case models.KindString:
		b, err := d.readLenPrefixed()
		if err != nil {
			return models.Value{}, err
		}
		return models.StringValue(string(b)), nil
	case models.KindBytes:
		b, err := d.readLenPrefixed()
		if err != nil {
			return models.Value{}, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return models.BytesValue(cp), nil
	case models.KindInstant:
		ms, err := d.readInt64()
		if err != nil {
			return models.Value{}, err
		}
		return models.InstantValue(time.UnixMilli(ms).UTC()), nil
	case models.KindZoned:
		secs, err := d.readInt64()
		if err != nil {
			return models.Value{}, err
		}
		nanos, err := d.readUint32()
		if err != nil {
			return models.Value{}, err
		}
		zone, err := d.readLenPrefixed()
		if err != nil {
			return models.Value{}, err
		}
		return models.ZonedValue(models.ZonedTimestamp{Seconds: secs, Nanos: int32(nanos), Zone: string(zone)}), nil
	case models.KindEID:
		iid, err := d.readUint32()
		if err != nil {
			return models.Value{}, err
		}
		local, err := d.readInt64()
		if err != nil {
			return models.Value{}, err
		}
		return models.EIDValue(models.EID{IID: iid, Local: uint64(local)}), nil
	default:
		return models.Value{}, fmt.Errorf("%w: %c", models.ErrUnknownTag, tagByte)
	}
}

