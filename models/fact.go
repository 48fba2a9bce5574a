package models

import (
	"fmt"
	"time"
)

// ValueKind identifies which scalar case a Value holds. The byte values
// match the codec's wire tag bytes exactly, so a ValueKind can be written
// directly as the TLV type tag.
type ValueKind byte

const (
	KindBool    ValueKind = 'B'
	KindByte    ValueKind = 'b'
	KindInt32   ValueKind = 'i'
	KindInt64   ValueKind = 'l'
	KindString  ValueKind = 's'
	KindBytes   ValueKind = 'a'
	KindInstant ValueKind = 't'
	KindZoned   ValueKind = 'z'
	KindEID     ValueKind = 'e'
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindInstant:
		return "instant"
	case KindZoned:
		return "zoned-timestamp"
	case KindEID:
		return "eid"
	default:
		return fmt.Sprintf("unknown(%c)", byte(k))
	}
}

// ZonedTimestamp is a point in time plus the zone it was recorded in:
// seconds and nanoseconds since the Unix epoch (UTC), and an IANA zone id
// kept only for display/round-trip purposes.
type ZonedTimestamp struct {
	Seconds int64
	Nanos   int32
	Zone    string
}

// Instant converts a ZonedTimestamp to the equivalent Go time in UTC.
func (z ZonedTimestamp) Instant() time.Time {
	return time.Unix(z.Seconds, int64(z.Nanos)).UTC()
}

// Value is a tagged union over the scalar types the codec can serialize.
// Exactly one of the typed fields is meaningful, selected by Kind. Value is
// comparable (no slice/map fields are exported) wherever possible; Bytes is
// the one case that is a slice, so Value itself must be compared with
// Equal rather than ==.
type Value struct {
	Kind    ValueKind
	boolV   bool
	byteV   byte
	int32V  int32
	int64V  int64
	stringV string
	bytesV  []byte
	instant time.Time
	zoned   ZonedTimestamp
	eidV    EID
}

func BoolValue(v bool) Value           { return Value{Kind: KindBool, boolV: v} }
func ByteValue(v byte) Value           { return Value{Kind: KindByte, byteV: v} }
func Int32Value(v int32) Value         { return Value{Kind: KindInt32, int32V: v} }
func Int64Value(v int64) Value         { return Value{Kind: KindInt64, int64V: v} }
func StringValue(v string) Value       { return Value{Kind: KindString, stringV: v} }
func BytesValue(v []byte) Value        { return Value{Kind: KindBytes, bytesV: v} }
func InstantValue(v time.Time) Value   { return Value{Kind: KindInstant, instant: v.UTC()} }
func ZonedValue(v ZonedTimestamp) Value { return Value{Kind: KindZoned, zoned: v} }
func EIDValue(v EID) Value             { return Value{Kind: KindEID, eidV: v} }

func (v Value) Bool() bool             { return v.boolV }
func (v Value) Byte() byte             { return v.byteV }
func (v Value) Int32() int32           { return v.int32V }
func (v Value) Int64() int64           { return v.int64V }
func (v Value) String_() string        { return v.stringV }
func (v Value) Bytes() []byte          { return v.bytesV }
func (v Value) Instant() time.Time     { return v.instant }
func (v Value) Zoned() ZonedTimestamp  { return v.zoned }
func (v Value) EID() EID               { return v.eidV }

// ZeroValue returns the default-policy zero value for a given kind, used
// to fill in absent non-optional scalar attributes on reconstruction.
func ZeroValue(k ValueKind) Value {
	switch k {
	case KindBool:
		return BoolValue(false)
	case KindByte:
		return ByteValue(0)
	case KindInt32:
		return Int32Value(0)
	case KindInt64:
		return Int64Value(0)
	case KindString:
		return StringValue("")
	case KindBytes:
		return BytesValue(nil)
	case KindInstant:
		return InstantValue(time.Unix(0, 0))
	case KindZoned:
		return ZonedValue(ZonedTimestamp{})
	case KindEID:
		return EIDValue(NilEID)
	default:
		return Value{}
	}
}

// Key returns a canonical string encoding suitable for use as a map key,
// so AVE/VAE indexes can key on Value without resorting to reflection.
func (v Value) Key() string {
	switch v.Kind {
	case KindBool:
		if v.boolV {
			return "B1"
		}
		return "B0"
	case KindByte:
		return fmt.Sprintf("b%d", v.byteV)
	case KindInt32:
		return fmt.Sprintf("i%d", v.int32V)
	case KindInt64:
		return fmt.Sprintf("l%d", v.int64V)
	case KindString:
		return "s" + v.stringV
	case KindBytes:
		return "a" + string(v.bytesV)
	case KindInstant:
		return fmt.Sprintf("t%d", v.instant.UnixMilli())
	case KindZoned:
		return fmt.Sprintf("z%d.%d.%s", v.zoned.Seconds, v.zoned.Nanos, v.zoned.Zone)
	case KindEID:
		return "e" + v.eidV.String()
	default:
		return fmt.Sprintf("?%c", byte(v.Kind))
	}
}

// Equal reports whether two Values carry the same kind and payload.
func (v Value) Equal(other Value) bool {
	return v.Key() == other.Key()
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.stringV
	case KindBytes:
		return fmt.Sprintf("%x", v.bytesV)
	case KindEID:
		return v.eidV.String()
	case KindInstant:
		return v.instant.Format(time.RFC3339Nano)
	case KindZoned:
		return fmt.Sprintf("%s[%s]", v.zoned.Instant().Format(time.RFC3339Nano), v.zoned.Zone)
	default:
		return v.Key()
	}
}

// Fact (datom) is the unit of persisted state: an entity holds a value for
// an attribute, or retracts one it previously held.
type Fact struct {
	EID     EID
	Attr    string
	Value   Value
	Deleted bool
}

// Less orders facts canonically by (eid, attr) for serialization; it
// deliberately ignores Deleted so an assertion and its later retraction
// sort identically.
func (f Fact) Less(other Fact) bool {
	if f.EID != other.EID {
		return f.EID.Less(other.EID)
	}
	return f.Attr < other.Attr
}
