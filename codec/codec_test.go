package codec

import (
	"errors"
	"testing"
	"time"

	"factdb/models"
)

func roundTrip(t *testing.T, v models.Value) models.Value {
	t.Helper()
	e := NewEncoder()
	if err := e.WriteValue(v); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	d := NewDecoder(e.Bytes())
	got, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if d.Remaining() != 0 {
		t.Fatalf("left %d unread bytes", d.Remaining())
	}
	return got
}

func TestValueRoundTrip(t *testing.T) {
	cases := []models.Value{
		models.BoolValue(true),
		models.BoolValue(false),
		models.ByteValue(0xAB),
		models.Int32Value(-12345),
		models.Int64Value(-9_000_000_000),
		models.StringValue("hello, world"),
		models.StringValue(""),
		models.StringValue("héllo, 世界"), // multi-byte code points: length is by byte count, not rune count
		models.BytesValue([]byte{1, 2, 3}),
		models.InstantValue(time.UnixMilli(1_700_000_000_000).UTC()),
		models.ZonedValue(models.ZonedTimestamp{Seconds: 1700000000, Nanos: 123, Zone: "America/New_York"}),
		models.EIDValue(models.EID{IID: 7, Local: 42}),
	}
	for _, want := range cases {
		got := roundTrip(t, want)
		if !got.Equal(want) {
			t.Errorf("round trip mismatch: want %v got %v", want, got)
		}
	}
}

func TestReadValueUnknownTag(t *testing.T) {
	d := NewDecoder([]byte{'?'})
	if _, err := d.ReadValue(); !errors.Is(err, models.ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
}

func TestReadValueTruncated(t *testing.T) {
	e := NewEncoder()
	_ = e.WriteValue(models.StringValue("truncate me"))
	truncated := e.Bytes()[:len(e.Bytes())-3]
	d := NewDecoder(truncated)
	if _, err := d.ReadValue(); !errors.Is(err, models.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
