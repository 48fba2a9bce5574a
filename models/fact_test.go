package models

import "testing"

func TestValueEqual(t *testing.T) {
	a := StringValue("x")
	b := StringValue("x")
	c := StringValue("y")
	if !a.Equal(b) {
		t.Fatal("expected equal strings to be Equal")
	}
	if a.Equal(c) {
		t.Fatal("expected different strings to not be Equal")
	}
}

func TestValueKeyDistinguishesKinds(t *testing.T) {
	// A byte 0 and a bool false must not collide in AVE/VAE maps.
	if ByteValue(0).Key() == BoolValue(false).Key() {
		t.Fatal("expected distinct keys across kinds")
	}
}

func TestZeroValueRoundTrip(t *testing.T) {
	for _, k := range []ValueKind{KindBool, KindByte, KindInt32, KindInt64, KindString, KindBytes, KindInstant, KindZoned, KindEID} {
		v := ZeroValue(k)
		if v.Kind != k {
			t.Fatalf("ZeroValue(%s) produced kind %s", k, v.Kind)
		}
	}
}

func TestFactLessOrdersByEIDThenAttr(t *testing.T) {
	f1 := Fact{EID: EID{IID: 1, Local: 1}, Attr: "a"}
	f2 := Fact{EID: EID{IID: 1, Local: 1}, Attr: "b"}
	f3 := Fact{EID: EID{IID: 1, Local: 2}, Attr: "a"}
	if !f1.Less(f2) {
		t.Fatal("expected f1 < f2 by attr")
	}
	if !f2.Less(f3) {
		t.Fatal("expected f2 < f3 by eid")
	}
}

func TestZonedTimestampInstant(t *testing.T) {
	z := ZonedTimestamp{Seconds: 1000, Nanos: 500, Zone: "UTC"}
	got := z.Instant()
	if got.Unix() != 1000 {
		t.Fatalf("expected unix seconds 1000, got %d", got.Unix())
	}
}
