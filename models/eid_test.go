package models

import (
	"errors"
	"testing"
)

func TestEIDAllocatorNeverRepeats(t *testing.T) {
	a := NewEIDAllocator(5)
	seen := make(map[EID]bool)
	for i := 0; i < 1000; i++ {
		eid, err := a.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if seen[eid] {
			t.Fatalf("eid %v allocated twice", eid)
		}
		seen[eid] = true
		if eid.IID != 5 {
			t.Fatalf("expected iid 5, got %d", eid.IID)
		}
	}
}

func TestEIDAllocatorObserveSkipsAhead(t *testing.T) {
	a := NewEIDAllocator(1)
	a.Observe(EID{IID: 1, Local: 100})
	next, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next.Local <= 100 {
		t.Fatalf("expected allocation past observed local 100, got %d", next.Local)
	}
}

func TestEIDAllocatorObserveIgnoresOtherInstances(t *testing.T) {
	a := NewEIDAllocator(1)
	a.Observe(EID{IID: 2, Local: 9999})
	next, err := a.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next.Local != 1 {
		t.Fatalf("expected first local allocation 1, got %d (observe from other instance should not affect this one)", next.Local)
	}
}

func TestEIDLessTotalOrder(t *testing.T) {
	a := EID{IID: 1, Local: 5}
	b := EID{IID: 1, Local: 6}
	c := EID{IID: 2, Local: 0}
	if !a.Less(b) {
		t.Fatal("expected a < b by local")
	}
	if !b.Less(c) {
		t.Fatal("expected b < c by iid")
	}
	if c.Less(a) {
		t.Fatal("expected c not less than a")
	}
}

func TestEIDIsReserved(t *testing.T) {
	if !(EID{IID: ReservedIID, Local: 0}).IsReserved() {
		t.Fatal("expected local 0 under reserved iid to be reserved")
	}
	if (EID{IID: ReservedIID, Local: ReservedLocalBound}).IsReserved() {
		t.Fatal("expected local at the bound to not be reserved")
	}
	if (EID{IID: 1, Local: 0}).IsReserved() {
		t.Fatal("expected non-zero iid to never be reserved")
	}
}

func TestEIDAllocatorExhaustion(t *testing.T) {
	a := &EIDAllocator{iid: 9}
	a.next.Store(0)
	if _, err := a.Next(); !errors.Is(err, ErrEidSpaceExhausted) {
		t.Fatalf("expected ErrEidSpaceExhausted, got %v", err)
	}
}
