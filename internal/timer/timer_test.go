package timer

import (
	"testing"
	"time"
)

func TestAddKeepsAscendingOrder(t *testing.T) {
	l := New()
	base := time.Now()

	var fired []int
	cb := func(n int) Callback {
		return func(ref any) { fired = append(fired, ref.(int)) }
	}

	l.Add(base.Add(30*time.Second), cb(0), 3)
	l.Add(base.Add(10*time.Second), cb(0), 1)
	l.Add(base.Add(20*time.Second), cb(0), 2)

	if !l.sortedAscending() {
		t.Fatalf("list not sorted ascending after Add")
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
}

func TestTickFiresExpiredInOrder(t *testing.T) {
	l := New()
	base := time.Now()

	var fired []int
	cb := func(ref any) { fired = append(fired, ref.(int)) }

	l.Add(base.Add(-2*time.Second), cb, 1)
	l.Add(base.Add(-1*time.Second), cb, 2)
	l.Add(base.Add(time.Hour), cb, 3)

	l.Tick(base)

	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("fired = %v, want [1 2]", fired)
	}
	if got := l.Len(); got != 1 {
		t.Fatalf("Len() after tick = %d, want 1", got)
	}
}

func TestAdjustReordersTowardTail(t *testing.T) {
	l := New()
	base := time.Now()
	noop := func(any) {}

	h1 := l.Add(base.Add(1*time.Second), noop, 1)
	l.Add(base.Add(2*time.Second), noop, 2)
	l.Add(base.Add(3*time.Second), noop, 3)

	l.Adjust(h1, base.Add(10*time.Second))

	if !l.sortedAscending() {
		t.Fatalf("list not sorted ascending after Adjust")
	}
	if l.tail != h1 {
		t.Fatalf("expected adjusted timer to become tail")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	l := New()
	noop := func(any) {}
	h := l.Add(time.Now().Add(time.Second), noop, 1)

	l.Remove(h)
	if got := l.Len(); got != 0 {
		t.Fatalf("Len() after Remove = %d, want 0", got)
	}

	// Removing again (e.g. expiry and explicit close racing) must not panic.
	l.Remove(h)
}

func TestAdjustNoopWhenAlreadyOrdered(t *testing.T) {
	l := New()
	base := time.Now()
	noop := func(any) {}

	h1 := l.Add(base.Add(1*time.Second), noop, 1)
	l.Add(base.Add(5*time.Second), noop, 2)

	l.Adjust(h1, base.Add(2*time.Second))
	if !l.sortedAscending() {
		t.Fatalf("list not sorted ascending after no-op Adjust")
	}
}
