package conn

import (
	"net"
	"testing"

	"github.com/searchktools/tinyhttpd/internal/poller"
)

func TestAcquireAndRelease(t *testing.T) {
	tbl := NewTable()
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9006}

	slot := tbl.Acquire(5, addr, poller.LevelTriggered, "/srv/root")
	if !slot.In {
		t.Fatal("expected slot to be marked in-use")
	}
	if got := tbl.Get(5); got != slot {
		t.Fatalf("Get did not return the acquired slot")
	}

	tbl.Release(5)
	if got := tbl.Get(5); got != nil {
		t.Fatalf("expected nil after Release, got %+v", got)
	}
}

func TestAcquireTwiceOnSameFDPanics(t *testing.T) {
	tbl := NewTable()
	addr := &net.TCPAddr{}
	tbl.Acquire(7, addr, poller.LevelTriggered, "/srv/root")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double-acquire of the same descriptor")
		}
	}()
	tbl.Acquire(7, addr, poller.LevelTriggered, "/srv/root")
}

func TestGetOutOfRangeIsNil(t *testing.T) {
	tbl := NewTable()
	if got := tbl.Get(-1); got != nil {
		t.Error("expected nil for a negative fd")
	}
	if got := tbl.Get(MaxFD + 10); got != nil {
		t.Error("expected nil for an fd beyond MaxFD")
	}
}

func TestLenCountsOccupiedSlots(t *testing.T) {
	tbl := NewTable()
	addr := &net.TCPAddr{}
	tbl.Acquire(1, addr, poller.LevelTriggered, "/root")
	tbl.Acquire(2, addr, poller.LevelTriggered, "/root")
	if got := tbl.Len(); got != 2 {
		t.Errorf("expected Len 2, got %d", got)
	}
	tbl.Release(1)
	if got := tbl.Len(); got != 1 {
		t.Errorf("expected Len 1 after release, got %d", got)
	}
}
