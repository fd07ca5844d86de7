//go:build linux

package poller

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestEpollWaitReportsReadable(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], LevelTriggered, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := p.Wait(make([]Event, 0, 8), 1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 || events[0].Fd != fds[0] || !events[0].Readable {
		t.Fatalf("expected one readable event for fds[0], got %+v", events)
	}
}

func TestEpollDelStopsReporting(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], LevelTriggered, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Del(fds[0]); err != nil {
		t.Fatalf("Del: %v", err)
	}

	unix.Write(fds[1], []byte("x"))

	events, err := p.Wait(make([]Event, 0, 8), 50)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events after Del, got %+v", events)
	}
}
