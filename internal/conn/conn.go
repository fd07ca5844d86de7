// Package conn owns the fixed-capacity, descriptor-indexed connection
// table (spec §4.D): one slot per possible file descriptor, holding the
// socket, peer address, trigger mode, timer handle and parser/response
// state (internal/httpfsm.Connection) for that descriptor's lifetime.
package conn

import (
	"net"

	"github.com/searchktools/tinyhttpd/internal/httpfsm"
	"github.com/searchktools/tinyhttpd/internal/poller"
	"github.com/searchktools/tinyhttpd/internal/timer"
)

// MaxFD bounds the slot table, matching the original's MAX_FD (the
// largest descriptor value the process is willing to hold open at
// once).
const MaxFD = 65536

// Slot is one descriptor's connection state. A zero-value Slot (In ==
// false) is a free, reusable entry.
type Slot struct {
	In bool

	FD      int
	Addr    net.Addr
	Trigger poller.Trigger

	// State == 0 means the slot is waiting to be read; State == 1 means
	// a response is pending write, matching the original's m_state.
	State int

	Timer timer.Handle
	HTTP  httpfsm.Connection
}

// ClientRecord is the lightweight association a timer callback closes
// over: just enough to find and evict the right slot without reaching
// back into the full Connection.
type ClientRecord struct {
	FD   int
	Addr net.Addr
}

// Table is the fixed-capacity slot array indexed by descriptor value,
// giving O(1) lookup/insert/remove with no map overhead on the hot path.
type Table struct {
	slots [MaxFD]Slot
}

// NewTable allocates a zeroed table. All MaxFD slots are allocated up
// front; Acquire still allocates each connection's read and write
// buffers through httpfsm.Connection.Init.
func NewTable() *Table {
	return &Table{}
}

// Acquire claims fd's slot for a newly accepted connection, resetting
// its HTTP parser/response state. It panics if fd is out of range or
// already in use, since both indicate an accounting bug upstream (the
// poller would never report an event for a descriptor the table hasn't
// seen accepted).
func (t *Table) Acquire(fd int, addr net.Addr, trigger poller.Trigger, docRoot string) *Slot {
	s := &t.slots[fd]
	if s.In {
		panic("conn: slot already in use")
	}
	s.In = true
	s.FD = fd
	s.Addr = addr
	s.Trigger = trigger
	s.State = 0
	s.Timer = 0
	s.HTTP.Init(docRoot)
	return s
}

// Get returns fd's slot, or nil if it is not currently in use.
func (t *Table) Get(fd int) *Slot {
	if fd < 0 || fd >= MaxFD {
		return nil
	}
	s := &t.slots[fd]
	if !s.In {
		return nil
	}
	return s
}

// Release frees fd's slot for reuse. It does not close the descriptor;
// the caller (engine) owns socket lifecycle.
func (t *Table) Release(fd int) {
	if fd < 0 || fd >= MaxFD {
		return
	}
	t.slots[fd] = Slot{}
}

// Len reports how many slots are currently occupied. It is O(MaxFD) and
// meant for diagnostics/logging, not the hot path.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].In {
			n++
		}
	}
	return n
}
