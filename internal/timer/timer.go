// Package timer implements a sorted expiry list: sorted ascending by
// expiry, add/adjust/remove against the middle, tick() fires everything
// due. Nodes live in an arena addressed by handle so a connection's back
// pointer (timer.Handle) is never a raw pointer into deletable memory.
package timer

import "time"

// Handle addresses a node in the List's arena. The zero Handle is invalid.
type Handle uint32

const invalidHandle Handle = 0

// Callback is invoked by Tick for every node whose expiry has passed. ref
// is whatever opaque reference was stored with the timer (the engine
// stores a conn.ClientRecord).
type Callback func(ref any)

type node struct {
	expiry   time.Time
	cb       Callback
	ref      any
	prev     Handle
	next     Handle
	inUse    bool
}

// List is a doubly-linked, expiry-ascending list of timers, addressed by
// Handle rather than pointer so deletion can never leave a dangling
// back-reference in a ClientRecord.
type List struct {
	nodes []node
	free  []Handle
	head  Handle
	tail  Handle
}

// New creates an empty timer list.
func New() *List {
	// index 0 is reserved as the invalid handle.
	return &List{nodes: make([]node, 1)}
}

func (l *List) alloc() Handle {
	if n := len(l.free); n > 0 {
		h := l.free[n-1]
		l.free = l.free[:n-1]
		return h
	}
	l.nodes = append(l.nodes, node{})
	return Handle(len(l.nodes) - 1)
}

// Add inserts a new timer expiring at expiry, preserving ascending order.
// O(n) insert from the tail backwards, which is where new timers usually
// land since they are armed with the furthest-out expiry.
func (l *List) Add(expiry time.Time, cb Callback, ref any) Handle {
	h := l.alloc()
	l.nodes[h] = node{expiry: expiry, cb: cb, ref: ref, inUse: true}

	if l.head == invalidHandle {
		l.head, l.tail = h, h
		return h
	}

	// Walk from the tail since Add is almost always called with the
	// furthest-out expiry (a freshly accepted connection).
	cur := l.tail
	for cur != invalidHandle && l.nodes[cur].expiry.After(expiry) {
		cur = l.nodes[cur].prev
	}

	if cur == invalidHandle {
		// New head.
		l.nodes[h].next = l.head
		l.nodes[l.head].prev = h
		l.head = h
		return h
	}

	next := l.nodes[cur].next
	l.nodes[cur].next = h
	l.nodes[h].prev = cur
	l.nodes[h].next = next
	if next != invalidHandle {
		l.nodes[next].prev = h
	} else {
		l.tail = h
	}
	return h
}

func (l *List) unlink(h Handle) {
	n := &l.nodes[h]
	if n.prev != invalidHandle {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != invalidHandle {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = invalidHandle, invalidHandle
}

// Adjust is called after h's expiry has been increased (moved further into
// the future); it re-sorts h toward the tail. A no-op if h is already in
// order relative to its successor.
func (l *List) Adjust(h Handle, newExpiry time.Time) {
	if h == invalidHandle || !l.nodes[h].inUse {
		return
	}
	n := &l.nodes[h]
	n.expiry = newExpiry

	next := n.next
	if next == invalidHandle || !n.expiry.After(l.nodes[next].expiry) {
		return
	}

	l.unlink(h)

	// Re-insert starting the scan from the old successor onward.
	cur := next
	for cur != invalidHandle && !l.nodes[cur].expiry.After(n.expiry) {
		cur = l.nodes[cur].next
	}

	if cur == invalidHandle {
		// New tail.
		n.prev = l.tail
		if l.tail != invalidHandle {
			l.nodes[l.tail].next = h
		} else {
			l.head = h
		}
		l.tail = h
		return
	}

	prev := l.nodes[cur].prev
	n.prev = prev
	n.next = cur
	l.nodes[cur].prev = h
	if prev != invalidHandle {
		l.nodes[prev].next = h
	} else {
		l.head = h
	}
}

// Remove unlinks and frees h. Safe to call with an already-removed handle.
func (l *List) Remove(h Handle) {
	if h == invalidHandle || int(h) >= len(l.nodes) || !l.nodes[h].inUse {
		return
	}
	l.unlink(h)
	l.nodes[h] = node{}
	l.free = append(l.free, h)
}

// Tick walks the list from the head, firing the callback of and removing
// every node whose expiry is not after now.
func (l *List) Tick(now time.Time) {
	for l.head != invalidHandle {
		h := l.head
		n := &l.nodes[h]
		if n.expiry.After(now) {
			break
		}
		cb, ref := n.cb, n.ref
		l.unlink(h)
		l.nodes[h] = node{}
		l.free = append(l.free, h)
		if cb != nil {
			cb(ref)
		}
	}
}

// Len reports the number of live timers, for tests.
func (l *List) Len() int {
	n := 0
	for h := l.head; h != invalidHandle; h = l.nodes[h].next {
		n++
	}
	return n
}

// sortedAscending reports whether the list is sorted ascending by expiry,
// for tests asserting invariant 4 of the spec.
func (l *List) sortedAscending() bool {
	prev := l.head
	if prev == invalidHandle {
		return true
	}
	cur := l.nodes[prev].next
	for cur != invalidHandle {
		if l.nodes[cur].expiry.Before(l.nodes[prev].expiry) {
			return false
		}
		prev = cur
		cur = l.nodes[cur].next
	}
	return true
}
