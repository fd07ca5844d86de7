// Package poller wraps the OS readiness-notification interface (epoll on
// Linux, kqueue on Darwin) behind a small facade offering per-descriptor
// level- or edge-triggered mode and one-shot rearm, matching spec §4.C.
package poller

// Trigger selects level- or edge-triggered notification for one side of a
// descriptor's registration (listen socket and connection sockets choose
// independently).
type Trigger int

const (
	LevelTriggered Trigger = iota
	EdgeTriggered
)

// Interest is a bitmask of the readiness conditions a caller wants to hear
// about.
type Interest int

const (
	Readable Interest = 1 << iota
	Writable
)

// Event reports one descriptor's readiness. Closed is set for peer
// shutdown / hangup / error conditions (RDHUP, HUP, ERR).
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Closed   bool
}

// Poller is the OS readiness multiplexer interface the event loop drives.
type Poller interface {
	// Add registers fd, non-blocking, watching for Readable readiness
	// (the listen socket, connection sockets on accept, and the signal
	// pipe are all added this way).
	Add(fd int, trigger Trigger, oneShot bool) error
	// Mod changes fd's watched interest set and rearms it (used to flip
	// between read- and write-readiness, and to rearm a one-shot
	// descriptor after a worker finishes with it).
	Mod(fd int, interest Interest, trigger Trigger, oneShot bool) error
	// Del removes fd from the watch set. It does not close fd.
	Del(fd int) error
	// Wait blocks (or returns immediately if timeoutMillis == 0, or
	// forever if negative) until at least one event is ready, appending
	// results into the caller-owned dst slice's backing array up to its
	// capacity and returning it resliced to the number of events found.
	Wait(dst []Event, timeoutMillis int) ([]Event, error)
	Close() error
}
