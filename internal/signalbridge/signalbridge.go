// Package signalbridge turns process signals into bytes on a self-pipe so
// the event loop can learn about them through the same readiness reactor
// it already polls sockets with, instead of a second, signal-specific
// wakeup path. Go forbids touching arbitrary state from a real signal
// handler anyway, so the translation from a signal number to a pipe byte
// happens in a dedicated goroutine fed by os/signal.Notify — the
// async-signal-safety the original buys by writing only a single byte
// with send() is preserved because the goroutine only ever writes one byte
// per signal and never touches the timer list or logger itself.
package signalbridge

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Bridge owns a nonblocking pipe pair. ReadFD is registered with the
// readiness reactor level-triggered; Drain reads whatever is pending and
// reports which signals arrived.
type Bridge struct {
	readFD  int
	writeFD int
	ch      chan os.Signal
	stop    chan struct{}
}

// New creates the pipe, sets both ends nonblocking, and starts relaying
// SIGALRM and SIGTERM into it. SIGPIPE is ignored, matching the original's
// AddSignal(SIGPIPE, SIG_IGN).
func New() (*Bridge, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}

	b := &Bridge{
		readFD:  fds[0],
		writeFD: fds[1],
		ch:      make(chan os.Signal, 8),
		stop:    make(chan struct{}),
	}

	signal.Ignore(syscall.SIGPIPE)
	signal.Notify(b.ch, syscall.SIGALRM, syscall.SIGTERM)

	go b.relay()
	return b, nil
}

func (b *Bridge) relay() {
	for {
		select {
		case sig := <-b.ch:
			var n byte
			switch sig {
			case syscall.SIGALRM:
				n = byte(syscall.SIGALRM)
			case syscall.SIGTERM:
				n = byte(syscall.SIGTERM)
			default:
				continue
			}
			unix.Write(b.writeFD, []byte{n})
		case <-b.stop:
			return
		}
	}
}

// ReadFD is the descriptor the event loop registers with the poller.
func (b *Bridge) ReadFD() int { return b.readFD }

// Drain reads up to 1024 pending signal bytes and reports whether a
// timeout (SIGALRM) or stop (SIGTERM) signal was seen among them,
// matching HandleSignal's flag semantics.
func (b *Bridge) Drain() (timeout, stop bool, err error) {
	buf := make([]byte, 1024)
	n, err := unix.Read(b.readFD, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return false, false, nil
		}
		return false, false, err
	}
	for i := 0; i < n; i++ {
		switch buf[i] {
		case byte(syscall.SIGALRM):
			timeout = true
		case byte(syscall.SIGTERM):
			stop = true
		}
	}
	return timeout, stop, nil
}

// Close stops the relay goroutine and closes both pipe ends.
func (b *Bridge) Close() error {
	signal.Stop(b.ch)
	close(b.stop)
	unix.Close(b.writeFD)
	return unix.Close(b.readFD)
}
