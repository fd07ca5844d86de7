//go:build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// MaxEvents bounds a single kevent batch, matching the original's
// MAX_EVENT_NUMBER.
const MaxEvents = 10000

type kqueuePoller struct {
	kqfd int
}

// New creates the Darwin kqueue-backed Poller.
func New() (Poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kqfd: fd}, nil
}

func flagsFor(trigger Trigger, oneShot bool) uint16 {
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if trigger == EdgeTriggered {
		flags |= unix.EV_CLEAR
	}
	if oneShot {
		flags |= unix.EV_ONESHOT
	}
	return flags
}

func (p *kqueuePoller) Add(fd int, trigger Trigger, oneShot bool) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  flagsFor(trigger, oneShot),
	}
	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *kqueuePoller) Mod(fd int, interest Interest, trigger Trigger, oneShot bool) error {
	var changes []unix.Kevent_t

	readFlags := uint16(unix.EV_DELETE)
	if interest&Readable != 0 {
		readFlags = flagsFor(trigger, oneShot)
	}
	changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: readFlags})

	writeFlags := uint16(unix.EV_DELETE)
	if interest&Writable != 0 {
		writeFlags = flagsFor(trigger, oneShot)
	}
	changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: writeFlags})

	// EV_DELETE on a filter that was never added returns ENOENT; harmless.
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *kqueuePoller) Del(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *kqueuePoller) Wait(dst []Event, timeoutMillis int) ([]Event, error) {
	raw := make([]unix.Kevent_t, cap(dst))
	if len(raw) == 0 {
		raw = make([]unix.Kevent_t, MaxEvents)
	}

	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMillis) * int64(1e6))
		ts = &t
	}

	n, err := unix.Kevent(p.kqfd, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return nil, err
	}

	out := dst[:0]
	for i := 0; i < n; i++ {
		e := raw[i]
		ev := Event{
			Fd:     int(e.Ident),
			Closed: e.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0,
		}
		switch e.Filter {
		case unix.EVFILT_READ:
			ev.Readable = true
		case unix.EVFILT_WRITE:
			ev.Writable = true
		}
		out = append(out, ev)
	}
	return out, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
