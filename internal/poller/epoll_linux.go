//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// MaxEvents bounds a single epoll_wait batch, matching the original's
// MAX_EVENT_NUMBER.
const MaxEvents = 10000

type epollPoller struct {
	epfd int
}

// New creates the Linux epoll-backed Poller.
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func eventsFor(trigger Trigger, interest Interest, oneShot bool) uint32 {
	var ev uint32 = unix.EPOLLRDHUP

	if interest&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	if trigger == EdgeTriggered {
		ev |= unix.EPOLLET
	}
	if oneShot {
		ev |= unix.EPOLLONESHOT
	}
	return ev
}

func (p *epollPoller) Add(fd int, trigger Trigger, oneShot bool) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	ev := unix.EpollEvent{
		Events: eventsFor(trigger, Readable, oneShot),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Mod(fd int, interest Interest, trigger Trigger, oneShot bool) error {
	ev := unix.EpollEvent{
		Events: eventsFor(trigger, interest, oneShot),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Del(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(dst []Event, timeoutMillis int) ([]Event, error) {
	raw := make([]unix.EpollEvent, cap(dst))
	if len(raw) == 0 {
		raw = make([]unix.EpollEvent, MaxEvents)
	}

	n, err := unix.EpollWait(p.epfd, raw, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return nil, err
	}

	out := dst[:0]
	for i := 0; i < n; i++ {
		e := raw[i]
		out = append(out, Event{
			Fd:       int(e.Fd),
			Readable: e.Events&unix.EPOLLIN != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			Closed:   e.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
