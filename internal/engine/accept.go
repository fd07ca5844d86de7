package engine

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/tinyhttpd/internal/conn"
	"github.com/searchktools/tinyhttpd/internal/poller"
)

var busyMessage = []byte("HTTP/1.1 500 Internal Server Error\r\nContent-Length: 0\r\n\r\n")

// acceptAll accepts one connection under level-triggered listen
// readiness, or drains every pending connection under edge-triggered,
// matching HandleClientData's two branches.
func (e *Engine) acceptAll() {
	for {
		fd, sa, err := unix.Accept4(e.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			return
		}
		e.acceptOne(fd, sa)

		if e.cfg.ListenTrigger == poller.LevelTriggered {
			return
		}
	}
}

func (e *Engine) acceptOne(fd int, sa unix.Sockaddr) {
	if fd >= conn.MaxFD {
		unix.Write(fd, busyMessage)
		unix.Close(fd)
		e.cfg.Log.Warnf("rejecting fd %d: at connection capacity", fd)
		return
	}

	if e.cfg.OptLinger {
		linger := unix.Linger{Onoff: 1, Linger: 1}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &linger); err != nil {
			e.cfg.Log.Warnf("setsockopt SO_LINGER on fd %d: %v", fd, err)
		}
	}

	addr := sockaddrToNetAddr(sa)
	slot := e.table.Acquire(fd, addr, e.cfg.ConnTrigger, e.cfg.DocRoot)

	if err := e.pl.Add(fd, e.cfg.ConnTrigger, true); err != nil {
		e.cfg.Log.Errorf("register fd %d: %v", fd, err)
		e.table.Release(fd)
		unix.Close(fd)
		return
	}

	record := conn.ClientRecord{FD: fd, Addr: addr}
	slot.Timer = e.timers.Add(time.Now().Add(e.cfg.ConnExpiry), e.onTimerFire, record)
}

func (e *Engine) onTimerFire(ref any) {
	record := ref.(conn.ClientRecord)
	e.closeConn(record.FD)
}

func sockaddrToNetAddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	default:
		return nil
	}
}
