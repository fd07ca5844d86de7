package engine

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// listen creates, configures and binds the listen socket per
// StartListen: SO_REUSEADDR always, backlog of 5 matching the original's
// listen(fd, 5). SO_LINGER is a per-connection option, not a listen-socket
// one, so it's applied to each accepted socket in acceptOne instead.
func (e *Engine) listen() error {
	host, portStr, err := net.SplitHostPort(e.cfg.Addr)
	if err != nil {
		return fmt.Errorf("engine: invalid listen address %q: %w", e.cfg.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("engine: invalid port %q: %w", portStr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("engine: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("engine: setsockopt SO_REUSEADDR: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if host != "" && host != "0.0.0.0" {
		ip := net.ParseIP(host)
		if ip == nil {
			unix.Close(fd)
			return fmt.Errorf("engine: invalid listen host %q", host)
		}
		copy(addr.Addr[:], ip.To4())
	}

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("engine: bind: %w", err)
	}
	if err := unix.Listen(fd, 5); err != nil {
		unix.Close(fd)
		return fmt.Errorf("engine: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("engine: set nonblocking: %w", err)
	}

	e.listenFD = fd
	return nil
}
