package httpfsm

import "golang.org/x/sys/unix"

// ReadOnce performs one non-blocking read attempt from fd into the
// remaining capacity of ReadBuf. Under level-triggered readiness it
// issues a single recv, matching the original's read_once() LT branch;
// under edge-triggered it drains until EAGAIN or the buffer fills,
// since an edge-triggered descriptor will not notify again until more
// bytes arrive.
//
// It returns ok == false either on a hard error (returned alongside) or
// on an orderly peer shutdown (read returning 0), which the caller
// should treat as connection-closed. It also returns ok == false,
// without reading, when ReadBuf is already full. EAGAIN is not an
// error: ReadOnce then returns ok == true with whatever it had read,
// possibly nothing. Under edge-triggered, a read returning 0 after bytes
// were already read in the same call still reports ok == true, so those
// bytes get processed.
func (c *Connection) ReadOnce(fd int, edgeTriggered bool) (ok bool, err error) {
	if c.ReadIdx >= len(c.ReadBuf) {
		return false, nil
	}

	if !edgeTriggered {
		n, rerr := unix.Read(fd, c.ReadBuf[c.ReadIdx:])
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return true, nil
			}
			return false, rerr
		}
		if n <= 0 {
			return false, nil
		}
		c.ReadIdx += n
		return true, nil
	}

	read := false
	for c.ReadIdx < len(c.ReadBuf) {
		n, rerr := unix.Read(fd, c.ReadBuf[c.ReadIdx:])
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return true, nil
			}
			return false, rerr
		}
		if n <= 0 {
			break
		}
		c.ReadIdx += n
		read = true
	}
	return read, nil
}
