package httpfsm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Status line text keyed by outcome, matching the original's four canned
// error bodies plus the 200 case.
var statusLine = map[Outcome]string{
	BadRequest:       "400 Bad Request",
	ForbiddenRequest: "403 Forbidden",
	NoResource:       "404 Not Found",
	InternalError:    "500 Internal Server Error",
	FileRequest:      "200 OK",
}

var errorBody = map[Outcome]string{
	BadRequest:       "Your request has bad syntax or is inherently impossible to satisfy.\n",
	ForbiddenRequest: "You do not have permission to get file from this server.\n",
	NoResource:       "The requested file was not found on this server.\n",
	InternalError:    "There was an unusual problem serving the requested file.\n",
}

// MapFile stats and mmaps RealFile for serving as a FileRequest response
// body. It classifies the stat/open failure into the matching Outcome
// rather than returning a Go error, mirroring DoRequest's inline checks
// against st_mode.
func (c *Connection) MapFile(path string) Outcome {
	c.RealFile = path

	info, err := os.Stat(path)
	if err != nil {
		return NoResource
	}
	if info.IsDir() {
		return BadRequest
	}
	if info.Mode().Perm()&0o444 == 0 {
		return ForbiddenRequest
	}

	f, err := os.Open(path)
	if err != nil {
		return ForbiddenRequest
	}
	defer f.Close()

	size := info.Size()
	if size == 0 {
		c.FileMap = nil
		c.BytesToSend = 0
		return FileRequest
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return InternalError
	}
	c.FileMap = data
	c.BytesToSend = len(data)
	return FileRequest
}

// unmapFile releases a previously mmap'd response body, idempotently.
func (c *Connection) unmapFile() {
	if c.FileMap != nil {
		unix.Munmap(c.FileMap)
		c.FileMap = nil
	}
}

// BuildResponse formats the status line, headers and (for error outcomes)
// inline body text into WriteBuf, and sets BytesToSend/BytesSent ready
// for Write to drain via writev. For FileRequest it assumes MapFile has
// already populated FileMap.
func (c *Connection) BuildResponse(outcome Outcome) {
	c.WriteBuf = c.WriteBuf[:0]
	c.WriteIdx = 0
	c.BytesSent = 0

	line, ok := statusLine[outcome]
	if !ok {
		line = statusLine[InternalError]
		outcome = InternalError
	}

	var body string
	contentLength := c.BytesToSend
	if outcome != FileRequest {
		body = errorBody[outcome]
		contentLength = len(body)
	}

	c.appendf("HTTP/1.1 %s\r\n", line)
	if outcome == FileRequest {
		c.appendf("Content-Type: %s\r\n", contentTypeFor(c.RealFile))
	} else {
		c.appendf("Content-Type: text/html\r\n")
	}
	c.appendf("Content-Length: %d\r\n", contentLength)
	if c.KeepAlive {
		c.appendf("Connection: keep-alive\r\n")
	} else {
		c.appendf("Connection: close\r\n")
	}
	c.appendf("Date: %s\r\n", time.Now().UTC().Format(http1Date))
	c.appendf("\r\n")

	if outcome != FileRequest {
		c.appendf("%s", body)
		c.BytesToSend = 0
	}
	c.iovHeadLen = len(c.WriteBuf)
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"

func (c *Connection) appendf(format string, args ...any) {
	c.WriteBuf = append(c.WriteBuf, []byte(fmt.Sprintf(format, args...))...)
}

// Write drains the pending header bytes and mmap'd file body over fd
// using a single writev(2) call per invocation (scatter/gather over a
// 2-element iovec), returning done == true once every byte has been
// acknowledged. A partial write adjusts the head/body split for the next
// call exactly as the original's write() loop adjusts iv_[0]/iv_[1].
func (c *Connection) Write(fd int) (done bool, err error) {
	headRemaining := c.iovHeadLen - c.WriteIdx
	if headRemaining < 0 {
		headRemaining = 0
	}

	var iovs [][]byte
	if headRemaining > 0 {
		iovs = append(iovs, c.WriteBuf[c.WriteIdx:c.iovHeadLen])
	}
	bodyOff := c.BytesSent
	if bodyOff < len(c.FileMap) {
		iovs = append(iovs, c.FileMap[bodyOff:])
	}
	if len(iovs) == 0 {
		return true, nil
	}

	n, werr := unix.Writev(fd, iovs)
	if werr != nil {
		if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, werr
	}

	if headRemaining > 0 {
		if n >= headRemaining {
			n -= headRemaining
			c.WriteIdx = c.iovHeadLen
		} else {
			c.WriteIdx += n
			return false, nil
		}
	}
	c.BytesSent += n

	if c.WriteIdx >= c.iovHeadLen && c.BytesSent >= len(c.FileMap) {
		c.unmapFile()
		return true, nil
	}
	return false, nil
}

var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".txt":  "text/plain",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
