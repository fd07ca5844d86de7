// Package httpfsm implements the incremental HTTP/1.1 request parser
// (spec §4.E) and the response emitter that mixes a header buffer with a
// memory-mapped file body over scatter/gather output (spec §4.G).
package httpfsm

import (
	"strconv"
	"strings"
)

// Buffer sizes, carried from the original's fixed-size read/write buffers
// and MAX_FILENAME_LEN.
const (
	ReadBufferSize  = 4096
	WriteBufferSize = 2048
	FileNameLen     = 512
)

// ParseState is the parser FSM's current stage.
type ParseState int

const (
	StateRequestLine ParseState = iota
	StateHeader
	StateContent
)

// LineStatus is ParseLine's outcome.
type LineStatus int

const (
	LineOpen LineStatus = iota
	LineOk
	LineBad
)

// Method is the recognized HTTP method.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
)

// Outcome is the parser/handler/emitter's result code (spec §4.E).
type Outcome int

const (
	NoRequest Outcome = iota
	GetRequest
	BadRequest
	NoResource
	ForbiddenRequest
	FileRequest
	InternalError
	ClosedConnection
)

// Connection holds one connection's incremental parse state and response
// emission state. It is owned exclusively by whichever worker currently
// holds the descriptor's one-shot rearm token (spec invariant 5); nothing
// in this package takes its own lock.
type Connection struct {
	DocRoot string

	// Incoming parse state.
	ReadBuf    []byte
	ReadIdx    int
	CheckedIdx int
	StartLine  int
	State      ParseState

	Method        Method
	URL           string
	Version       string
	Host          string
	ContentLength int
	KeepAlive     bool
	CGI           bool
	Body          string

	// Outgoing response state.
	WriteBuf    []byte
	WriteIdx    int
	FileMap     []byte
	RealFile    string
	BytesToSend int
	BytesSent   int
	iovHeadLen  int
}

// Init resets c to a freshly accepted (or keep-alive reinitialized)
// connection, matching HttpConnection::init() — invariant: ReadIdx == 0
// after Init.
func (c *Connection) Init(docRoot string) {
	c.DocRoot = docRoot
	c.ReadBuf = make([]byte, ReadBufferSize)
	c.ReadIdx = 0
	c.CheckedIdx = 0
	c.StartLine = 0
	c.State = StateRequestLine

	c.Method = MethodUnknown
	c.URL = ""
	c.Version = ""
	c.Host = ""
	c.ContentLength = 0
	c.KeepAlive = false
	c.CGI = false
	c.Body = ""

	c.WriteBuf = make([]byte, 0, WriteBufferSize)
	c.WriteIdx = 0
	c.unmapFile()
	c.RealFile = ""
	c.BytesToSend = 0
	c.BytesSent = 0
	c.iovHeadLen = 0
}

// ParseLine advances CheckedIdx over the read buffer looking for a
// terminating CRLF, rewriting both bytes to NULs in place so the
// completed line can be sliced as a bounded string starting at StartLine.
// A lone CR or a lone LF yields LineBad; a CR that is the last buffered
// byte yields LineOpen.
func (c *Connection) ParseLine() LineStatus {
	for ; c.CheckedIdx < c.ReadIdx; c.CheckedIdx++ {
		b := c.ReadBuf[c.CheckedIdx]
		if b == '\r' {
			if c.CheckedIdx+1 == c.ReadIdx {
				return LineOpen
			}
			if c.ReadBuf[c.CheckedIdx+1] == '\n' {
				c.ReadBuf[c.CheckedIdx] = 0
				c.ReadBuf[c.CheckedIdx+1] = 0
				c.CheckedIdx += 2
				return LineOk
			}
			return LineBad
		} else if b == '\n' {
			if c.CheckedIdx > 0 && c.ReadBuf[c.CheckedIdx-1] == '\r' {
				c.ReadBuf[c.CheckedIdx-1] = 0
				c.ReadBuf[c.CheckedIdx] = 0
				c.CheckedIdx++
				return LineOk
			}
			return LineBad
		}
	}
	return LineOpen
}

// currentLine returns the just-completed line as a string, from
// StartLine up to (but excluding) the NULs ParseLine wrote.
func (c *Connection) currentLine() string {
	end := c.CheckedIdx
	for end > c.StartLine && c.ReadBuf[end-1] == 0 {
		end--
	}
	return string(c.ReadBuf[c.StartLine:end])
}

// ProcessRead drives the FSM over whatever bytes are currently in
// ReadBuf[:ReadIdx], advancing through RequestLine -> Header -> (Content)
// until it either needs more bytes (NoRequest), hits a protocol error
// (BadRequest), or completes a request (GetRequest, ready for dispatch).
func (c *Connection) ProcessRead() Outcome {
	lineStatus := LineOk

	for {
		if c.State == StateContent {
			if lineStatus != LineOk {
				break
			}
		} else {
			lineStatus = c.ParseLine()
			if lineStatus != LineOk {
				break
			}
		}

		text := c.currentLine()
		c.StartLine = c.CheckedIdx

		switch c.State {
		case StateRequestLine:
			outcome := c.parseRequestLine(text)
			if outcome == BadRequest {
				return BadRequest
			}
		case StateHeader:
			outcome := c.parseHeader(text)
			if outcome == BadRequest {
				return BadRequest
			}
			if outcome == GetRequest {
				return GetRequest
			}
		case StateContent:
			outcome := c.parseContent()
			if outcome == GetRequest {
				return GetRequest
			}
			lineStatus = LineOpen
		default:
			return InternalError
		}
	}

	return NoRequest
}

func (c *Connection) parseRequestLine(line string) Outcome {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return BadRequest
	}
	method, target, version := fields[0], fields[1], fields[2]

	switch strings.ToUpper(method) {
	case "GET":
		c.Method = MethodGet
	case "POST":
		c.Method = MethodPost
		c.CGI = true
	default:
		return BadRequest
	}

	if !strings.EqualFold(version, "HTTP/1.1") {
		return BadRequest
	}
	c.Version = version

	if strings.HasPrefix(strings.ToLower(target), "http://") {
		target = target[len("http://"):]
		if idx := strings.IndexByte(target, '/'); idx >= 0 {
			target = target[idx:]
		}
	}
	if strings.HasPrefix(strings.ToLower(target), "https://") {
		target = target[len("https://"):]
		if idx := strings.IndexByte(target, '/'); idx >= 0 {
			target = target[idx:]
		}
	}
	if target == "" || target[0] != '/' {
		return BadRequest
	}
	if target == "/" {
		target = "/judge.html"
	}

	c.URL = target
	c.State = StateHeader
	return NoRequest
}

func (c *Connection) parseHeader(line string) Outcome {
	if line == "" {
		if c.ContentLength != 0 {
			c.State = StateContent
			return NoRequest
		}
		return GetRequest
	}

	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "connection:"):
		v := strings.TrimSpace(line[len("connection:"):])
		if strings.EqualFold(v, "keep-alive") {
			c.KeepAlive = true
		}
	case strings.HasPrefix(lower, "content-length:"):
		v := strings.TrimSpace(line[len("content-length:"):])
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return BadRequest
		}
		c.ContentLength = n
		if c.ContentLengthExceedsBuffer() {
			return BadRequest
		}
	case strings.HasPrefix(lower, "host:"):
		c.Host = strings.TrimSpace(line[len("host:"):])
	default:
		// Unrecognized headers are ignored; nothing logs them.
	}
	return NoRequest
}

func (c *Connection) parseContent() Outcome {
	if c.ReadIdx >= c.ContentLength+c.CheckedIdx {
		end := c.CheckedIdx + c.ContentLength
		if end > len(c.ReadBuf) {
			end = len(c.ReadBuf)
		}
		c.Body = string(c.ReadBuf[c.CheckedIdx:end])
		return GetRequest
	}
	return NoRequest
}

// ContentLengthExceedsBuffer reports whether the declared body is larger
// than the read buffer can ever hold, so parseHeader can reject it with
// BadRequest instead of waiting forever for bytes that can never arrive.
func (c *Connection) ContentLengthExceedsBuffer() bool {
	return c.ContentLength > len(c.ReadBuf)-c.CheckedIdx
}

// ResetForKeepAlive clears the connection back to init() state for
// keep-alive reuse, matching HttpConnection::init() being called again
// after write() completes with linger_ == true. It zeroes the current
// read buffer and then calls Init, which allocates fresh read and write
// buffers.
func (c *Connection) ResetForKeepAlive() {
	docRoot := c.DocRoot
	c.ReadBuf = c.ReadBuf[:cap(c.ReadBuf)]
	for i := range c.ReadBuf {
		c.ReadBuf[i] = 0
	}
	c.Init(docRoot)
}
