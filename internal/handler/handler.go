// Package handler implements the digit-prefixed URL dispatch table and
// the login/register CGI branches (spec §4.F), resolving a parsed
// request down to either a static file to map and serve or a cache/DB
// lookup outcome.
package handler

import (
	"path/filepath"
	"strings"

	"github.com/searchktools/tinyhttpd/internal/httpfsm"
	"github.com/searchktools/tinyhttpd/internal/users"
)

// Dispatcher resolves a parsed request's URL to a response outcome. It
// is stateless apart from the document root and the shared users cache,
// so one Dispatcher is safe to share across every worker.
type Dispatcher struct {
	DocRoot string
	Users   *users.Store
	Persist users.Persist
}

// Handle maps conn.URL through the dispatch table and leaves the
// connection ready for BuildResponse: either FileRequest with FileMap
// populated, or one of the error outcomes.
func (d *Dispatcher) Handle(conn *httpfsm.Connection) httpfsm.Outcome {
	url := conn.URL
	if len(url) < 2 || url[0] != '/' {
		return conn.MapFile(d.resolve(url))
	}

	switch url[1] {
	case '0':
		return conn.MapFile(d.resolve("/register.html"))
	case '1':
		return conn.MapFile(d.resolve("/log.html"))
	case '2':
		return d.loginCheck(conn)
	case '3':
		return d.registerCheck(conn)
	case '5':
		return conn.MapFile(d.resolve("/picture.html"))
	case '6':
		return conn.MapFile(d.resolve("/video.html"))
	case '7':
		return conn.MapFile(d.resolve("/fans.html"))
	default:
		return conn.MapFile(d.resolve(url))
	}
}

func (d *Dispatcher) resolve(url string) string {
	return filepath.Join(d.DocRoot, filepath.Clean("/"+strings.TrimPrefix(url, "/")))
}

func (d *Dispatcher) loginCheck(conn *httpfsm.Connection) httpfsm.Outcome {
	name, password, ok := decodeCredentials(conn.Body)
	if ok && d.Users.Check(name, password) {
		return conn.MapFile(d.resolve("/welcome.html"))
	}
	return conn.MapFile(d.resolve("/logError.html"))
}

func (d *Dispatcher) registerCheck(conn *httpfsm.Connection) httpfsm.Outcome {
	name, password, ok := decodeCredentials(conn.Body)
	if !ok || d.Persist == nil {
		return conn.MapFile(d.resolve("/registerError.html"))
	}
	registered, err := d.Users.Register(d.Persist, name, password)
	if err != nil || !registered {
		return conn.MapFile(d.resolve("/registerError.html"))
	}
	return conn.MapFile(d.resolve("/log.html"))
}

// decodeCredentials reads the POST body as "user=<name>&<passfield>=<pw>"
// by fixed offset rather than a general form parser: it assumes exactly
// that field order, just as the code it replicates does. The password
// field name accepts both "password" (the original's field name) and
// "passwd" (the field name used elsewhere); anything else, or a body
// that doesn't match the "user="-first shape, is rejected rather than
// partially parsed.
func decodeCredentials(body string) (name, password string, ok bool) {
	const userPrefix = "user="

	if !strings.HasPrefix(body, userPrefix) {
		return "", "", false
	}
	rest := body[len(userPrefix):]

	amp := strings.IndexByte(rest, '&')
	if amp < 0 {
		return "", "", false
	}
	name = rest[:amp]

	after := rest[amp:]
	for _, passPrefix := range [...]string{"&password=", "&passwd="} {
		if strings.HasPrefix(after, passPrefix) {
			return name, after[len(passPrefix):], true
		}
	}
	return "", "", false
}
