package engine

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/searchktools/tinyhttpd/internal/handler"
	"github.com/searchktools/tinyhttpd/internal/logger"
	"github.com/searchktools/tinyhttpd/internal/poller"
	"github.com/searchktools/tinyhttpd/internal/users"
)

func startTestEngine(t *testing.T, actor ActorModel) (*Engine, *net.TCPAddr) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "judge.html"), []byte("hello-engine"), 0o644); err != nil {
		t.Fatal(err)
	}

	log, err := logger.New(logger.Options{Path: filepath.Join(dir, "log", "test")})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	eng, err := New(Config{
		Addr:          "127.0.0.1:0",
		ListenTrigger: poller.LevelTriggered,
		ConnTrigger:   poller.LevelTriggered,
		Actor:         actor,
		DocRoot:       dir,
		Workers:       2,
		Timeslot:      50 * time.Millisecond,
		Log:           log,
		Dispatcher:    &handler.Dispatcher{DocRoot: dir, Users: users.New()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run() }()
	t.Cleanup(func() {
		eng.Stop()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop in time")
		}
	})

	addr, err := eng.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	return eng, addr
}

func TestEngineServesRootRewrite(t *testing.T) {
	_, addr := startTestEngine(t, Proactor)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.Contains(status, "200") {
		t.Fatalf("expected a 200 status line, got %q", status)
	}
}

func TestEngineReactorModeServesRequests(t *testing.T) {
	_, addr := startTestEngine(t, Reactor)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /judge.html HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.Contains(status, "200") {
		t.Fatalf("expected a 200 status line, got %q", status)
	}
}

func TestEngineUnknownPathReturns404(t *testing.T) {
	_, addr := startTestEngine(t, Proactor)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /does-not-exist.html HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.Contains(status, "404") {
		t.Fatalf("expected a 404 status line, got %q", status)
	}
}
