// Package engine drives the event loop: the listen socket, the signal
// self-pipe, every accepted connection's socket and the idle-connection
// timer list all sit behind one poller.Poller, and a single goroutine's
// Wait/dispatch loop decides what to do with each readiness event (spec
// §4.I). It is the direct translation of WebServer::EventLoop.
package engine

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/tinyhttpd/internal/conn"
	"github.com/searchktools/tinyhttpd/internal/handler"
	"github.com/searchktools/tinyhttpd/internal/logger"
	"github.com/searchktools/tinyhttpd/internal/poller"
	"github.com/searchktools/tinyhttpd/internal/signalbridge"
	"github.com/searchktools/tinyhttpd/internal/timer"
	"github.com/searchktools/tinyhttpd/internal/workerpool"
)

// ActorModel selects which thread does the socket I/O, matching the
// original's actor_model config value.
type ActorModel int

const (
	// Proactor: the loop goroutine performs the read/write syscall
	// itself and only hands request *processing* to a worker.
	Proactor ActorModel = iota
	// Reactor: the loop goroutine hands the whole read-or-write off to
	// a worker and waits for it to finish before touching the
	// descriptor again.
	Reactor
)

// Config configures one Engine. Zero-value Trigger fields mean
// level-triggered; zero-value Actor means Proactor.
type Config struct {
	Addr string

	ListenTrigger poller.Trigger
	ConnTrigger   poller.Trigger
	Actor         ActorModel

	DocRoot    string
	OptLinger  bool
	Workers    int
	QueueSize  int
	Timeslot   time.Duration
	ConnExpiry time.Duration

	Log        *logger.Logger
	Dispatcher *handler.Dispatcher
}

// Engine owns the listen socket, the connection table, the idle timer
// list and the worker pool for one running server instance.
type Engine struct {
	cfg Config

	listenFD int
	pl       poller.Poller
	table    *conn.Table
	timers   *timer.List
	bridge   *signalbridge.Bridge
	pool     *workerpool.Pool

	stop  chan struct{}
	ready chan struct{}
}

// New wires an Engine's collaborators but does not bind or listen yet;
// call Run to start serving.
func New(cfg Config) (*Engine, error) {
	pl, err := poller.New()
	if err != nil {
		return nil, fmt.Errorf("engine: create poller: %w", err)
	}
	bridge, err := signalbridge.New()
	if err != nil {
		pl.Close()
		return nil, fmt.Errorf("engine: create signal bridge: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.Timeslot <= 0 {
		cfg.Timeslot = 5 * time.Second
	}
	if cfg.ConnExpiry <= 0 {
		cfg.ConnExpiry = 3 * cfg.Timeslot
	}

	return &Engine{
		cfg:      cfg,
		listenFD: -1,
		pl:       pl,
		table:    conn.NewTable(),
		timers:   timer.New(),
		bridge:   bridge,
		pool:     workerpool.New(cfg.Workers, cfg.QueueSize),
		stop:     make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// LocalAddr blocks until the listen socket is bound (Run has been
// called) and reports the address it bound to — useful for tests that
// ask for an ephemeral port.
func (e *Engine) LocalAddr() (*net.TCPAddr, error) {
	<-e.ready
	sa, err := unix.Getsockname(e.listenFD)
	if err != nil {
		return nil, err
	}
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	default:
		return nil, fmt.Errorf("engine: unexpected sockaddr type %T", sa)
	}
}

// Run binds the listen socket and blocks serving connections until
// Stop is called or a SIGTERM arrives over the signal bridge.
func (e *Engine) Run() error {
	if err := e.listen(); err != nil {
		return err
	}
	defer unix.Close(e.listenFD)
	defer e.pl.Close()
	defer e.bridge.Close()
	defer e.pool.Close()

	if err := e.pl.Add(e.listenFD, e.cfg.ListenTrigger, false); err != nil {
		return fmt.Errorf("engine: register listen fd: %w", err)
	}
	if err := e.pl.Add(e.bridge.ReadFD(), poller.LevelTriggered, false); err != nil {
		return fmt.Errorf("engine: register signal fd: %w", err)
	}
	close(e.ready)

	stopAlarm := e.startAlarmClock()
	defer close(stopAlarm)

	events := make([]poller.Event, 0, poller.MaxEvents)
	for {
		select {
		case <-e.stop:
			return nil
		default:
		}

		evs, err := e.pl.Wait(events, 1000)
		if err != nil {
			return fmt.Errorf("engine: poll: %w", err)
		}

		alarmed := false
		for _, ev := range evs {
			switch ev.Fd {
			case e.listenFD:
				e.acceptAll()
			case e.bridge.ReadFD():
				timeout, stopSig, derr := e.bridge.Drain()
				if derr != nil {
					e.cfg.Log.Errorf("signal bridge drain: %v", derr)
					continue
				}
				if timeout {
					alarmed = true
				}
				if stopSig {
					return nil
				}
			default:
				e.dispatch(ev)
			}
		}

		if alarmed {
			e.timers.Tick(time.Now())
		}
	}
}

// Stop requests the loop exit at its next iteration. Safe to call from
// any goroutine.
func (e *Engine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

func (e *Engine) startAlarmClock() chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.cfg.Timeslot)
		defer ticker.Stop()
		pid := os.Getpid()
		for {
			select {
			case <-ticker.C:
				unix.Kill(pid, syscall.SIGALRM)
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func (e *Engine) dispatch(ev poller.Event) {
	slot := e.table.Get(ev.Fd)
	if slot == nil {
		return
	}
	if ev.Closed {
		e.closeConn(ev.Fd)
		return
	}
	if ev.Readable {
		e.handleRead(slot)
	}
	if ev.Writable {
		e.handleWrite(slot)
	}
}
