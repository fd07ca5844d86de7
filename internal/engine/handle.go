package engine

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/tinyhttpd/internal/conn"
	"github.com/searchktools/tinyhttpd/internal/httpfsm"
	"github.com/searchktools/tinyhttpd/internal/poller"
)

// handleRead services one readable descriptor, branching on the
// configured ActorModel exactly as HandleRead does: Proactor performs
// the recv on the loop goroutine and hands processing to a worker;
// Reactor hands the recv itself to a worker and waits for it, standing
// in for the original's improv spin-wait with a blocking channel
// receive instead of a busy loop.
func (e *Engine) handleRead(slot *conn.Slot) {
	edge := slot.Trigger == poller.EdgeTriggered

	if e.cfg.Actor == Reactor {
		var ok bool
		var err error
		done := make(chan struct{})
		subErr := e.pool.Submit(func() {
			ok, err = slot.HTTP.ReadOnce(slot.FD, edge)
			if ok {
				e.process(slot)
			}
			close(done)
		})
		if subErr != nil {
			e.cfg.Log.Warnf("reactor read queue full for fd %d", slot.FD)
			return
		}
		<-done
		e.afterRead(slot, ok, err)
		return
	}

	ok, err := slot.HTTP.ReadOnce(slot.FD, edge)
	e.afterRead(slot, ok, err)
	if ok {
		if subErr := e.pool.Submit(func() { e.process(slot) }); subErr != nil {
			e.cfg.Log.Warnf("proactor process queue full for fd %d", slot.FD)
			e.closeConn(slot.FD)
		}
	}
}

func (e *Engine) afterRead(slot *conn.Slot, ok bool, err error) {
	if err != nil || !ok {
		e.closeConn(slot.FD)
		return
	}
	if slot.Timer != 0 {
		e.timers.Adjust(slot.Timer, time.Now().Add(e.cfg.ConnExpiry))
	}
}

// process runs the parser FSM to completion (if enough bytes are
// buffered), dispatches a fully parsed request through the handler and
// builds the response, or rearms the descriptor for more reading.
func (e *Engine) process(slot *conn.Slot) {
	outcome := slot.HTTP.ProcessRead()

	switch outcome {
	case httpfsm.NoRequest:
		e.pl.Mod(slot.FD, poller.Readable, slot.Trigger, true)
		return
	case httpfsm.GetRequest:
		outcome = e.cfg.Dispatcher.Handle(&slot.HTTP)
	case httpfsm.BadRequest:
		// already a final outcome
	default:
		outcome = httpfsm.InternalError
	}

	slot.HTTP.BuildResponse(outcome)
	slot.State = 1
	e.pl.Mod(slot.FD, poller.Writable, slot.Trigger, true)
}

// handleWrite services one writable descriptor, symmetric to
// handleRead's Proactor/Reactor split.
func (e *Engine) handleWrite(slot *conn.Slot) {
	if e.cfg.Actor == Reactor {
		var done bool
		var err error
		waitCh := make(chan struct{})
		subErr := e.pool.Submit(func() {
			done, err = slot.HTTP.Write(slot.FD)
			close(waitCh)
		})
		if subErr != nil {
			e.cfg.Log.Warnf("reactor write queue full for fd %d", slot.FD)
			return
		}
		<-waitCh
		e.afterWrite(slot, done, err)
		return
	}

	done, err := slot.HTTP.Write(slot.FD)
	e.afterWrite(slot, done, err)
}

func (e *Engine) afterWrite(slot *conn.Slot, done bool, err error) {
	if err != nil {
		e.closeConn(slot.FD)
		return
	}
	if slot.Timer != 0 {
		e.timers.Adjust(slot.Timer, time.Now().Add(e.cfg.ConnExpiry))
	}
	if !done {
		e.pl.Mod(slot.FD, poller.Writable, slot.Trigger, true)
		return
	}

	if slot.HTTP.KeepAlive {
		slot.HTTP.ResetForKeepAlive()
		slot.State = 0
		e.pl.Mod(slot.FD, poller.Readable, slot.Trigger, true)
		return
	}
	e.closeConn(slot.FD)
}

// closeConn tears a connection down: unregister from the poller,
// cancel its idle timer, close the socket and free its slot. Safe to
// call more than once for the same fd.
func (e *Engine) closeConn(fd int) {
	slot := e.table.Get(fd)
	if slot == nil {
		return
	}
	e.pl.Del(fd)
	if slot.Timer != 0 {
		e.timers.Remove(slot.Timer)
	}
	unix.Close(fd)
	e.table.Release(fd)
}
