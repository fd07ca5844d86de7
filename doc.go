/*
Package tinyhttpd is an epoll/kqueue-driven HTTP/1.1 server: one event
loop thread multiplexes the listen socket, a signal self-pipe and every
accepted connection through a single poller, handing request work off
to a bounded worker pool under either of two dispatch disciplines
(Proactor or Reactor).

Features

  - Edge- or level-triggered readiness via golang.org/x/sys/unix (epoll
    on Linux, kqueue on Darwin), with one-shot rearm serializing each
    descriptor's read/write pair across worker goroutines
  - Incremental HTTP/1.1 request parsing driven by a three-state FSM
    (request line, headers, content) over a line sub-FSM that rewrites
    CRLF to NUL in place
  - Scatter/gather response emission: a small header buffer plus an
    mmap'd file body over a single writev(2) call, tracked across
    partial writes
  - A sorted, handle-addressed timer list reaping idle connections on a
    periodic SIGALRM delivered through the same self-pipe as SIGTERM
  - A write-through users cache in front of a MySQL-backed user table
  - Leveled logging with a synchronous or bounded-queue asynchronous
    sink, rotated daily and by line count

Modules

  - app: process lifecycle (start the engine, stop cleanly on signal)
  - config: CLI flag and key/value file configuration loading
  - internal/engine: the event loop
  - internal/poller: the epoll/kqueue facade
  - internal/conn: the descriptor-indexed connection table
  - internal/httpfsm: the HTTP parser and response emitter
  - internal/handler: URL dispatch and the login/register CGI branches
  - internal/users: the in-memory credential cache
  - internal/db: the MySQL-backed storage layer
  - internal/timer: the idle-connection expiry list
  - internal/signalbridge: the signal-to-self-pipe translator
  - internal/workerpool: the bounded worker pool
  - internal/logger: leveled, rotated logging
  - internal/runtimetune: GC tuning for a connection-heavy workload

Quick Start

	go run ./cmd/server -p 9006 -d ./root -dsn "user:pass@tcp(127.0.0.1:3306)/tinyhttpd"
*/
package tinyhttpd
