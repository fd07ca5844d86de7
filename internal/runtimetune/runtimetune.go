// Package runtimetune applies GC tuning suited to a long-running,
// connection-heavy server: fewer, larger collections rather than the
// default's frequent small ones, since every accepted connection pins
// a read buffer and (while a file is being served) an mmap'd region
// that the collector gains nothing from scanning aggressively.
package runtimetune

import (
	"runtime"
	"runtime/debug"
)

// Config holds GC tuning parameters.
type Config struct {
	// GOGC sets the garbage collection target percentage. Default is
	// 100; lower is more frequent GC with less peak memory.
	GOGC int
	// MinRetainExtra is the size in bytes of a one-off allocation Apply
	// makes right after a forced GC. No reference to it is kept, so the
	// memory is not retained once Apply returns.
	MinRetainExtra int64
}

// ForThroughput returns GC settings favoring fewer collections over
// peak memory, appropriate for the default Proactor/epoll deployment.
func ForThroughput() Config {
	return Config{GOGC: 300, MinRetainExtra: 64 << 20}
}

// Apply tunes the garbage collector per cfg.
func Apply(cfg Config) {
	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
	if cfg.MinRetainExtra > 0 {
		runtime.GC()
		_ = make([]byte, cfg.MinRetainExtra)
	}
}
