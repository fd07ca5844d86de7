// Package logger implements the leveled logger with a synchronous or
// bounded-queue asynchronous sink, rotated daily and by line count.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "[DEBUG]"
	case Info:
		return "[INFO]"
	case Warn:
		return "[WARN]"
	case Error:
		return "[ERROR]"
	case Fatal:
		return "[FATAL]"
	default:
		return "[INFO]"
	}
}

// Logger writes leveled, rotated log lines either synchronously or through
// a bounded queue drained by a single goroutine.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	dir        string
	baseName   string
	splitLines int
	today      int
	count      int
	closed     bool

	async    bool
	queue    chan string
	drained  chan struct{}
	disabled bool
}

// Options configures a Logger.
type Options struct {
	// Path is the log file path, e.g. "./ServerLog/access.log". The
	// parent directory is created if missing.
	Path string
	// Async selects the bounded-queue sink over the synchronous one.
	Async bool
	// QueueSize bounds the async sink's queue (ignored when Async is false).
	QueueSize int
	// SplitLines rotates the file after this many lines, suffixing with
	// a numeric counter. Zero disables line-count rotation.
	SplitLines int
}

// New opens (creating directories as needed) the dated log file and, if
// Async is set, starts the drain goroutine.
func New(opts Options) (*Logger, error) {
	dir := filepath.Dir(opts.Path)
	base := filepath.Base(opts.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logger: create dir: %w", err)
		}
	} else {
		dir = ""
	}

	now := time.Now()
	l := &Logger{
		dir:        dir,
		baseName:   base,
		splitLines: opts.SplitLines,
		today:      now.Day(),
		async:      opts.Async,
	}

	f, err := os.OpenFile(l.datedName(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open: %w", err)
	}
	l.file = f

	if l.async {
		qsize := opts.QueueSize
		if qsize <= 0 {
			qsize = 2000
		}
		l.queue = make(chan string, qsize)
		l.drained = make(chan struct{})
		go l.drain()
	}

	return l, nil
}

func (l *Logger) datedName(t time.Time) string {
	stamp := fmt.Sprintf("%04d_%02d_%02d_", t.Year(), t.Month(), t.Day())
	if l.dir == "" {
		return stamp + l.baseName
	}
	return filepath.Join(l.dir, stamp+l.baseName)
}

// rotate must be called with mu held. It rolls the file when the day has
// changed or the line-count threshold was hit, matching the original's
// "suffix .N on overflow, fresh dated file at midnight" scheme.
func (l *Logger) rotate(t time.Time) {
	dayChanged := l.today != t.Day()
	lineOverflow := l.splitLines > 0 && l.count%l.splitLines == 0 && l.count > 0

	if !dayChanged && !lineOverflow {
		return
	}

	l.file.Close()

	var name string
	if dayChanged {
		name = l.datedName(t)
		l.today = t.Day()
		l.count = 0
	} else {
		name = fmt.Sprintf("%s.%d", l.datedName(t), l.count/l.splitLines)
	}

	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Fall back to stderr rather than panic; the next log line will
		// retry rotation.
		l.file = os.Stderr
		return
	}
	l.file = f
}

// Disable turns every subsequent log call into a no-op, matching the
// original's close_log config flag.
func (l *Logger) Disable() {
	l.mu.Lock()
	l.disabled = true
	l.mu.Unlock()
}

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.Lock()
	disabled := l.disabled
	l.mu.Unlock()
	if disabled {
		return
	}

	now := time.Now()
	msg := fmt.Sprintf("%s %s %s\n", now.Format("2006-01-02 15:04:05.000000"), level, fmt.Sprintf(format, args...))

	l.mu.Lock()
	l.rotate(now)
	l.count++
	l.mu.Unlock()

	if l.async {
		select {
		case l.queue <- msg:
		default:
			// Queue full: degrade to synchronous write rather than drop.
			l.writeSync(msg)
		}
		return
	}
	l.writeSync(msg)
}

func (l *Logger) writeSync(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.WriteString(msg)
	}
}

func (l *Logger) drain() {
	defer close(l.drained)
	for msg := range l.queue {
		l.writeSync(msg)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) {
	l.logf(Fatal, format, args...)
	l.Close()
	os.Exit(1)
}

// Close flushes and, for the async sink, waits for the drain goroutine to
// finish processing whatever was already queued.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if l.async {
		close(l.queue)
		<-l.drained
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
