package signalbridge

import (
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

func TestDrainClassifiesBufferedSignals(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	unix.Write(b.writeFD, []byte{byte(syscall.SIGALRM), byte(syscall.SIGTERM)})

	timeout, stop, err := b.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !timeout {
		t.Error("expected timeout to be reported")
	}
	if !stop {
		t.Error("expected stop to be reported")
	}
}

func TestDrainEmptyPipeIsNotAnError(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	timeout, stop, err := b.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if timeout || stop {
		t.Error("expected no signals reported on an empty pipe")
	}
}

func TestReadFDMatchesPipeReadEnd(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if b.ReadFD() != b.readFD {
		t.Error("ReadFD should expose the pipe's read end")
	}
}
