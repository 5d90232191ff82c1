// Package bytecounter wraps an io.Writer to track how many bytes and
// write errors have gone out over it. debugserver wraps each connected
// client's connection in one; the live stats push is a best-effort side
// channel, not part of the real-time core.
package bytecounter

import (
	"io"
	"sync/atomic"
)

// ByteCounter is an io.Writer wrapper that counts bytes written and write
// errors. It does not wrap reads: the debug push side channel is
// write-only from the session's point of view.
type ByteCounter struct {
	w *atomicCounter
}

type atomicCounter struct {
	w      io.Writer
	sent   uint64
	errors uint64
}

// New wraps w, counting bytes written and write errors against two
// freshly allocated atomic counters.
func New(w io.Writer) *ByteCounter {
	return &ByteCounter{w: &atomicCounter{w: w}}
}

// Write implements io.Writer.
func (bc *ByteCounter) Write(p []byte) (int, error) {
	n, err := bc.w.w.Write(p)
	if err != nil {
		atomic.AddUint64(&bc.w.errors, 1)
		return n, err
	}
	atomic.AddUint64(&bc.w.sent, uint64(n))
	return n, nil
}

// BytesSent returns the number of bytes successfully written so far.
func (bc *ByteCounter) BytesSent() uint64 {
	return atomic.LoadUint64(&bc.w.sent)
}

// WriteErrors returns the number of failed writes so far.
func (bc *ByteCounter) WriteErrors() uint64 {
	return atomic.LoadUint64(&bc.w.errors)
}
