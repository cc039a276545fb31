// Package termio decouples terminal output from the receive loop: writes
// are queued and flushed by a background goroutine.
package termio

import (
	"io"
	"sync"
)

const queueDepth = 1024

// Writer queues writes to an underlying io.Writer.
type Writer struct {
	out  io.Writer
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NewWriter starts a background flusher for out.
func NewWriter(out io.Writer) *Writer {
	w := &Writer{
		out:  out,
		ch:   make(chan []byte, queueDepth),
		done: make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for buf := range w.ch {
			_, _ = w.out.Write(buf)
		}
	}()
	return w
}

// Write copies p onto the queue. It blocks only when the queue is full.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	w.ch <- buf
	return len(p), nil
}

// Close flushes queued writes and stops the flusher. Writing after Close
// panics.
func (w *Writer) Close() error {
	w.once.Do(func() {
		close(w.ch)
	})
	<-w.done
	return nil
}
