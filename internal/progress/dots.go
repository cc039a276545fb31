package progress

import (
	"io"
)

// Dots prints one '.' per received datagram.
type Dots struct {
	w io.Writer
}

// NewDots returns a Dots writing to w. A nil w disables output.
func NewDots(w io.Writer) *Dots {
	return &Dots{w: w}
}

// Tick prints a single dot. Write errors are ignored; progress output is
// best effort.
func (d *Dots) Tick() {
	if d == nil || d.w == nil {
		return
	}
	_, _ = d.w.Write([]byte{'.'})
}

// Finish terminates the line of dots.
func (d *Dots) Finish() {
	if d == nil || d.w == nil {
		return
	}
	_, _ = d.w.Write([]byte{'\n'})
}
