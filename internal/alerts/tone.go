package alerts

import (
	"fmt"
	"io"
	"sync"
)

// Tone plays the dashboard's audible cue.
type Tone interface {
	Play() error
}

// BellTone rings the terminal bell on w.
type BellTone struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellTone creates a BellTone.
func NewBellTone(w io.Writer) *BellTone {
	return &BellTone{w: w}
}

// Play implements Tone.
func (b *BellTone) Play() error {
	if b == nil || b.w == nil {
		return fmt.Errorf("alerts: no audio output")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}

// ToneFunc adapts a function to Tone.
type ToneFunc func() error

// Play implements Tone.
func (f ToneFunc) Play() error { return f() }
