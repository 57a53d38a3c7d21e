// Package utils holds small helpers shared by the CLI entrypoint.
package utils

import (
	"io"
	"slices"
	"sync"
)

// DeferredWriter holds writes until Flush is called. It keeps log output
// away from the terminal while a full screen program owns it.
//
// Each Write is replayed as its own Write so line oriented writers such as
// zerolog.ConsoleWriter see one event per call.
type DeferredWriter struct {
	mu      sync.Mutex
	entries [][]byte
}

// Write records a copy of p.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, slices.Clone(p))
	return len(p), nil
}

// Len returns the number of held writes.
func (d *DeferredWriter) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Flush replays the held writes to w in order and forgets them.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}
