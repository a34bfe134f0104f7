// Package utils holds small helpers shared by the shoppulse binary.
package utils

import (
	"io"
	"sync"
)

// DeferredWriter buffers writes so they can be replayed later, for example
// after a full-screen program has released the terminal. Each Write is kept as
// a separate record because zerolog writers expect one event per call.
type DeferredWriter struct {
	mu      sync.Mutex
	records [][]byte
}

func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = append(d.records, append([]byte(nil), p...))
	return len(p), nil
}

// Flush replays every buffered record to w in order and empties the buffer.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	records := d.records
	d.records = nil
	d.mu.Unlock()

	for _, r := range records {
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
