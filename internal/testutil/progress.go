// Package testutil provides test utilities shared by the operation and
// client tests: a progress recorder and a mock public share server.
package testutil

import (
	"sync"
)

// ProgressUpdate represents a single progress callback invocation.
type ProgressUpdate struct {
	Bytes int64
	Total int64
}

// ProgressRecorder records progress callback invocations for assertions.
type ProgressRecorder struct {
	mu      sync.Mutex
	Updates []ProgressUpdate
}

// Callback returns a progress function recording into the recorder.
func (r *ProgressRecorder) Callback() func(bytes, total int64) {
	return func(bytes, total int64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.Updates = append(r.Updates, ProgressUpdate{Bytes: bytes, Total: total})
	}
}

// TotalBytes sums the bytes of all recorded updates.
func (r *ProgressRecorder) TotalBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, u := range r.Updates {
		sum += u.Bytes
	}
	return sum
}
