package handlers

import (
	"slices"
	"sync"
	"time"
)

// latencyWindow keeps the most recent n samples in a ring.
type latencyWindow struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

func newLatencyWindow(n int) *latencyWindow {
	if n <= 0 {
		n = 1
	}
	return &latencyWindow{samples: make([]time.Duration, n)}
}

func (w *latencyWindow) record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = d
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// percentiles returns p50, p99 and p99.9 in milliseconds.
func (w *latencyWindow) percentiles() (p50, p99, p999 float64) {
	w.mu.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	sorted := slices.Clone(w.samples[:n])
	w.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	slices.Sort(sorted)

	at := func(q float64) float64 {
		i := min(int(float64(len(sorted))*q), len(sorted)-1)
		return float64(sorted[i].Nanoseconds()) / 1e6
	}
	return at(0.50), at(0.99), at(0.999)
}
