// Package health carries the daemon's degradation counters. Every condition
// the status query must surface (dropped events, store failure streak,
// enrichment availability, collector liveness) is recorded here instead of
// terminating the process.
package health

import (
	"sync"
	"sync/atomic"
	"time"
)

type Health struct {
	startTS int64

	droppedEvents   atomic.Uint64
	storeFailures   atomic.Uint64
	storeFailStreak atomic.Int64
	enrichAvailable atomic.Bool

	mu         sync.Mutex
	lastSample map[string]int64
}

func New() *Health {
	return &Health{
		startTS:    time.Now().Unix(),
		lastSample: make(map[string]int64),
	}
}

func (h *Health) UptimeSeconds() int64 {
	return time.Now().Unix() - h.startTS
}

func (h *Health) EventDropped() {
	h.droppedEvents.Add(1)
}

func (h *Health) StoreWriteFailed() {
	h.storeFailures.Add(1)
	h.storeFailStreak.Add(1)
}

func (h *Health) StoreWriteOK() {
	h.storeFailStreak.Store(0)
}

func (h *Health) SetEnrichmentAvailable(ok bool) {
	h.enrichAvailable.Store(ok)
}

// MarkSample records that the named collector completed a tick.
func (h *Health) MarkSample(collector string) {
	h.mu.Lock()
	h.lastSample[collector] = time.Now().Unix()
	h.mu.Unlock()
}

type Snapshot struct {
	UptimeSeconds       int64
	DroppedEvents       uint64
	StoreFailures       uint64
	StoreFailureStreak  int64
	EnrichmentAvailable bool
	LastSample          map[string]int64
}

func (h *Health) Snapshot() Snapshot {
	h.mu.Lock()
	last := make(map[string]int64, len(h.lastSample))
	for k, v := range h.lastSample {
		last[k] = v
	}
	h.mu.Unlock()

	return Snapshot{
		UptimeSeconds:       h.UptimeSeconds(),
		DroppedEvents:       h.droppedEvents.Load(),
		StoreFailures:       h.storeFailures.Load(),
		StoreFailureStreak:  h.storeFailStreak.Load(),
		EnrichmentAvailable: h.enrichAvailable.Load(),
		LastSample:          last,
	}
}

// Degraded reports whether any counter indicates the daemon is not fully
// healthy. The status response must never report healthy while these hold.
func (s Snapshot) Degraded() bool {
	return s.DroppedEvents > 0 || s.StoreFailureStreak > 0
}
