package model

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

const (
	TypeCPUHigh    = "cpu_high"
	TypeMemoryHigh = "memory_high"
)

const (
	// ServiceSystem marks host-wide events not scoped to a single process.
	ServiceSystem = "system"

	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Event is a detected threshold condition. Created by the analyzer on receipt
// from the pipeline; only the resolve operation mutates it afterwards.
type Event struct {
	EventID     string          `json:"event_id"`
	TS          int64           `json:"ts"` // unix seconds, collector-assigned
	Severity    Severity        `json:"severity"`
	Type        string          `json:"type"`
	ServiceID   string          `json:"service_id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
	Status      string          `json:"status"`
}

var lastIDSuffix atomic.Int64

// NewEventID returns "<prefix>_<millis>". The suffix is strictly increasing
// across all collectors, so two samples in the same millisecond still get
// distinct ids.
func NewEventID(prefix string) string {
	now := time.Now().UnixMilli()
	for {
		last := lastIDSuffix.Load()
		if now <= last {
			now = last + 1
		}
		if lastIDSuffix.CompareAndSwap(last, now) {
			return fmt.Sprintf("%s_%d", prefix, now)
		}
	}
}

// Fingerprint is a stable key correlating recurring instances of the same
// condition on the same service.
func Fingerprint(eventType, serviceID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(eventType))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(serviceID))
	return fmt.Sprintf("%016x", h.Sum64())
}
