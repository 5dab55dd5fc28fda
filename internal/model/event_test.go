package model

import (
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestNewEventIDUnique(t *testing.T) {
	const n = 1000
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/4; j++ {
				id := NewEventID("cpu")
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate event id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestNewEventIDFormat(t *testing.T) {
	id := NewEventID("mem")
	prefix, suffix, ok := strings.Cut(id, "_")
	if !ok {
		t.Fatalf("id %q missing separator", id)
	}
	if prefix != "mem" {
		t.Fatalf("prefix = %q, want mem", prefix)
	}
	if _, err := strconv.ParseInt(suffix, 10, 64); err != nil {
		t.Fatalf("suffix %q is not numeric: %v", suffix, err)
	}
}

func TestNewEventIDMonotonic(t *testing.T) {
	prev := int64(0)
	for i := 0; i < 100; i++ {
		id := NewEventID("cpu")
		_, suffix, _ := strings.Cut(id, "_")
		n, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			t.Fatalf("parse suffix: %v", err)
		}
		if n <= prev {
			t.Fatalf("suffix %d not greater than previous %d", n, prev)
		}
		prev = n
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(TypeCPUHigh, ServiceSystem)
	b := Fingerprint(TypeCPUHigh, ServiceSystem)
	if a != b {
		t.Fatalf("fingerprint not stable: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(a))
	}
	if c := Fingerprint(TypeMemoryHigh, ServiceSystem); c == a {
		t.Fatalf("different types produced the same fingerprint %s", c)
	}
	if d := Fingerprint(TypeCPUHigh, "web"); d == a {
		t.Fatalf("different services produced the same fingerprint %s", d)
	}
}
