// Package ipc defines the request/response envelopes exchanged over the
// daemon's unix socket: one JSON request per connection, one JSON response
// back, newline-terminated.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/Leptons1618/sia-proto/internal/model"
	"github.com/Leptons1618/sia-proto/internal/storage"
)

const (
	MethodStatus  = "status"
	MethodList    = "list"
	MethodShow    = "show"
	MethodAnalyze = "analyze"
)

// Error codes carried in failure responses so clients can distinguish a
// missing event from a malformed request or a backend failure.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeStoreError  = "store_error"
	CodeUnreachable = "unreachable"
	CodeTimeout     = "timeout"
	CodeMalformed   = "malformed_response"
)

type Request struct {
	Method  string `json:"method"`
	Limit   *int   `json:"limit,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type ErrorData struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CollectorStatus struct {
	State        string `json:"state"`
	LastSampleTS int64  `json:"last_sample_ts,omitempty"`
}

type EnrichmentStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
}

type ThresholdsStatus struct {
	CPUWarning        float64 `json:"cpu_warning"`
	CPUCritical       float64 `json:"cpu_critical"`
	MemoryWarning     float64 `json:"memory_warning"`
	MemoryCritical    float64 `json:"memory_critical"`
	CPUSustainedCount int     `json:"cpu_sustained_count"`
}

type StatusData struct {
	Status             string                     `json:"status"`
	UptimeSeconds      int64                      `json:"uptime_seconds"`
	Collectors         map[string]CollectorStatus `json:"collectors"`
	Events             storage.Counts             `json:"events"`
	Thresholds         ThresholdsStatus           `json:"thresholds"`
	Enrichment         EnrichmentStatus           `json:"enrichment"`
	DroppedEvents      uint64                     `json:"dropped_events"`
	StoreFailureStreak int64                      `json:"store_failure_streak"`
}

type ListData struct {
	Events []EventSummary `json:"events"`
}

type EventSummary struct {
	EventID  string `json:"event_id"`
	TS       int64  `json:"ts"`
	Severity string `json:"severity"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

type EventDetail struct {
	EventID     string          `json:"event_id"`
	TS          int64           `json:"ts"`
	Severity    string          `json:"severity"`
	Type        string          `json:"type"`
	ServiceID   string          `json:"service_id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Status      string          `json:"status"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
}

type AnalyzeData struct {
	EventID    string           `json:"event_id"`
	Suggestion model.Suggestion `json:"suggestion"`
}

// OK builds a success response. Marshal failures of our own payload types
// indicate a programming error, so they panic.
func OK(v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Response{Success: true, Data: b}
}

func Errorf(code, format string, args ...any) Response {
	b, err := json.Marshal(ErrorData{Error: fmt.Sprintf(format, args...), Code: code})
	if err != nil {
		panic(err)
	}
	return Response{Success: false, Data: b}
}

// ErrorData decodes the error payload of a failure response.
func (r Response) ErrorData() ErrorData {
	var ed ErrorData
	_ = json.Unmarshal(r.Data, &ed)
	if ed.Error == "" {
		ed.Error = "unknown error"
	}
	return ed
}
