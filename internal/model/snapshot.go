package model

// ProcessSample is one entry in a snapshot's top-consumer list.
type ProcessSample struct {
	Name       string  `json:"name"`
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu,omitempty"`
	MemoryMB   uint64  `json:"memory_mb,omitempty"`
}

// CPUSnapshot is the evidence payload for cpu_high events. RawPercent keeps
// the unclamped value, which can exceed 100 with multi-core accounting.
type CPUSnapshot struct {
	CPUPercent float64        `json:"cpu_percent"`
	RawPercent float64        `json:"raw_percent"`
	Threshold  float64        `json:"threshold"`
	Sustained  bool           `json:"sustained"`
	TopProcess *ProcessSample `json:"top_process,omitempty"`
}

// MemorySnapshot is the evidence payload for memory_high events.
type MemorySnapshot struct {
	MemoryPercent float64         `json:"memory_percent"`
	UsedMB        uint64          `json:"used_mb"`
	TotalMB       uint64          `json:"total_mb"`
	Threshold     float64         `json:"threshold"`
	TopProcesses  []ProcessSample `json:"top_processes,omitempty"`
}

// Suggestion is the enrichment result attached under the snapshot's
// "suggestion" key.
type Suggestion struct {
	Analysis  string `json:"analysis"`
	Source    string `json:"source"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}
