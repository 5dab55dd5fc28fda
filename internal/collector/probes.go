package collector

import (
	"context"
	"encoding/json"

	"github.com/Leptons1618/sia-proto/internal/metrics"
	"github.com/Leptons1618/sia-proto/internal/model"
)

// memoryTopN bounds the top-consumer list attached to memory snapshots.
const memoryTopN = 10

type CPUProbe struct {
	sampler metrics.Sampler
}

func NewCPUProbe(s metrics.Sampler) *CPUProbe { return &CPUProbe{sampler: s} }

func (p *CPUProbe) Name() string      { return "cpu" }
func (p *CPUProbe) EventType() string { return model.TypeCPUHigh }
func (p *CPUProbe) IDPrefix() string  { return "cpu" }

func (p *CPUProbe) Utilization(ctx context.Context) (float64, error) {
	return p.sampler.CPUPercent(ctx)
}

func (p *CPUProbe) Snapshot(ctx context.Context, raw float64, threshold float64, sustained bool) ([]byte, error) {
	// Multi-core accounting can push the raw value past 100; the reported
	// percentage is clamped, the raw value is preserved as evidence.
	clamped := raw
	if clamped > 100 {
		clamped = 100
	}
	snap := model.CPUSnapshot{
		CPUPercent: clamped,
		RawPercent: raw,
		Threshold:  threshold,
		Sustained:  sustained,
	}
	if top, err := p.sampler.TopCPUProcess(ctx); err == nil {
		snap.TopProcess = top
	}
	return json.Marshal(snap)
}

type MemoryProbe struct {
	sampler metrics.Sampler

	// last holds the memory sample from the current tick so Snapshot does
	// not re-read counters that may have moved since the breach was seen.
	last metrics.MemorySample
}

func NewMemoryProbe(s metrics.Sampler) *MemoryProbe { return &MemoryProbe{sampler: s} }

func (p *MemoryProbe) Name() string      { return "memory" }
func (p *MemoryProbe) EventType() string { return model.TypeMemoryHigh }
func (p *MemoryProbe) IDPrefix() string  { return "mem" }

func (p *MemoryProbe) Utilization(ctx context.Context) (float64, error) {
	sample, err := p.sampler.Memory(ctx)
	if err != nil {
		return 0, err
	}
	p.last = sample
	return sample.UsedPercent, nil
}

func (p *MemoryProbe) Snapshot(ctx context.Context, raw float64, threshold float64, sustained bool) ([]byte, error) {
	snap := model.MemorySnapshot{
		MemoryPercent: raw,
		UsedMB:        p.last.UsedMB,
		TotalMB:       p.last.TotalMB,
		Threshold:     threshold,
	}
	if procs, err := p.sampler.TopMemoryProcesses(ctx, memoryTopN); err == nil {
		snap.TopProcesses = procs
	}
	return json.Marshal(snap)
}
