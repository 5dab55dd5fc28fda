// Package metrics reads raw utilization from the OS. It is the only package
// touching gopsutil; everything above it consumes plain numbers.
package metrics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Leptons1618/sia-proto/internal/model"
)

type MemorySample struct {
	UsedPercent float64
	UsedMB      uint64
	TotalMB     uint64
}

// Sampler reads host utilization. Implemented by HostSampler; faked in
// collector tests.
type Sampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (MemorySample, error)
	TopCPUProcess(ctx context.Context) (*model.ProcessSample, error)
	TopMemoryProcesses(ctx context.Context, n int) ([]model.ProcessSample, error)
}

// HostSampler reads from procfs (and platform equivalents) via gopsutil.
type HostSampler struct{}

func NewHostSampler() *HostSampler { return &HostSampler{} }

// CPUPercent returns global CPU utilization since the previous call.
// The first call after process start reports 0.
func (s *HostSampler) CPUPercent(ctx context.Context) (float64, error) {
	vals, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("cpu sample: %w", err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("cpu sample: no data")
	}
	return vals[0], nil
}

func (s *HostSampler) Memory(ctx context.Context) (MemorySample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemorySample{}, fmt.Errorf("memory sample: %w", err)
	}
	return MemorySample{
		UsedPercent: vm.UsedPercent,
		UsedMB:      vm.Used / 1024 / 1024,
		TotalMB:     vm.Total / 1024 / 1024,
	}, nil
}

func (s *HostSampler) TopCPUProcess(ctx context.Context) (*model.ProcessSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("process list: %w", err)
	}
	var top *model.ProcessSample
	for _, p := range procs {
		pct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		if top == nil || pct > top.CPUPercent {
			name, _ := p.NameWithContext(ctx)
			top = &model.ProcessSample{Name: name, PID: p.Pid, CPUPercent: pct}
		}
	}
	return top, nil
}

func (s *HostSampler) TopMemoryProcesses(ctx context.Context, n int) ([]model.ProcessSample, error) {
	if n <= 0 {
		n = 10
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("process list: %w", err)
	}
	samples := make([]model.ProcessSample, 0, len(procs))
	for _, p := range procs {
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil || mi == nil {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		samples = append(samples, model.ProcessSample{
			Name:     name,
			PID:      p.Pid,
			MemoryMB: mi.RSS / 1024 / 1024,
		})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].MemoryMB > samples[j].MemoryMB })
	if len(samples) > n {
		samples = samples[:n]
	}
	return samples, nil
}
