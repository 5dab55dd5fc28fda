// Package collector turns raw utilization samples into threshold events.
// Each collector owns its breach counter; no state is shared between the CPU
// and memory instances.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
	"github.com/Leptons1618/sia-proto/internal/pipeline"
)

type Thresholds struct {
	Warning        float64
	Critical       float64
	SustainedCount int
}

// Probe reads one utilization sample and builds the evidence snapshot for an
// emitted event.
type Probe interface {
	Name() string
	EventType() string
	IDPrefix() string
	Utilization(ctx context.Context) (float64, error)
	Snapshot(ctx context.Context, raw float64, threshold float64, sustained bool) ([]byte, error)
}

type Collector struct {
	probe    Probe
	th       Thresholds
	interval time.Duration
	log      zerolog.Logger
	health   *health.Health

	// Consecutive-breach state. Reset on restart; nothing requires it to
	// survive one.
	streak int
	warned bool
}

func New(probe Probe, th Thresholds, interval time.Duration, h *health.Health, log zerolog.Logger) *Collector {
	if th.SustainedCount <= 0 {
		th.SustainedCount = 1
	}
	return &Collector{
		probe:    probe,
		th:       th,
		interval: interval,
		health:   h,
		log:      log.With().Str("collector", probe.Name()).Logger(),
	}
}

// Run samples on a fixed cadence until the context is cancelled. A failed
// tick is logged and skipped; the breach counter is left untouched.
func (c *Collector) Run(ctx context.Context, q *pipeline.Queue) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Tick(ctx, q)
		}
	}
}

// Tick performs one sample-evaluate-emit cycle.
func (c *Collector) Tick(ctx context.Context, q *pipeline.Queue) {
	util, err := c.probe.Utilization(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("sampling failed, skipping tick")
		return
	}
	if c.health != nil {
		c.health.MarkSample(c.probe.Name())
	}

	severity, sustained, emit := c.evaluate(util)
	if !emit {
		return
	}

	ev, err := c.buildEvent(ctx, util, severity, sustained)
	if err != nil {
		c.log.Error().Err(err).Msg("building event failed")
		return
	}
	if err := q.Send(ev); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			c.log.Warn().Str("event_id", ev.EventID).Msg("queue full, event dropped")
			return
		}
		c.log.Error().Err(err).Str("event_id", ev.EventID).Msg("enqueue failed")
		return
	}
	c.log.Info().
		Str("event_id", ev.EventID).
		Str("severity", string(severity)).
		Float64("utilization", util).
		Msg("event emitted")
}

// evaluate advances the breach state machine for one sample.
//
// Critical crossings emit immediately. A warning emits once per sustained
// episode; the episode re-arms only after utilization drops back below the
// warning threshold.
func (c *Collector) evaluate(util float64) (severity model.Severity, sustained bool, emit bool) {
	switch {
	case util >= c.th.Critical:
		c.streak = 0
		return model.SeverityCritical, false, true
	case util >= c.th.Warning:
		if c.warned {
			return "", false, false
		}
		c.streak++
		if c.streak >= c.th.SustainedCount {
			c.streak = 0
			c.warned = true
			return model.SeverityWarning, true, true
		}
		return "", false, false
	default:
		c.streak = 0
		c.warned = false
		return "", false, false
	}
}

func (c *Collector) buildEvent(ctx context.Context, util float64, severity model.Severity, sustained bool) (model.Event, error) {
	threshold := c.th.Warning
	if severity == model.SeverityCritical {
		threshold = c.th.Critical
	}
	snapshot, err := c.probe.Snapshot(ctx, util, threshold, sustained)
	if err != nil {
		return model.Event{}, err
	}
	typ := c.probe.EventType()
	return model.Event{
		EventID:     model.NewEventID(c.probe.IDPrefix()),
		TS:          time.Now().Unix(),
		Severity:    severity,
		Type:        typ,
		ServiceID:   model.ServiceSystem,
		Fingerprint: model.Fingerprint(typ, model.ServiceSystem),
		Snapshot:    snapshot,
		Status:      model.StatusOpen,
	}, nil
}
