// Package analyzer is the sole consumer of the event queue: it decides
// enrichment and persists every event exactly once, in arrival order.
package analyzer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
	"github.com/Leptons1618/sia-proto/internal/pipeline"
)

// Enricher is the suggestion service seen by the analyzer. Satisfied by
// *enrich.Client.
type Enricher interface {
	Available(ctx context.Context) bool
	Suggest(ctx context.Context, ev model.Event) (*model.Suggestion, error)
}

// EventWriter is the store's write path. The analyzer is its only user.
type EventWriter interface {
	InsertEvent(ev model.Event) error
}

type Analyzer struct {
	queue         *pipeline.Queue
	store         EventWriter
	enricher      Enricher
	enrichTimeout time.Duration
	health        *health.Health
	log           zerolog.Logger
}

func New(q *pipeline.Queue, store EventWriter, enricher Enricher, enrichTimeout time.Duration, h *health.Health, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		queue:         q,
		store:         store,
		enricher:      enricher,
		enrichTimeout: enrichTimeout,
		health:        h,
		log:           log.With().Str("component", "analyzer").Logger(),
	}
}

// Run consumes until the queue is closed and drained. Processing is strictly
// sequential: throughput is bounded by store latency plus enrichment latency
// on CRITICAL events, which the bounded queue absorbs.
func (a *Analyzer) Run(ctx context.Context) {
	for ev := range a.queue.Events() {
		a.process(ctx, ev)
	}
	a.log.Info().Msg("queue closed, analyzer stopped")
}

func (a *Analyzer) process(ctx context.Context, ev model.Event) {
	if ev.Severity == model.SeverityCritical && a.enricher != nil && a.enricher.Available(ctx) {
		ev = a.enrich(ctx, ev)
	}

	if err := a.store.InsertEvent(ev); err != nil {
		// The event is dropped rather than re-enqueued: retrying against a
		// down store would loop without bound.
		a.health.StoreWriteFailed()
		a.log.Error().Err(err).Str("event_id", ev.EventID).Msg("store write failed, event dropped")
		return
	}
	a.health.StoreWriteOK()
	a.log.Info().Str("event_id", ev.EventID).Str("severity", string(ev.Severity)).Msg("event stored")
}

func (a *Analyzer) enrich(ctx context.Context, ev model.Event) model.Event {
	ctx, cancel := context.WithTimeout(ctx, a.enrichTimeout)
	defer cancel()

	sug, err := a.enricher.Suggest(ctx, ev)
	if err != nil {
		a.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("enrichment failed, persisting unenriched")
		return ev
	}
	enriched, err := AttachSuggestion(ev.Snapshot, sug)
	if err != nil {
		a.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("attaching suggestion failed")
		return ev
	}
	ev.Snapshot = enriched
	a.log.Info().Str("event_id", ev.EventID).Msg("suggestion attached")
	return ev
}

// AttachSuggestion merges a suggestion into the snapshot document without
// interpreting the collector-specific fields around it.
func AttachSuggestion(snapshot json.RawMessage, sug *model.Suggestion) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &doc); err != nil {
			return nil, err
		}
	}
	doc["suggestion"] = sug
	return json.Marshal(doc)
}
