// Package siad is the daemon side of the query protocol: a unix-socket
// server answering status/list/show/analyze from the store, independent of
// the write path.
package siad

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leptons1618/sia-proto/internal/config"
	"github.com/Leptons1618/sia-proto/internal/enrich"
	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/ipc"
	"github.com/Leptons1618/sia-proto/internal/model"
	"github.com/Leptons1618/sia-proto/internal/storage"
)

// collectorStaleAfter marks a collector degraded when its last sample is
// older than this.
const collectorStaleAfter = 60 * time.Second

// Enricher is what the analyze method needs from the suggestion service.
type Enricher interface {
	Available(ctx context.Context) bool
	Suggest(ctx context.Context, ev model.Event) (*model.Suggestion, error)
	Model() string
}

// AuditSink records administrative actions. Backed by the daemon's single
// writable store handle.
type AuditSink interface {
	AppendAudit(kind string, payload []byte) (int64, error)
}

type Options struct {
	SockPath      string
	ReadTimeout   time.Duration
	GracePeriod   time.Duration
	Thresholds    config.ThresholdsConfig
	EnrichTimeout time.Duration
}

type Server struct {
	opts     Options
	reader   *storage.Store
	audit    AuditSink
	enricher Enricher
	health   *health.Health
	log      zerolog.Logger

	ln *net.UnixListener
	wg sync.WaitGroup
}

func NewServer(opts Options, reader *storage.Store, audit AuditSink, enricher Enricher, h *health.Health, log zerolog.Logger) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}
	return &Server{
		opts:     opts,
		reader:   reader,
		audit:    audit,
		enricher: enricher,
		health:   h,
		log:      log.With().Str("component", "server").Logger(),
	}
}

// ListenAndServe accepts until the context is cancelled, then waits for
// in-flight connections within the grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	sockPath := s.opts.SockPath
	if strings.TrimSpace(sockPath) == "" {
		sockPath = ipc.SockPath()
	}
	_ = os.Remove(sockPath)
	if err := os.MkdirAll(filepath.Dir(sockPath), 0o755); err != nil {
		return err
	}

	addr := &net.UnixAddr{Name: sockPath, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	_ = os.Chmod(sockPath, 0o666)
	s.log.Info().Str("sock", sockPath).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		c, err := ln.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, c)
		}()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.GracePeriod):
		s.log.Warn().Msg("grace period expired with connections in flight")
	}
	return nil
}

// handleConn serves exactly one request per connection.
func (s *Server) handleConn(ctx context.Context, c *net.UnixConn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(s.opts.ReadTimeout))

	var req ipc.Request
	if err := json.NewDecoder(c).Decode(&req); err != nil {
		s.writeResponse(c, ipc.Errorf(ipc.CodeBadRequest, "invalid request: %v", err))
		return
	}

	var resp ipc.Response
	switch req.Method {
	case ipc.MethodStatus:
		resp = s.handleStatus()
	case ipc.MethodList:
		resp = s.handleList(req)
	case ipc.MethodShow:
		resp = s.handleShow(req)
	case ipc.MethodAnalyze:
		resp = s.handleAnalyze(ctx, c, req)
	default:
		resp = ipc.Errorf(ipc.CodeBadRequest, "unknown method %q", req.Method)
	}
	s.writeResponse(c, resp)
}

func (s *Server) writeResponse(c *net.UnixConn, resp ipc.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("encode response")
		return
	}
	if _, err := c.Write(append(b, '\n')); err != nil {
		s.log.Debug().Err(err).Msg("write response")
	}
}

func (s *Server) handleStatus() ipc.Response {
	hs := s.health.Snapshot()

	counts, err := s.reader.OpenCounts()
	if err != nil {
		s.log.Error().Err(err).Msg("open counts")
		return ipc.Errorf(ipc.CodeStoreError, "event counts: %v", err)
	}

	collectors := make(map[string]ipc.CollectorStatus, len(hs.LastSample))
	now := time.Now().Unix()
	for name, last := range hs.LastSample {
		state := "active"
		if now-last > int64(collectorStaleAfter/time.Second) {
			state = "stale"
		}
		collectors[name] = ipc.CollectorStatus{State: state, LastSampleTS: last}
	}

	status := "running"
	if hs.Degraded() {
		status = "degraded"
	}

	return ipc.OK(ipc.StatusData{
		Status:        status,
		UptimeSeconds: hs.UptimeSeconds,
		Collectors:    collectors,
		Events:        counts,
		Thresholds: ipc.ThresholdsStatus{
			CPUWarning:        s.opts.Thresholds.CPUWarning,
			CPUCritical:       s.opts.Thresholds.CPUCritical,
			MemoryWarning:     s.opts.Thresholds.MemoryWarning,
			MemoryCritical:    s.opts.Thresholds.MemoryCritical,
			CPUSustainedCount: s.opts.Thresholds.CPUSustainedCount,
		},
		Enrichment: ipc.EnrichmentStatus{
			Available: hs.EnrichmentAvailable,
			Model:     s.enricherModel(),
		},
		DroppedEvents:      hs.DroppedEvents,
		StoreFailureStreak: hs.StoreFailureStreak,
	})
}

func (s *Server) enricherModel() string {
	if s.enricher == nil {
		return ""
	}
	return s.enricher.Model()
}

func (s *Server) handleList(req ipc.Request) ipc.Response {
	limit := 20
	if req.Limit != nil && *req.Limit > 0 {
		limit = *req.Limit
	}
	events, err := s.reader.RecentEvents(limit)
	if err != nil {
		return ipc.Errorf(ipc.CodeStoreError, "fetch events: %v", err)
	}
	out := ipc.ListData{Events: make([]ipc.EventSummary, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, ipc.EventSummary{
			EventID:  ev.EventID,
			TS:       ev.TS,
			Severity: string(ev.Severity),
			Type:     ev.Type,
			Status:   ev.Status,
		})
	}
	return ipc.OK(out)
}

func (s *Server) handleShow(req ipc.Request) ipc.Response {
	if strings.TrimSpace(req.EventID) == "" {
		return ipc.Errorf(ipc.CodeBadRequest, "event_id is required")
	}
	ev, err := s.reader.EventByID(req.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		return ipc.Errorf(ipc.CodeNotFound, "event %s not found", req.EventID)
	}
	if err != nil {
		return ipc.Errorf(ipc.CodeStoreError, "fetch event: %v", err)
	}
	return ipc.OK(ipc.EventDetail{
		EventID:     ev.EventID,
		TS:          ev.TS,
		Severity:    string(ev.Severity),
		Type:        ev.Type,
		ServiceID:   ev.ServiceID,
		Fingerprint: ev.Fingerprint,
		Status:      ev.Status,
		Snapshot:    ev.Snapshot,
	})
}

// handleAnalyze re-runs enrichment for a stored event on demand, regardless
// of what the analyzer decided at ingest time. The action is audited with
// the requesting peer's identity.
func (s *Server) handleAnalyze(ctx context.Context, c *net.UnixConn, req ipc.Request) ipc.Response {
	if strings.TrimSpace(req.EventID) == "" {
		return ipc.Errorf(ipc.CodeBadRequest, "event_id is required")
	}
	if s.enricher == nil {
		return ipc.Errorf(ipc.CodeUnreachable, "enrichment not configured")
	}

	ev, err := s.reader.EventByID(req.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		return ipc.Errorf(ipc.CodeNotFound, "event %s not found", req.EventID)
	}
	if err != nil {
		return ipc.Errorf(ipc.CodeStoreError, "fetch event: %v", err)
	}

	s.auditAnalyze(c, ev.EventID)

	// Enrichment writes nothing back; analyze is a synchronous lookup.
	timeout := s.opts.EnrichTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The per-request work can outlast the connection read deadline.
	_ = c.SetDeadline(time.Now().Add(timeout + s.opts.ReadTimeout))

	sug, err := s.enricher.Suggest(ctx, ev)
	if err != nil {
		return ipc.Errorf(enrichErrorCode(err), "enrichment failed: %v", err)
	}
	return ipc.OK(ipc.AnalyzeData{EventID: ev.EventID, Suggestion: *sug})
}

func (s *Server) auditAnalyze(c *net.UnixConn, eventID string) {
	if s.audit == nil {
		return
	}
	uid := -1
	if cred, err := ipc.GetPeerCred(c); err == nil {
		uid = cred.UID
	}
	payload, _ := json.Marshal(map[string]any{"event_id": eventID, "uid": uid})
	if _, err := s.audit.AppendAudit("analyze", payload); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("audit append failed")
	}
}

func enrichErrorCode(err error) string {
	switch {
	case errors.Is(err, enrich.ErrTimeout):
		return ipc.CodeTimeout
	case errors.Is(err, enrich.ErrUnavailable):
		return ipc.CodeUnreachable
	default:
		return ipc.CodeMalformed
	}
}
