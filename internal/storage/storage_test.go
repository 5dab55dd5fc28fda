package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Leptons1618/sia-proto/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sia.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(id string, ts int64, severity model.Severity) model.Event {
	return model.Event{
		EventID:     id,
		TS:          ts,
		Severity:    severity,
		Type:        model.TypeCPUHigh,
		ServiceID:   model.ServiceSystem,
		Fingerprint: model.Fingerprint(model.TypeCPUHigh, model.ServiceSystem),
		Snapshot:    json.RawMessage(`{"cpu_percent":97.3,"threshold":95}`),
		Status:      model.StatusOpen,
	}
}

func TestInsertAndFetchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := testEvent("cpu_1716112345678", 1716112345, model.SeverityCritical)
	if err := s.InsertEvent(want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.EventByID(want.EventID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.EventID != want.EventID || got.TS != want.TS || got.Severity != want.Severity {
		t.Fatalf("mismatch: got %+v want %+v", got, want)
	}
	if got.ServiceID != model.ServiceSystem || got.Status != model.StatusOpen {
		t.Fatalf("defaults wrong: %+v", got)
	}
	if got.Fingerprint != want.Fingerprint {
		t.Fatalf("fingerprint = %q, want %q", got.Fingerprint, want.Fingerprint)
	}
	if !bytes.Equal(got.Snapshot, want.Snapshot) {
		t.Fatalf("snapshot altered: got %s want %s", got.Snapshot, want.Snapshot)
	}
}

func TestEventByIDNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.EventByID("cpu_0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)
	ev := testEvent("cpu_1", 1, model.SeverityWarning)
	if err := s.InsertEvent(ev); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertEvent(ev); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
}

func TestRecentEventsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		ev := testEvent(fmt.Sprintf("cpu_%d", i), int64(100+i), model.SeverityWarning)
		if err := s.InsertEvent(ev); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	events, err := s.RecentEvents(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	for i, want := range []string{"cpu_4", "cpu_3", "cpu_2"} {
		if events[i].EventID != want {
			t.Fatalf("events[%d] = %s, want %s", i, events[i].EventID, want)
		}
	}
}

func TestRecentEventsSameTimestampTiebreak(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"cpu_100", "cpu_101"} {
		if err := s.InsertEvent(testEvent(id, 500, model.SeverityWarning)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := s.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if events[0].EventID != "cpu_101" || events[1].EventID != "cpu_100" {
		t.Fatalf("tiebreak wrong: %s, %s", events[0].EventID, events[1].EventID)
	}
}

func TestResolveEvent(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertEvent(testEvent("cpu_1", 1, model.SeverityCritical)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.ResolveEvent("cpu_1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := s.EventByID("cpu_1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Status != model.StatusResolved {
		t.Fatalf("status = %s, want resolved", got.Status)
	}
	if got.Severity != model.SeverityCritical {
		t.Fatalf("severity changed on resolve: %s", got.Severity)
	}

	// Already resolved.
	if err := s.ResolveEvent("cpu_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second resolve err = %v, want ErrNotFound", err)
	}
	// Never existed.
	if err := s.ResolveEvent("cpu_404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing resolve err = %v, want ErrNotFound", err)
	}
}

func TestOpenCounts(t *testing.T) {
	s := openTestStore(t)
	severities := []model.Severity{
		model.SeverityCritical, model.SeverityCritical,
		model.SeverityWarning,
		model.SeverityInfo,
	}
	for i, sev := range severities {
		if err := s.InsertEvent(testEvent(fmt.Sprintf("cpu_%d", i), int64(i), sev)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := s.ResolveEvent("cpu_0"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	c, err := s.OpenCounts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Critical != 1 || c.Warning != 1 || c.Info != 1 {
		t.Fatalf("counts = %+v", c)
	}
}

func TestAppendAudit(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.AppendAudit("analyze", []byte(`{"event_id":"cpu_1","uid":1000}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, err := s.AppendAudit("analyze", []byte(`{"event_id":"cpu_2","uid":1000}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("audit ids not increasing: %d then %d", id1, id2)
	}

	audits, err := s.RecentAudits(10)
	if err != nil {
		t.Fatalf("recent audits: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("len = %d, want 2", len(audits))
	}
	if audits[0].ID != id2 || audits[1].ID != id1 {
		t.Fatalf("order wrong: %d, %d", audits[0].ID, audits[1].ID)
	}
	if audits[1].Kind != "analyze" {
		t.Fatalf("kind = %q", audits[1].Kind)
	}
	var doc map[string]any
	if err := json.Unmarshal(audits[1].Payload, &doc); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if doc["event_id"] != "cpu_1" {
		t.Fatalf("payload = %v", doc)
	}
}

func TestGrantsByService(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(
		`INSERT INTO grants(id, service_id, scopes, expires_at, token) VALUES(?, ?, ?, ?, ?)`,
		"grant-1", "web", "events:read,events:resolve", "2026-12-31T00:00:00Z", "tok-abc")
	if err != nil {
		t.Fatalf("seed grant: %v", err)
	}

	grants, err := s.GrantsByService("web")
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("len = %d, want 1", len(grants))
	}
	g := grants[0]
	if g.ID != "grant-1" || g.Token != "tok-abc" {
		t.Fatalf("grant = %+v", g)
	}
	if len(g.Scopes) != 2 || g.Scopes[0] != "events:read" || g.Scopes[1] != "events:resolve" {
		t.Fatalf("scopes = %v", g.Scopes)
	}

	none, err := s.GrantsByService("other")
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unexpected grants: %v", none)
	}
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sia.db")
	rw, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	defer rw.Close()

	if err := rw.InsertEvent(testEvent("cpu_1", 1, model.SeverityWarning)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ro, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	defer ro.Close()

	got, err := ro.EventByID("cpu_1")
	if err != nil {
		t.Fatalf("fetch via reader: %v", err)
	}
	if got.EventID != "cpu_1" {
		t.Fatalf("got %+v", got)
	}

	// Later writes through the writer are visible to the open reader.
	if err := rw.InsertEvent(testEvent("cpu_2", 2, model.SeverityWarning)); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	events, err := ro.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent via reader: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("reader sees %d events, want 2", len(events))
	}
}

func TestOpenReadOnlyMissingDB(t *testing.T) {
	if _, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "sia.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.InsertEvent(testEvent("cpu_1", 1, model.SeverityInfo)); err != nil {
		t.Fatalf("insert: %v", err)
	}
}
