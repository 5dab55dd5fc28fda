package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Leptons1618/sia-proto/internal/model"
)

// InsertEvent persists one event. Status is forced to open at insert; the
// resolve operation is the only later mutation.
func (s *Store) InsertEvent(ev model.Event) error {
	serviceID := ev.ServiceID
	if serviceID == "" {
		serviceID = model.ServiceSystem
	}
	_, err := s.db.Exec(
		`INSERT INTO events(event_id, ts, severity, type, service_id, fingerprint, snapshot, status)
		 VALUES(?, ?, ?, ?, ?, ?, ?, 'open')`,
		ev.EventID, ev.TS, string(ev.Severity), ev.Type, serviceID,
		nullStr(ev.Fingerprint), []byte(ev.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.EventID, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT event_id, ts, severity, type, service_id, fingerprint, snapshot, status
		 FROM events ORDER BY ts DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) EventByID(id string) (model.Event, error) {
	row := s.db.QueryRow(
		`SELECT event_id, ts, severity, type, service_id, fingerprint, snapshot, status
		 FROM events WHERE event_id=?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

// ResolveEvent flips an open event to resolved. Severity is never touched.
func (s *Store) ResolveEvent(id string) error {
	res, err := s.db.Exec(`UPDATE events SET status='resolved' WHERE event_id=? AND status='open'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type Counts struct {
	Critical int64 `json:"critical"`
	Warning  int64 `json:"warning"`
	Info     int64 `json:"info"`
}

// OpenCounts groups open events by severity.
func (s *Store) OpenCounts() (Counts, error) {
	rows, err := s.db.Query(`SELECT severity, COUNT(*) FROM events WHERE status='open' GROUP BY severity`)
	if err != nil {
		return Counts{}, err
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var severity string
		var n int64
		if err := rows.Scan(&severity, &n); err != nil {
			return Counts{}, err
		}
		switch model.Severity(severity) {
		case model.SeverityCritical:
			c.Critical = n
		case model.SeverityWarning:
			c.Warning = n
		case model.SeverityInfo:
			c.Info = n
		}
	}
	return c, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (model.Event, error) {
	var ev model.Event
	var severity string
	var fingerprint sql.NullString
	var snapshot []byte
	if err := r.Scan(&ev.EventID, &ev.TS, &severity, &ev.Type, &ev.ServiceID, &fingerprint, &snapshot, &ev.Status); err != nil {
		return model.Event{}, err
	}
	ev.Severity = model.Severity(severity)
	ev.Fingerprint = fingerprint.String
	ev.Snapshot = json.RawMessage(snapshot)
	return ev, nil
}
