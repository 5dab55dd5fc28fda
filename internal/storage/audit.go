package storage

import (
	"strings"
	"time"

	"github.com/Leptons1618/sia-proto/internal/model"
)

// AppendAudit records an administrative action. The audit log is append-only
// from the core's perspective.
func (s *Store) AppendAudit(kind string, payload []byte) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO audits(ts, kind, payload) VALUES(?, ?, ?)`,
		time.Now().Unix(), kind, payload,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentAudits returns up to limit audit records, newest first.
func (s *Store) RecentAudits(limit int) ([]model.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, ts, kind, payload FROM audits ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Audit
	for rows.Next() {
		var a model.Audit
		var payload []byte
		if err := rows.Scan(&a.ID, &a.TS, &a.Kind, &payload); err != nil {
			return nil, err
		}
		a.Payload = payload
		out = append(out, a)
	}
	return out, rows.Err()
}

// GrantsByService reads grants for a service. The core never writes this
// table; it belongs to the access-control layer.
func (s *Store) GrantsByService(serviceID string) ([]model.Grant, error) {
	rows, err := s.db.Query(
		`SELECT id, service_id, scopes, expires_at, token FROM grants WHERE service_id=?`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Grant
	for rows.Next() {
		var g model.Grant
		var scopes string
		if err := rows.Scan(&g.ID, &g.ServiceID, &scopes, &g.ExpiresAt, &g.Token); err != nil {
			return nil, err
		}
		if scopes != "" {
			g.Scopes = strings.Split(scopes, ",")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
