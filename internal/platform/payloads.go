package platform

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/siteaudit/siteaudit/pkg/audit"
)

// PayloadStore keeps the current audit payload of one site in Postgres.
// It implements audit.Store.
type PayloadStore struct {
	db   *sql.DB
	site string
}

// NewPayloadStore creates a store for site. Run AutoMigrate first.
func NewPayloadStore(db *sql.DB, site string) *PayloadStore {
	if site == "" {
		site = "default"
	}
	return &PayloadStore{db: db, site: site}
}

// SaveCurrent replaces the site's current payload.
func (s *PayloadStore) SaveCurrent(ctx context.Context, p *audit.Payload) error {
	if p == nil {
		return errors.New("nil payload")
	}
	id := p.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_payloads (site, id, url, overall, grade, psi_ok, payload, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (site) DO UPDATE
		   SET id = EXCLUDED.id,
		       url = EXCLUDED.url,
		       overall = EXCLUDED.overall,
		       grade = EXCLUDED.grade,
		       psi_ok = EXCLUDED.psi_ok,
		       payload = EXCLUDED.payload,
		       updated_at = EXCLUDED.updated_at`,
		s.site, id, p.URL, p.Overall, p.Grade, p.PSIOK, data,
	)
	if err != nil {
		return fmt.Errorf("save payload for %s: %w", s.site, err)
	}
	return nil
}

// LoadCurrent returns the site's current payload, or audit.ErrNoPayload.
func (s *PayloadStore) LoadCurrent(ctx context.Context) (*audit.Payload, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM audit_payloads WHERE site = $1`,
		s.site,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNoPayload
	}
	if err != nil {
		return nil, fmt.Errorf("load payload for %s: %w", s.site, err)
	}

	var p audit.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", s.site, err)
	}
	return &p, nil
}
