package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

// Schema creates the panel table used by Postgres.
const Schema = `CREATE TABLE IF NOT EXISTS pmo_panels (
	panel_id   TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores panels as JSONB documents in the pmo_panels table.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a store on db. Call Migrate once before first use.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the panel table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create pmo_panels: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, p *core.Panel) error {
	data, err := encodePanel(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO pmo_panels (panel_id, document)
		VALUES ($1, $2)
		ON CONFLICT (panel_id) DO UPDATE
		SET document = EXCLUDED.document, updated_at = now()`
	if _, err := s.db.Exec(ctx, query, p.PanelID, data); err != nil {
		return fmt.Errorf("save panel %s: %w", p.PanelID, err)
	}

	logging.FromContext(ctx).Debug("panel upserted", "panel_id", p.PanelID, "bytes", len(data))
	return nil
}

func (s *Postgres) Load(ctx context.Context, panelID string) (*core.Panel, error) {
	if err := ValidateID(panelID); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRow(ctx, "SELECT document FROM pmo_panels WHERE panel_id = $1", panelID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load panel %s: %w", panelID, err)
	}
	return decodePanel(panelID, data)
}

func (s *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT panel_id FROM pmo_panels ORDER BY panel_id")
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list panels: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	return ids, nil
}

func (s *Postgres) Delete(ctx context.Context, panelID string) error {
	if err := ValidateID(panelID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM pmo_panels WHERE panel_id = $1", panelID)
	if err != nil {
		return fmt.Errorf("delete panel %s: %w", panelID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
