package layout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx used by PGStore. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS credential_layouts (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO credential_layouts (id, name, document, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`

const selectSQL = `SELECT document FROM credential_layouts WHERE name = $1`

const listSQL = `SELECT id, name, updated_at FROM credential_layouts ORDER BY name`

// StoredLayout describes a saved layout without its document.
type StoredLayout struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

// PGStore keeps named layouts in PostgreSQL. Each store reads and writes
// the layout called Name.
type PGStore struct {
	db   DBTX
	Name string
}

// NewPGStore creates a store for the named layout.
func NewPGStore(db DBTX, name string) *PGStore {
	return &PGStore{db: db, Name: name}
}

// EnsureSchema creates the layouts table when it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create layouts table: %w", err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context) (core.Layout, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, selectSQL, s.Name).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Layout{}, ErrNotFound
	}
	if err != nil {
		return core.Layout{}, fmt.Errorf("get layout %q: %w", s.Name, err)
	}

	l, err := Import(doc)
	if err != nil {
		return core.Layout{}, fmt.Errorf("get layout %q: %w", s.Name, err)
	}
	return l, nil
}

func (s *PGStore) Save(ctx context.Context, l core.Layout) error {
	doc, err := Export(l)
	if err != nil {
		return err
	}

	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	if _, err := s.db.Exec(ctx, upsertSQL, id, s.Name, doc, time.Now().UTC()); err != nil {
		return fmt.Errorf("save layout %q: %w", s.Name, err)
	}
	return nil
}

// List returns every saved layout ordered by name.
func (s *PGStore) List(ctx context.Context) ([]StoredLayout, error) {
	rows, err := s.db.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	var out []StoredLayout
	for rows.Next() {
		var (
			id      pgtype.UUID
			entry   StoredLayout
			updated pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &entry.Name, &updated); err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		if id.Valid {
			entry.ID = uuid.UUID(id.Bytes).String()
		}
		entry.UpdatedAt = updated.Time
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	return out, nil
}
