// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sqlCreateDocuments = `
	CREATE TABLE IF NOT EXISTS formpilot_documents (
		key        TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`

const sqlUpsertDocument = `
	INSERT INTO formpilot_documents (key, doc, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		doc = EXCLUDED.doc,
		updated_at = EXCLUDED.updated_at;`

const sqlSelectDocument = `
	SELECT doc FROM formpilot_documents WHERE key = $1;`

// Postgres is the PostgreSQL document store, the choice for deployments that
// share one workflow library across machines.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres verifies the connection and ensures the documents table exists.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, sqlCreateDocuments); err != nil {
		return nil, fmt.Errorf("failed to ensure documents table: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("pg_store")}, nil
}

// Get returns the document stored under key.
func (p *Postgres) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := p.pool.QueryRow(ctx, sqlSelectDocument, key).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schemas.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document %q: %w", key, err)
	}
	return doc, nil
}

// Set upserts the document under key.
func (p *Postgres) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if _, err := p.pool.Exec(ctx, sqlUpsertDocument, key, doc, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", key, err)
	}
	return nil
}

var _ schemas.DocumentStore = (*Postgres)(nil)
