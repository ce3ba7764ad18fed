package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/pilotjobs/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS postings (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	run_id TEXT NOT NULL,
	keyword TEXT NOT NULL,
	provider TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	snippet TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE postings ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS postings_url_idx ON postings (url);
`

// New connects to Postgres at dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, entry *storage.Entry) error {
	query := `
	INSERT INTO postings (
		id, run_id, keyword, provider, title, url, snippet, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := b.pool.Exec(ctx, query,
		entry.ID,
		entry.RunID,
		entry.Keyword,
		entry.Provider,
		entry.Title,
		entry.URL,
		entry.Snippet,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Entry, error) {
	query := `SELECT id, run_id, keyword, provider, title, url, snippet, created_at FROM postings WHERE 1=1`
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.URL != "" {
		query += ` AND url = ` + arg(filter.URL)
	}
	if filter.Provider != "" {
		query += ` AND provider = ` + arg(filter.Provider)
	}
	if filter.RunID != "" {
		query += ` AND run_id = ` + arg(filter.RunID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(*filter.Since)
	}

	// A run saves all its postings with one timestamp; seq keeps them in
	// insertion order.
	query += ` ORDER BY created_at DESC, seq DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	defer rows.Close()

	var results []*storage.Entry
	for rows.Next() {
		var e storage.Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Keyword, &e.Provider, &e.Title, &e.URL, &e.Snippet, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
