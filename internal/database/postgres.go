package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quintet/api/internal/models"
)

// Postgres wraps the connection pool behind the generation run log
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool and verifies it with a ping
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Ping checks the database connection
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}

const insertGenerationRun = `
INSERT INTO generation_runs
    (id, request_id, mode, variant_index, model, status, latency_ms, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertGenerationRun appends one row to the run log
func (p *Postgres) InsertGenerationRun(ctx context.Context, run models.GenerationRun) error {
	_, err := p.pool.Exec(ctx, insertGenerationRun,
		run.ID,
		run.RequestID,
		string(run.Mode),
		run.VariantIndex,
		run.Model,
		string(run.Status),
		run.LatencyMs,
		run.Error,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation run: %w", err)
	}
	return nil
}
