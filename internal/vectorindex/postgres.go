package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"pdf-rag-chat/internal/models"
)

// Postgres is a pgvector-backed index. Reset drops and recreates the chunk
// table with the declared dimension baked into the column type, so mismatched
// vector spaces cannot coexist.
type Postgres struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Reset recreates the chunks table for the given vector dimension.
func (p *Postgres) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	if _, err := p.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `DROP TABLE IF EXISTS chunks`); err != nil {
		return fmt.Errorf("failed to drop chunks table: %w", err)
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE chunks (
            id UUID PRIMARY KEY,
            pos BIGSERIAL,
            content TEXT NOT NULL,
            embedding vector(%d) NOT NULL
        )
    `, dimension))
	if err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		CREATE INDEX chunks_embedding_idx ON chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	p.dimension = dimension
	return nil
}

// Insert stores chunks in one transaction so a failure leaves prior records
// unaffected.
func (p *Postgres) Insert(ctx context.Context, chunks []models.Chunk) error {
	if p.dimension == 0 {
		return models.ErrNoIndexBuilt
	}
	for i, ch := range chunks {
		if len(ch.Vector) != p.dimension {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				models.ErrDimensionMismatch, i, len(ch.Vector), p.dimension)
		}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ch := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, content, embedding) VALUES ($1, $2, $3)`,
			uuid.NewString(), ch.Text, pgvector.NewVector(ch.Vector))
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Search returns the topK nearest chunks by cosine distance, insertion order
// breaking ties.
func (p *Postgres) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, content, 1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1, pos
		LIMIT $2
	`, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var rec models.Record
		var score float64
		if err := rows.Scan(&rec.ID, &rec.Text, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, models.SearchResult{Record: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
