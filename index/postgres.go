package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/devkaluri/rag-chat/errs"
)

// Postgres is a pgvector-backed index. Rebuild runs delete-and-reinsert
// inside a single transaction, so concurrent queries read the old rows
// until the commit lands. An index_meta row pins the embedding dimension
// and model; reopening the store with a different embedding setup is a
// configuration error and requires a full rebuild.
type Postgres struct {
	pool      *pgxpool.Pool
	dimension int
	model     string
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool, dimension int, model string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if dimension <= 0 {
		return nil, errs.Configf("embedding dimension must be positive, got %d", dimension)
	}

	p := &Postgres{pool: pool, dimension: dimension, model: model}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if err := p.checkMeta(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS index_meta (
			id INT PRIMARY KEY CHECK (id = 1),
			dimension INT NOT NULL,
			model TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			position BIGINT GENERATED ALWAYS AS IDENTITY,
			document TEXT NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			start_offset INT NOT NULL,
			page INT NOT NULL DEFAULT 0,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.dimension),
		"CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document)",
	}

	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (p *Postgres) checkMeta(ctx context.Context) error {
	var dimension int
	var model string
	err := p.pool.QueryRow(ctx, "SELECT dimension, model FROM index_meta WHERE id = 1").Scan(&dimension, &model)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, execErr := p.pool.Exec(ctx, `
				INSERT INTO index_meta (id, dimension, model) VALUES (1, $1, $2)
			`, p.dimension, p.model)
			if execErr != nil {
				return fmt.Errorf("write index meta: %w", execErr)
			}
			return nil
		}
		return fmt.Errorf("read index meta: %w", err)
	}

	if dimension != p.dimension {
		return errs.Configf("index was built with dimension %d but embedder produces %d; rebuild the index", dimension, p.dimension)
	}
	if p.model != "" && model != "" && model != p.model {
		return errs.Configf("index was built with embedding model %q but %q is configured; rebuild the index", model, p.model)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := p.validate(entries); err != nil {
		return err
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) Rebuild(ctx context.Context, entries []Entry) error {
	if err := p.validate(entries); err != nil {
		return err
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO index_meta (id, dimension, model)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET dimension = $1, model = $2, updated_at = NOW()
	`, p.dimension, p.model); err != nil {
		return fmt.Errorf("update index meta: %w", err)
	}
	if err := insertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, entries []Entry) error {
	for i, entry := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (id, document, title, content, start_offset, page, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, entry.Chunk.ID, entry.Chunk.Document, entry.Chunk.Title, entry.Chunk.Text,
			entry.Chunk.Start, entry.Chunk.Page, pgvector.NewVector(entry.Vector)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if len(vector) != p.dimension {
		return nil, errs.Configf("query vector dimension mismatch: index expects %d, got %d", p.dimension, len(vector))
	}
	if k <= 0 {
		return []Result{}, nil
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, document, title, content, start_offset, page,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM chunks
		ORDER BY embedding <=> $1::vector, position
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var item Result
		if scanErr := rows.Scan(&item.Chunk.ID, &item.Chunk.Document, &item.Chunk.Title,
			&item.Chunk.Text, &item.Chunk.Start, &item.Chunk.Page, &item.Score); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		results = append(results, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (p *Postgres) validate(entries []Entry) error {
	for i, entry := range entries {
		if len(entry.Vector) != p.dimension {
			return errs.Configf("entry %d dimension mismatch: index expects %d, got %d", i, p.dimension, len(entry.Vector))
		}
	}
	return nil
}

var _ Index = (*Postgres)(nil)
