package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	chunkTable    = "geo_chunks"
	manifestTable = "geo_index_manifest"
)

// PgStore keeps the index in a Postgres table with a pgvector column.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore connects to the database named by dsn.
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// chunkUUID derives a stable row id from the chunk id so rebuilding the same
// corpus yields the same keys.
func chunkUUID(chunkID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("geoassist:"+chunkID))
}

// ivfLists sizes the ivfflat index for n rows.
func ivfLists(n int) int {
	return int(math.Max(1, math.Sqrt(float64(n))))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Replace recreates the chunk table sized for the manifest dimension, loads
// entries in one batch and builds an ivfflat cosine index over them.
func (p *PgStore) Replace(ctx context.Context, m Manifest, entries []IndexEntry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	column := "vector"
	if m.Dimension > 0 {
		column = fmt.Sprintf("vector(%d)", m.Dimension)
	}
	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`DROP TABLE IF EXISTS ` + chunkTable,
		fmt.Sprintf(`CREATE TABLE %s (
			id UUID PRIMARY KEY,
			chunk_id TEXT NOT NULL,
			doc TEXT NOT NULL,
			chunk_offset INT NOT NULL,
			content TEXT NOT NULL,
			token_count INT NOT NULL,
			embedding %s NOT NULL
		)`, chunkTable, column),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INT PRIMARY KEY,
			manifest JSONB NOT NULL
		)`, manifestTable),
	}
	for _, stmt := range ddl {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare index tables: %w", err)
		}
	}

	if len(entries) > 0 {
		insert := fmt.Sprintf(`INSERT INTO %s (id, chunk_id, doc, chunk_offset, content, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, chunkTable)
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(insert, chunkUUID(e.ChunkID), e.ChunkID, e.Doc, e.Offset, e.Text, e.TokenCount,
				pgvector.NewVector(toFloat32(e.Embedding)))
		}
		results := tx.SendBatch(ctx, batch)
		for i := range entries {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("insert chunk %s: %w", entries[i].ChunkID, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}

		index := fmt.Sprintf(`CREATE INDEX %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`,
			chunkTable, chunkTable, ivfLists(len(entries)))
		if _, err := tx.Exec(ctx, index); err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
	}

	meta, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	upsert := fmt.Sprintf(`INSERT INTO %s (id, manifest) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET manifest = EXCLUDED.manifest`, manifestTable)
	if _, err := tx.Exec(ctx, upsert, meta); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PgStore) Search(ctx context.Context, query []float64, k int) ([]RetrievedChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Probing every list makes the ivfflat scan exact, so a non-empty index
	// always yields min(k, rows) results.
	var rowCount int
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, chunkTable)).Scan(&rowCount); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL ivfflat.probes = %d`, ivfLists(rowCount))); err != nil {
		return nil, fmt.Errorf("set probes: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT chunk_id, doc, chunk_offset, content, token_count,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, chunkTable)
	rows, err := tx.Query(ctx, sql, pgvector.NewVector(toFloat32(query)), k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	defer rows.Close()

	var chunks []RetrievedChunk
	for rows.Next() {
		var c RetrievedChunk
		if err := rows.Scan(&c.Entry.ChunkID, &c.Entry.Doc, &c.Entry.Offset, &c.Entry.Text, &c.Entry.TokenCount, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

func (p *PgStore) Manifest(ctx context.Context) (Manifest, bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT manifest FROM %s WHERE id = 1`, manifestTable)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("parse manifest: %w", err)
	}
	return m, true, nil
}

func (p *PgStore) Close() error {
	p.pool.Close()
	return nil
}
