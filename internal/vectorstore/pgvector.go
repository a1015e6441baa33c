package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/embed"
)

// pgvectorStore backs the index with PostgreSQL and the pgvector extension.
// Rows are scoped by collection name so several knowledge bases can share
// one database. The schema is managed by the db package migrations.
type pgvectorStore struct {
	pool       *pgxpool.Pool
	provider   embed.Provider
	collection string
}

func newPgvector(ctx context.Context, cfg Config, provider embed.Provider) (*pgvectorStore, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("vectorstore: pgvector backend requires conn_string")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parsing connection string: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorstore: database unreachable: %w", err)
	}

	return &pgvectorStore{
		pool:       pool,
		provider:   provider,
		collection: cfg.collection(),
	}, nil
}

func (s *pgvectorStore) AddDocuments(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("vectorstore: embedding %d documents: %w", len(docs), err)
	}

	batch := &pgx.Batch{}
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("vectorstore: encoding metadata for document %s: %w", id, err)
		}
		batch.Queue(
			`INSERT INTO rag_documents (id, collection, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET content = $3, metadata = $4, embedding = $5`,
			id, s.collection, d.Content, meta, pgvector.NewVector(vectors[i]),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("vectorstore: inserting documents: %w", err)
		}
	}
	return nil
}

func (s *pgvectorStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embedding query: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, content, metadata, embedding, 1 - (embedding <=> $1) AS similarity
		FROM rag_documents WHERE collection = $2`)
	args := []any{pgvector.NewVector(queryVec), s.collection}
	for key, val := range filter {
		sb.WriteString(fmt.Sprintf(" AND metadata->>$%d = $%d", len(args)+1, len(args)+2))
		args = append(args, key, val)
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1))
	args = append(args, k)

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id, content string
			rawMeta     []byte
			embedding   pgvector.Vector
			similarity  float32
		)
		if err := rows.Scan(&id, &content, &rawMeta, &embedding, &similarity); err != nil {
			return nil, fmt.Errorf("vectorstore: scanning row: %w", err)
		}
		meta := map[string]string{}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &meta); err != nil {
				return nil, fmt.Errorf("vectorstore: decoding metadata for %s: %w", id, err)
			}
		}
		results = append(results, Result{
			Document:  document.Document{ID: id, Content: content, Metadata: meta},
			Score:     similarity,
			Embedding: embedding.Slice(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: reading rows: %w", err)
	}
	return results, nil
}

func (s *pgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM rag_documents WHERE collection = $1`, s.collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: counting documents: %w", err)
	}
	return count, nil
}

func (s *pgvectorStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM rag_documents WHERE collection = $1`, s.collection)
	if err != nil {
		return fmt.Errorf("vectorstore: clearing collection %q: %w", s.collection, err)
	}
	return nil
}

func (s *pgvectorStore) Close() error {
	s.pool.Close()
	return nil
}
