package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

// PGVector is the alternative backend for deployments where the flat index's
// rebuild-on-delete cost is unacceptable: chunks live in a pgvector table and
// deletion is native. Distances here are plain (non-squared) Euclidean, which
// preserves the ranking and the similarity monotonicity contract.
type PGVector struct {
	db  *sqlx.DB
	dim int
}

func NewPGVector(database *sql.DB, dim int) (*PGVector, error) {
	db := sqlx.NewDb(database, "postgres")
	idx := &PGVector{db: db, dim: dim}
	if err := idx.ensureSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *PGVector) ensureSchema() error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunks (
			id BIGSERIAL PRIMARY KEY,
			namespace_id BIGINT NOT NULL,
			document_id BIGINT NOT NULL,
			document_name TEXT NOT NULL,
			pos INT NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.dim),
		`CREATE INDEX IF NOT EXISTS idx_kb_chunks_ns_doc ON kb_chunks (namespace_id, document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("pgvector schema: %w", err)
		}
	}
	return nil
}

func (p *PGVector) Insert(ctx context.Context, namespaceID, documentID int64, documentName string, texts []string, embeddings [][]float32) (int, error) {
	if len(texts) != len(embeddings) {
		return 0, fmt.Errorf("%w: %d chunks but %d embeddings", appErr.ErrInvalid, len(texts), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != p.dim {
			return 0, fmt.Errorf("%w: embedding %d has dimension %d, want %d", appErr.ErrInvalid, i, len(emb), p.dim)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var start int
	if err := tx.GetContext(ctx, &start,
		`SELECT COALESCE(MAX(pos)+1, 0) FROM kb_chunks WHERE namespace_id = $1`, namespaceID); err != nil {
		return 0, err
	}
	const insert = `
		INSERT INTO kb_chunks (namespace_id, document_id, document_name, pos, chunk_text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, text := range texts {
		if _, err := tx.ExecContext(ctx, insert,
			namespaceID, documentID, documentName, start+i, text, pgvector.NewVector(embeddings[i])); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(texts), nil
}

func (p *PGVector) RemoveDocument(ctx context.Context, namespaceID, documentID int64) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM kb_chunks WHERE namespace_id = $1 AND document_id = $2`, namespaceID, documentID)
	return err
}

func (p *PGVector) Search(ctx context.Context, namespaceID *int64, query []float32, k int) ([]Hit, error) {
	if len(query) != p.dim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, want %d", appErr.ErrInvalid, len(query), p.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(query)
	var rows *sqlx.Rows
	var err error
	if namespaceID != nil {
		rows, err = p.db.QueryxContext(ctx, `
			SELECT chunk_text, document_id, document_name, pos, embedding <-> $1 AS distance
			FROM kb_chunks WHERE namespace_id = $2
			ORDER BY distance LIMIT $3`, vec, *namespaceID, k)
	} else {
		rows, err = p.db.QueryxContext(ctx, `
			SELECT chunk_text, document_id, document_name, pos, embedding <-> $1 AS distance
			FROM kb_chunks
			ORDER BY distance LIMIT $2`, vec, k)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		if err := rows.Scan(&hit.Text, &hit.DocumentID, &hit.DocumentName, &hit.Position, &hit.Distance); err != nil {
			return nil, err
		}
		hit.Similarity = similarity(hit.Distance)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (p *PGVector) DropNamespace(ctx context.Context, namespaceID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kb_chunks WHERE namespace_id = $1`, namespaceID)
	return err
}
