package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex with brute-force cosine search
// over the rows of one namespace.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts or replaces records in one transaction.
func (v *vectorIndex) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dim := len(records[0].Vector)
	var existing int
	err = tx.QueryRowContext(ctx, "SELECT dim FROM vectors WHERE namespace = ? LIMIT 1", namespace).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading namespace dimension: %w", err)
	default:
		dim = existing
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (namespace, id, chunk_index, dim, vector, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			chunk_index = excluded.chunk_index,
			dim = excluded.dim,
			vector = excluded.vector,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			return fmt.Errorf("%w: vector dimension %d, namespace uses %d", domain.ErrInvalidInput, len(r.Vector), dim)
		}
		payload, err := json.Marshal(r.Chunk)
		if err != nil {
			return fmt.Errorf("marshalling chunk: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, namespace, r.ID, r.Chunk.Index, dim,
			float32SliceToBytes(r.Vector), string(payload)); err != nil {
			return fmt.Errorf("saving vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search scores every vector in the namespace and returns the best k.
func (v *vectorIndex) Search(ctx context.Context, namespace string, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id, vector, payload FROM vectors WHERE namespace = ?", namespace)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var id, payload string
		var blob []byte
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != len(query) {
			return nil, fmt.Errorf("%w: query dimension %d, namespace uses %d", domain.ErrInvalidInput, len(query), len(vec))
		}
		var chunk domain.Chunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk: %w", err)
		}
		hits = append(hits, driven.VectorHit{ID: id, Chunk: chunk, Similarity: rank.Cosine(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return rank.Top(hits, k), nil
}

// Count returns the number of vectors in a namespace.
func (v *vectorIndex) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE namespace = ?", namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// DeleteNamespace removes every vector in a namespace.
func (v *vectorIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("deleting namespace: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (v *vectorIndex) Close() error {
	return nil
}
