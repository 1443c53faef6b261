package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"minecomply/internal/domain"
	"minecomply/internal/index"
)

// VectorStore runs pgvector similarity queries against the regulation
// catalog. It serves the same retrieval contract as the in-memory index but
// pushes the scan into Postgres, for catalogs too large to hold per run.
type VectorStore struct {
	store *PostgresStore
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore) *VectorStore {
	return &VectorStore{store: store}
}

// SearchSimilar returns the regulations most similar to the clause embedding,
// highest cosine similarity first, capped at limit. An empty jurisdiction
// list matches the whole catalog.
func (v *VectorStore) SearchSimilar(ctx context.Context, clauseID string, embedding []float32, jurisdictions []string, limit int, minScore float64) ([]domain.SimilarityCandidate, error) {
	vec := pgvector.NewVector(embedding)

	query := `SELECT id, 1 - (embedding <=> $1) AS similarity
	          FROM regulations
	          WHERE embedding IS NOT NULL
	            AND 1 - (embedding <=> $1) >= $2`
	args := []interface{}{vec, minScore}

	if len(jurisdictions) > 0 {
		query += ` AND jurisdiction = ANY($3)`
		args = append(args, pq.Array(jurisdictions))
		query += ` ORDER BY embedding <=> $1, id LIMIT $4`
	} else {
		query += ` ORDER BY embedding <=> $1, id LIMIT $3`
	}
	args = append(args, limit)

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var candidates []domain.SimilarityCandidate
	for rows.Next() {
		var c domain.SimilarityCandidate
		if err := rows.Scan(&c.RegulationID, &c.Score); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		c.ClauseID = clauseID
		c.Method = index.MethodCosine
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
