// Package index ranks regulation candidates for a clause embedding by cosine
// similarity. The index is built once per run from an immutable regulation
// set and safe for concurrent read-only queries.
package index

import (
	"fmt"
	"math"
	"sort"

	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// MethodCosine tags candidates produced by in-process cosine ranking.
const MethodCosine = "cosine_similarity"

// Index holds the regulation corpus for one analysis run.
type Index struct {
	regulations []domain.Regulation
	dimension   int
}

// New builds an index over the given regulations. The first non-empty
// embedding fixes the corpus dimensionality; regulations whose embedding
// does not match are rejected.
func New(regulations []domain.Regulation) (*Index, error) {
	idx := &Index{}
	for _, reg := range regulations {
		if len(reg.Embedding) == 0 {
			continue
		}
		if idx.dimension == 0 {
			idx.dimension = len(reg.Embedding)
		}
		if len(reg.Embedding) != idx.dimension {
			return nil, fmt.Errorf("regulation %s: %w", reg.ID,
				&port.InvalidEmbeddingError{Want: idx.dimension, Got: len(reg.Embedding)})
		}
		idx.regulations = append(idx.regulations, reg)
	}
	return idx, nil
}

// Dimension returns the corpus embedding dimensionality (0 if the corpus is empty).
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Size returns the number of indexed regulations.
func (idx *Index) Size() int {
	return len(idx.regulations)
}

// Search returns the top-k regulation candidates for a clause embedding,
// restricted to the given jurisdictions (empty filter means all). Results are
// ordered by descending score with ties broken by regulation ID ascending,
// and every returned score is >= minThreshold. An empty corpus yields an
// empty result, not an error.
func (idx *Index) Search(clauseID string, embedding []float32, jurisdictions []string, k int, minThreshold float64) ([]domain.SimilarityCandidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("search: k must be >= 1, got %d", k)
	}
	if minThreshold < 0 || minThreshold > 1 {
		return nil, fmt.Errorf("search: min threshold must be in [0,1], got %g", minThreshold)
	}
	if len(idx.regulations) == 0 {
		return nil, nil
	}
	if len(embedding) != idx.dimension {
		return nil, &port.InvalidEmbeddingError{Want: idx.dimension, Got: len(embedding)}
	}

	allowed := make(map[string]bool, len(jurisdictions))
	for _, j := range jurisdictions {
		allowed[j] = true
	}

	var candidates []domain.SimilarityCandidate
	for _, reg := range idx.regulations {
		if len(allowed) > 0 && !allowed[reg.Jurisdiction] {
			continue
		}
		score := Cosine(embedding, reg.Embedding)
		if score < minThreshold {
			continue
		}
		candidates = append(candidates, domain.SimilarityCandidate{
			ClauseID:     clauseID,
			RegulationID: reg.ID,
			Score:        score,
			Method:       MethodCosine,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].RegulationID < candidates[j].RegulationID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Cosine computes the cosine similarity dot(a,b)/(|a|*|b|) of two equal-length
// vectors. A zero vector yields similarity 0, not an error.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / math.Sqrt(normA*normB)
	// Guard against float drift outside the valid range.
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
