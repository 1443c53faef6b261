package index

import (
	"testing"

	"minecomply/internal/domain"
	"minecomply/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() []domain.Regulation {
	return []domain.Regulation{
		{ID: "WHS_ACT_2011_S19", Jurisdiction: "nsw", Category: domain.CategorySafety, Embedding: []float32{1, 0, 0}},
		{ID: "EPA_ACT_1994_S12", Jurisdiction: "qld", Category: domain.CategoryEnvironmental, Embedding: []float32{0, 1, 0}},
		{ID: "MINING_ACT_1992_S5", Jurisdiction: "nsw", Category: domain.CategoryOperational, Embedding: []float32{0.6, 0.8, 0}},
		{ID: "FAIR_WORK_2009_S45", Jurisdiction: "federal", Category: domain.CategoryLegal, Embedding: []float32{0, 0, 1}},
	}
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.5}
	b := []float32{0.1, 0.9, -0.4, 0.2}
	assert.Equal(t, Cosine(a, b), Cosine(b, a))
}

func TestCosineSelfSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Cosine([]float32{1, 0, 0}, []float32{1, 0, 0}))

	a := []float32{0.37, -0.12, 0.88, 0.05}
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-12)
}

func TestCosineZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}))
}

func TestSearchOrderingAndThreshold(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	got, err := idx.Search("c1", []float32{1, 0, 0}, nil, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "WHS_ACT_2011_S19", got[0].RegulationID)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, "MINING_ACT_1992_S5", got[1].RegulationID)
	assert.InDelta(t, 0.6, got[1].Score, 1e-9)

	// Equal scores break ties by regulation ID ascending.
	assert.Equal(t, "EPA_ACT_1994_S12", got[2].RegulationID)
	assert.Equal(t, "FAIR_WORK_2009_S45", got[3].RegulationID)

	for _, c := range got {
		assert.Equal(t, "c1", c.ClauseID)
		assert.Equal(t, MethodCosine, c.Method)
	}
}

func TestSearchRespectsMinThreshold(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	got, err := idx.Search("c1", []float32{1, 0, 0}, nil, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.Score, 0.5)
	}
}

func TestSearchTruncatesToK(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	got, err := idx.Search("c1", []float32{1, 1, 1}, nil, 2, 0.0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchJurisdictionFilter(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	got, err := idx.Search("c1", []float32{1, 1, 1}, []string{"nsw", "federal"}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.NotEqual(t, "EPA_ACT_1994_S12", c.RegulationID)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	_, err = idx.Search("c1", []float32{1, 0}, nil, 10, 0.0)
	var embErr *port.InvalidEmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 3, embErr.Want)
	assert.Equal(t, 2, embErr.Got)
}

func TestSearchEmptyCorpus(t *testing.T) {
	idx, err := New(nil)
	require.NoError(t, err)

	got, err := idx.Search("c1", []float32{1, 0, 0}, nil, 10, 0.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchInvalidArguments(t *testing.T) {
	idx, err := New(testCorpus())
	require.NoError(t, err)

	_, err = idx.Search("c1", []float32{1, 0, 0}, nil, 0, 0.0)
	assert.Error(t, err)

	_, err = idx.Search("c1", []float32{1, 0, 0}, nil, 5, 1.5)
	assert.Error(t, err)
}

func TestNewRejectsMixedDimensions(t *testing.T) {
	_, err := New([]domain.Regulation{
		{ID: "r1", Embedding: []float32{1, 0}},
		{ID: "r2", Embedding: []float32{1, 0, 0}},
	})
	var embErr *port.InvalidEmbeddingError
	assert.ErrorAs(t, err, &embErr)
}
