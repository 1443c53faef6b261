package mapping

import (
	"testing"

	"minecomply/internal/domain"
	"minecomply/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var whsReg = domain.Regulation{
	ID:           "WHS_ACT_2011_S19",
	Jurisdiction: "nsw",
	Category:     domain.CategorySafety,
	ActName:      "Work Health and Safety Act 2011",
	Section:      "s19",
	Text:         "A person conducting a business or undertaking shall maintain a safety management system and review it annually.",
}

func regLookup(regs ...domain.Regulation) map[string]domain.Regulation {
	m := make(map[string]domain.Regulation, len(regs))
	for _, r := range regs {
		m[r.ID] = r
	}
	return m
}

func safetyClause() domain.Clause {
	return domain.Clause{
		ID:                "c1",
		DocumentID:        "doc1",
		Text:              "Contractor shall maintain a safety management system reviewed annually",
		Category:          domain.CategorySafety,
		MandatoryLanguage: true,
	}
}

func candidate(score float64) []domain.SimilarityCandidate {
	return []domain.SimilarityCandidate{{
		ClauseID:     "c1",
		RegulationID: whsReg.ID,
		Score:        score,
		Method:       "cosine_similarity",
	}}
}

func TestTierBandingContract(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		score float64
		want  domain.ConfidenceTier
	}{
		{0.90, domain.TierHigh},
		{0.85, domain.TierHigh},
		{0.75, domain.TierMedium},
		{0.70, domain.TierMedium},
		{0.69, domain.TierLow},
		{0.50, domain.TierLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, opts.Tier(tt.score), "score %g", tt.score)
	}
}

func TestBuildHighConfidenceCompliant(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	m, err := b.Build(safetyClause(), candidate(0.87), regLookup(whsReg))
	require.NoError(t, err)

	assert.Equal(t, domain.TierHigh, m.Tier)
	assert.Equal(t, domain.StatusCompliant, m.Status)
	assert.Equal(t, domain.MappingDirectRequirement, m.MappingType)
	assert.Equal(t, whsReg.ID, m.RegulationID)
	assert.Equal(t, "nsw", m.RegulationJurisdiction)
	assert.Empty(t, m.MissingElements)
	assert.InDelta(t, 0.87, m.Score, 1e-9)
}

func TestBuildUnmappedBelowFloor(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	for _, cands := range [][]domain.SimilarityCandidate{nil, candidate(0.58)} {
		m, err := b.Build(safetyClause(), cands, regLookup(whsReg))
		require.NoError(t, err)

		assert.Equal(t, domain.MappingUnmapped, m.MappingType)
		assert.Equal(t, domain.StatusUnclear, m.Status)
		assert.Equal(t, 0.0, m.Score)
		assert.Equal(t, domain.TierLow, m.Tier)
		assert.Empty(t, m.RegulationID)
	}
}

func TestBuildEmptyClauseFails(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	clause := safetyClause()
	clause.Text = "   "
	_, err := b.Build(clause, candidate(0.9), regLookup(whsReg))

	var malformed *port.MalformedClauseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "c1", malformed.ClauseID)
}

func TestBuildMediumTierPartiallyCompliant(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	m, err := b.Build(safetyClause(), candidate(0.75), regLookup(whsReg))
	require.NoError(t, err)

	assert.Equal(t, domain.TierMedium, m.Tier)
	assert.Equal(t, domain.MappingRelatedObligation, m.MappingType)
	assert.Equal(t, domain.StatusPartiallyCompliant, m.Status)
	assert.NotEmpty(t, m.Recommendations)
}

func TestBuildMissingMandatoryElementsLowerScore(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	reg := whsReg
	reg.Text = "The operator must comply with the safety management system requirements."
	clause := safetyClause()
	clause.Text = "Contractor maintains a safety management system" // no "must", no "comply with"
	clause.MandatoryLanguage = true

	m, err := b.Build(clause, candidate(0.90), regLookup(reg))
	require.NoError(t, err)

	assert.Contains(t, m.MissingElements, "must")
	assert.Contains(t, m.MissingElements, "comply with")
	assert.InDelta(t, 0.90*0.85, m.Score, 1e-9)
	assert.NotEqual(t, domain.StatusCompliant, m.Status)
	assert.NotEmpty(t, m.GapDescription)
}

func TestBuildAdditionalElements(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	clause := safetyClause()
	clause.Text = "Contractor shall maintain a safety management system and provide quarterly rebates"

	m, err := b.Build(clause, candidate(0.87), regLookup(whsReg))
	require.NoError(t, err)

	assert.Contains(t, m.AdditionalElements, "rebates")
	assert.Contains(t, m.AdditionalElements, "quarterly")
}

func TestBuildScoreMonotonicity(t *testing.T) {
	b := NewBuilder(DefaultOptions())

	prev := -1.0
	for _, score := range []float64{0.60, 0.65, 0.72, 0.80, 0.87, 0.95} {
		m, err := b.Build(safetyClause(), candidate(score), regLookup(whsReg))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.Score, prev, "score %g", score)
		prev = m.Score
	}
}

func TestBuildUnclearTieBreakNearThreshold(t *testing.T) {
	// With the classification floor lowered below retrieval's threshold, a
	// low-confidence match inside the ambiguous band is unclear rather than
	// non-compliant.
	opts := DefaultOptions()
	opts.Floor = 0.50
	b := NewBuilder(opts)

	m, err := b.Build(safetyClause(), candidate(0.58), regLookup(whsReg))
	require.NoError(t, err)

	assert.Equal(t, domain.TierLow, m.Tier)
	assert.Equal(t, domain.StatusUnclear, m.Status)

	m, err = b.Build(safetyClause(), candidate(0.52), regLookup(whsReg))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNonCompliant, m.Status)
}

func TestHasMandatoryAndPenaltyLanguage(t *testing.T) {
	assert.True(t, HasMandatoryLanguage("The contractor shall notify the regulator", nil))
	assert.False(t, HasMandatoryLanguage("The parties may meet quarterly", nil))
	assert.True(t, HasPenaltyLanguage("A breach attracts a fine of 500 penalty units"))
	assert.False(t, HasPenaltyLanguage("The parties may meet quarterly"))
}
