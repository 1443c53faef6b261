package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"minecomply/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapped(clauseID string, category domain.Category, score float64, status domain.ComplianceStatus) domain.ComplianceMapping {
	return domain.ComplianceMapping{
		ClauseID:               clauseID,
		RegulationID:           "REG_" + clauseID,
		MappingType:            domain.MappingDirectRequirement,
		Status:                 status,
		Score:                  score,
		Coverage:               score,
		Tier:                   domain.TierHigh,
		ClauseCategory:         category,
		RegulationJurisdiction: "nsw",
	}
}

func TestAgentsNeutralFindingOnEmptyScope(t *testing.T) {
	ctx := context.Background()

	agents := []interface {
		Analyze(context.Context, []domain.ComplianceMapping) (*domain.AgentFinding, error)
	}{
		NewSafetyAgent(DefaultOptions()),
		NewEnvironmentalAgent(DefaultOptions()),
		NewOperationalAgent(DefaultOptions()),
		NewLegalAgent(DefaultOptions()),
	}

	for _, a := range agents {
		finding, err := a.Analyze(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, finding.Score)
		assert.Equal(t, domain.RiskLow, finding.RiskLevel)
		assert.Empty(t, finding.Recommendations)
	}
}

func TestSafetyAgentIdempotent(t *testing.T) {
	agent := NewSafetyAgent(DefaultOptions())
	mappings := []domain.ComplianceMapping{
		mapped("c1", domain.CategorySafety, 0.9, domain.StatusCompliant),
		mapped("c2", domain.CategorySafety, 0.65, domain.StatusPartiallyCompliant),
	}
	mappings[1].GapDescription = "missing mandatory elements: must"
	mappings[1].Recommendations = []string{"Add missing obligations to clause c2: must"}

	first, err := agent.Analyze(context.Background(), mappings)
	require.NoError(t, err)
	second, err := agent.Analyze(context.Background(), mappings)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSafetyAgentMandatoryEscalation(t *testing.T) {
	agent := NewSafetyAgent(DefaultOptions())

	bad := mapped("c1", domain.CategorySafety, 0.55, domain.StatusNonCompliant)
	bad.MandatoryLanguage = true
	good := mapped("c2", domain.CategorySafety, 0.95, domain.StatusCompliant)
	good2 := mapped("c3", domain.CategorySafety, 0.95, domain.StatusCompliant)
	good3 := mapped("c4", domain.CategorySafety, 0.95, domain.StatusCompliant)

	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{bad, good, good2, good3})
	require.NoError(t, err)

	// Aggregate score is healthy, but the mandatory non-compliance forces high.
	assert.GreaterOrEqual(t, finding.Score, 0.80)
	assert.Equal(t, domain.RiskHigh, finding.RiskLevel)
}

func TestCriticalOnNonCompliantPenaltyClause(t *testing.T) {
	agent := NewSafetyAgent(DefaultOptions())

	bad := mapped("c1", domain.CategorySafety, 0.3, domain.StatusNonCompliant)
	bad.PenaltyClause = true

	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{bad})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, finding.RiskLevel)
}

func TestRiskBands(t *testing.T) {
	agent := NewOperationalAgent(DefaultOptions())

	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0.55, domain.RiskHigh},
		{0.70, domain.RiskMedium},
		{0.90, domain.RiskLow},
	}
	for _, tt := range tests {
		m := mapped("c1", domain.CategoryOperational, tt.score, domain.StatusPartiallyCompliant)
		finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{m})
		require.NoError(t, err)
		assert.Equal(t, tt.want, finding.RiskLevel, "score %g", tt.score)
	}
}

func TestEnvironmentalAgentDualLayerMinimum(t *testing.T) {
	agent := NewEnvironmentalAgent(DefaultOptions())

	state := mapped("c1", domain.CategoryEnvironmental, 0.95, domain.StatusCompliant)
	federal := mapped("c2", domain.CategoryEnvironmental, 0.62, domain.StatusPartiallyCompliant)
	federal.RegulationJurisdiction = domain.JurisdictionFederal

	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{state, federal})
	require.NoError(t, err)

	// The weaker (federal) layer is the category score.
	assert.InDelta(t, 0.62, finding.Score, 1e-9)
}

func TestOperationalAgentDiscountsLowTier(t *testing.T) {
	agent := NewOperationalAgent(DefaultOptions())

	strong := mapped("c1", domain.CategoryOperational, 0.9, domain.StatusCompliant)
	weak := mapped("c2", domain.CategoryOperational, 0.3, domain.StatusNonCompliant)
	weak.Tier = domain.TierLow

	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{strong, weak})
	require.NoError(t, err)

	// Low-tier mapping contributes at half weight: (1.0*0.9 + 0.5*0.3) / 1.5.
	assert.InDelta(t, 0.7, finding.Score, 1e-9)
}

func TestLegalAgentCoversCommercialClauses(t *testing.T) {
	agent := NewLegalAgent(DefaultOptions())

	commercial := mapped("c1", domain.CategoryCommercial, 0.75, domain.StatusPartiallyCompliant)
	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{commercial})
	require.NoError(t, err)
	assert.Equal(t, 1, finding.MappingsScoped)
}

func TestLegalAgentUnclearPenaltyAtLeastMedium(t *testing.T) {
	agent := NewLegalAgent(DefaultOptions())

	m := mapped("c1", domain.CategoryLegal, 0.95, domain.StatusUnclear)
	m.PenaltyClause = true

	finding, err := agent.Analyze(context.Background(), []domain.ComplianceMapping{m})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, finding.RiskLevel.Severity(), domain.RiskMedium.Severity())
}

func TestRecommendationsDedupedOrderedAndCapped(t *testing.T) {
	var mappings []domain.ComplianceMapping

	// Two mappings sharing one gap description dedupe to one recommendation.
	dup1 := mapped("c1", domain.CategorySafety, 0.65, domain.StatusPartiallyCompliant)
	dup1.GapDescription = "Missing Mandatory Elements: must"
	dup1.Recommendations = []string{"Add missing obligations: must"}
	dup2 := mapped("c2", domain.CategorySafety, 0.65, domain.StatusPartiallyCompliant)
	dup2.GapDescription = "missing mandatory elements:   MUST"
	dup2.Recommendations = []string{"Add missing obligations: must (duplicate)"}
	mappings = append(mappings, dup1, dup2)

	worst := mapped("c0", domain.CategorySafety, 0.2, domain.StatusNonCompliant)
	worst.GapDescription = "no alignment with hazard controls"
	worst.Recommendations = []string{"Revise clause c0"}
	mappings = append(mappings, worst)

	for i := 0; i < 15; i++ {
		m := mapped(fmt.Sprintf("x%02d", i), domain.CategorySafety, 0.65, domain.StatusPartiallyCompliant)
		m.GapDescription = fmt.Sprintf("gap %02d", i)
		m.Recommendations = []string{fmt.Sprintf("fix gap %02d", i)}
		mappings = append(mappings, m)
	}

	agent := NewSafetyAgent(DefaultOptions())
	finding, err := agent.Analyze(context.Background(), mappings)
	require.NoError(t, err)

	assert.Len(t, finding.Recommendations, 10)
	// Highest-risk mapping's recommendation comes first.
	assert.Equal(t, "Revise clause c0", finding.Recommendations[0])
	// The normalized duplicate appears once.
	assert.Contains(t, finding.Recommendations, "Add missing obligations: must")
	assert.NotContains(t, finding.Recommendations, "Add missing obligations: must (duplicate)")
}
