package aggregate

import (
	"testing"

	"minecomply/internal/domain"
	"minecomply/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finding(category domain.Category, score float64, risk domain.RiskLevel, recs ...string) *domain.AgentFinding {
	return &domain.AgentFinding{
		AgentName:       string(category) + "_agent",
		Category:        category,
		RiskLevel:       risk,
		Score:           score,
		Recommendations: recs,
	}
}

func allFindings() map[domain.Category]*domain.AgentFinding {
	return map[domain.Category]*domain.AgentFinding{
		domain.CategorySafety:        finding(domain.CategorySafety, 0.9, domain.RiskLow, "safety rec"),
		domain.CategoryEnvironmental: finding(domain.CategoryEnvironmental, 0.8, domain.RiskMedium, "env rec"),
		domain.CategoryOperational:   finding(domain.CategoryOperational, 0.7, domain.RiskLow, "ops rec"),
		domain.CategoryLegal:         finding(domain.CategoryLegal, 0.6, domain.RiskLow, "legal rec"),
	}
}

func TestAggregateWeightedScoreExact(t *testing.T) {
	agg, err := New(DefaultOptions())
	require.NoError(t, err)

	result, err := agg.Aggregate("a1", "d1", allFindings())
	require.NoError(t, err)

	want := 0.4*0.9 + 0.3*0.8 + 0.2*0.7 + 0.1*0.6
	assert.Equal(t, want, result.OverallScore)
	assert.GreaterOrEqual(t, result.OverallScore, 0.0)
	assert.LessOrEqual(t, result.OverallScore, 1.0)
}

func TestAggregateSeverityEscalation(t *testing.T) {
	agg, err := New(DefaultOptions())
	require.NoError(t, err)

	findings := allFindings()
	findings[domain.CategoryLegal] = finding(domain.CategoryLegal, 0.95, domain.RiskCritical, "urgent legal rec")

	result, err := agg.Aggregate("a1", "d1", findings)
	require.NoError(t, err)

	// One critical agent elevates the whole result regardless of scores.
	assert.Equal(t, domain.RiskCritical, result.OverallRisk)
	// Critical agent's recommendations lead the priority list.
	assert.Equal(t, "urgent legal rec", result.PriorityActions[0])
}

func TestAggregateMissingCategoryFails(t *testing.T) {
	agg, err := New(DefaultOptions())
	require.NoError(t, err)

	findings := allFindings()
	delete(findings, domain.CategoryEnvironmental)

	_, err = agg.Aggregate("a1", "d1", findings)
	var incomplete *port.IncompleteAnalysisError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []domain.Category{domain.CategoryEnvironmental}, incomplete.Missing)
}

func TestAggregatePriorityActionOrderAndCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxActions = 3
	agg, err := New(opts)
	require.NoError(t, err)

	findings := map[domain.Category]*domain.AgentFinding{
		domain.CategorySafety:        finding(domain.CategorySafety, 0.9, domain.RiskLow, "low-risk safety rec"),
		domain.CategoryEnvironmental: finding(domain.CategoryEnvironmental, 0.5, domain.RiskHigh, "env rec 1", "env rec 2"),
		domain.CategoryOperational:   finding(domain.CategoryOperational, 0.7, domain.RiskMedium, "ops rec"),
		domain.CategoryLegal:         finding(domain.CategoryLegal, 0.6, domain.RiskLow, "legal rec"),
	}

	result, err := agg.Aggregate("a1", "d1", findings)
	require.NoError(t, err)

	assert.Equal(t, []string{"env rec 1", "env rec 2", "ops rec"}, result.PriorityActions)
}

func TestAggregateDeduplicatesActions(t *testing.T) {
	agg, err := New(DefaultOptions())
	require.NoError(t, err)

	findings := allFindings()
	findings[domain.CategorySafety] = finding(domain.CategorySafety, 0.9, domain.RiskLow, "shared rec")
	findings[domain.CategoryLegal] = finding(domain.CategoryLegal, 0.6, domain.RiskLow, "shared rec")

	result, err := agg.Aggregate("a1", "d1", findings)
	require.NoError(t, err)

	count := 0
	for _, a := range result.PriorityActions {
		if a == "shared rec" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestInvalidWeightConfiguration(t *testing.T) {
	opts := DefaultOptions()
	opts.Weights[domain.CategorySafety] = 0.7 // sum now 1.3

	_, err := New(opts)
	var weightErr *port.InvalidWeightConfigurationError
	require.ErrorAs(t, err, &weightErr)
	assert.InDelta(t, 1.3, weightErr.Sum, 1e-9)
}

func TestAggregateCategoryBreakdown(t *testing.T) {
	agg, err := New(DefaultOptions())
	require.NoError(t, err)

	result, err := agg.Aggregate("a1", "d1", allFindings())
	require.NoError(t, err)

	require.Len(t, result.Categories, 4)
	assert.Equal(t, 0.9, result.Categories[domain.CategorySafety].Score)
	assert.Equal(t, domain.RiskMedium, result.Categories[domain.CategoryEnvironmental].RiskLevel)
}
