// Package aggregate folds per-category agent findings into one analysis
// result: a weighted compliance score, an escalated risk verdict, and a
// prioritized action list. The fold is deterministic and has no failure
// modes beyond incomplete input.
package aggregate

import (
	"math"
	"sort"
	"time"

	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// weightEpsilon tolerates float literal rounding when checking the weight sum.
const weightEpsilon = 1e-9

// categoryOrder fixes the tie-break order for equal-severity findings.
var categoryOrder = []domain.Category{
	domain.CategorySafety,
	domain.CategoryEnvironmental,
	domain.CategoryOperational,
	domain.CategoryLegal,
}

// Options configures the aggregation fold.
type Options struct {
	// Weights maps each expected category to its share of the overall score.
	// Must sum to 1.0.
	Weights map[domain.Category]float64
	// MaxActions caps the merged priority action list.
	MaxActions int
}

// DefaultOptions returns the documented category weighting: safety 0.4,
// environmental 0.3, operational 0.2, legal 0.1.
func DefaultOptions() Options {
	return Options{
		Weights: map[domain.Category]float64{
			domain.CategorySafety:        0.4,
			domain.CategoryEnvironmental: 0.3,
			domain.CategoryOperational:   0.2,
			domain.CategoryLegal:         0.1,
		},
		MaxActions: 10,
	}
}

// Validate checks the weight configuration. Weights that do not sum to 1.0
// are rejected up front, never mid-run.
func (o Options) Validate() error {
	var sum float64
	for _, w := range o.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return &port.InvalidWeightConfigurationError{Sum: sum}
	}
	return nil
}

// Aggregator combines agent findings into a terminal AnalysisResult.
type Aggregator struct {
	opts Options
}

// New creates an aggregator, validating the weight configuration.
func New(opts Options) (*Aggregator, error) {
	if opts.MaxActions < 1 {
		opts.MaxActions = 10
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{opts: opts}, nil
}

// Aggregate folds the findings into one result. Every weighted category must
// have reported a finding; a partial risk picture fails with
// IncompleteAnalysisError rather than presenting a best-effort score.
func (a *Aggregator) Aggregate(analysisID, documentID string, findings map[domain.Category]*domain.AgentFinding) (*domain.AnalysisResult, error) {
	var missing []domain.Category
	for _, c := range a.expectedCategories() {
		if findings[c] == nil {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &port.IncompleteAnalysisError{Missing: missing}
	}

	result := &domain.AnalysisResult{
		AnalysisID:  analysisID,
		DocumentID:  documentID,
		OverallRisk: domain.RiskLow,
		Categories:  make(map[domain.Category]domain.CategoryBreakdown, len(findings)),
		CompletedAt: time.Now().UTC(),
	}

	for _, c := range a.expectedCategories() {
		f := findings[c]
		result.OverallScore += a.opts.Weights[c] * f.Score
		result.OverallRisk = domain.MaxRisk(result.OverallRisk, f.RiskLevel)
		result.Categories[c] = domain.CategoryBreakdown{
			Score:           f.Score,
			RiskLevel:       f.RiskLevel,
			MappingsScoped:  f.MappingsScoped,
			Recommendations: f.Recommendations,
		}
	}

	result.PriorityActions = a.priorityActions(findings)
	return result, nil
}

// expectedCategories returns the weighted categories in canonical order,
// with any extra configured categories appended alphabetically.
func (a *Aggregator) expectedCategories() []domain.Category {
	var expected []domain.Category
	seen := make(map[domain.Category]bool)
	for _, c := range categoryOrder {
		if _, ok := a.opts.Weights[c]; ok {
			expected = append(expected, c)
			seen[c] = true
		}
	}
	var extra []domain.Category
	for c := range a.opts.Weights {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(expected, extra...)
}

// priorityActions merges agent recommendations ordered by agent severity
// descending, preserving each agent's declared order, de-duplicated and
// capped.
func (a *Aggregator) priorityActions(findings map[domain.Category]*domain.AgentFinding) []string {
	ordered := a.expectedCategories()
	sort.SliceStable(ordered, func(i, j int) bool {
		return findings[ordered[i]].RiskLevel.Severity() > findings[ordered[j]].RiskLevel.Severity()
	})

	seen := make(map[string]bool)
	actions := []string{}
	for _, c := range ordered {
		for _, rec := range findings[c].Recommendations {
			if seen[rec] || len(actions) >= a.opts.MaxActions {
				continue
			}
			seen[rec] = true
			actions = append(actions, rec)
		}
	}
	return actions
}
