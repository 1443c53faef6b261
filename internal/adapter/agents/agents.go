// Package agents implements the closed set of category compliance agents.
// Every agent is a pure function over its in-scope mappings: no mutation, no
// shared state, identical input produces identical output.
package agents

import (
	"sort"
	"strings"

	"minecomply/internal/domain"
)

// Options configures agent behavior shared across all categories.
type Options struct {
	// MaxRecommendations caps the recommendations one agent reports.
	MaxRecommendations int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{MaxRecommendations: 10}
}

func (o Options) maxRecs() int {
	if o.MaxRecommendations < 1 {
		return 10
	}
	return o.MaxRecommendations
}

// inScope filters mappings to the given clause categories, preserving order.
func inScope(mappings []domain.ComplianceMapping, categories ...domain.Category) []domain.ComplianceMapping {
	allowed := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	var scoped []domain.ComplianceMapping
	for _, m := range mappings {
		if allowed[m.ClauseCategory] {
			scoped = append(scoped, m)
		}
	}
	return scoped
}

// neutralFinding is returned when an agent has nothing in scope: the absence
// of relevant clauses is not itself a compliance violation.
func neutralFinding(name string, category domain.Category) *domain.AgentFinding {
	return &domain.AgentFinding{
		AgentName:       name,
		Category:        category,
		RiskLevel:       domain.RiskLow,
		Score:           1.0,
		Recommendations: []string{},
	}
}

// baseWeight doubles the contribution of penalty clauses: non-performance
// there carries direct financial exposure.
func baseWeight(m domain.ComplianceMapping) float64 {
	if m.PenaltyClause {
		return 2.0
	}
	return 1.0
}

// weightedScore computes the weighted mean compliance score over mappings.
// An empty set scores a neutral 1.0.
func weightedScore(mappings []domain.ComplianceMapping, weight func(domain.ComplianceMapping) float64) float64 {
	var sum, total float64
	for _, m := range mappings {
		w := weight(m)
		sum += w * m.Score
		total += w
	}
	if total == 0 {
		return 1.0
	}
	return sum / total
}

// baseRisk derives the shared risk level rules: critical when any in-scope
// mapping is non-compliant on a penalty clause, then banded by score.
func baseRisk(score float64, mappings []domain.ComplianceMapping) domain.RiskLevel {
	for _, m := range mappings {
		if m.Status == domain.StatusNonCompliant && m.PenaltyClause {
			return domain.RiskCritical
		}
	}
	switch {
	case score < 0.60:
		return domain.RiskHigh
	case score < 0.80:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// mappingRisk ranks a single mapping for recommendation ordering.
func mappingRisk(m domain.ComplianceMapping) int {
	rank := 0
	switch m.Status {
	case domain.StatusNonCompliant:
		rank = 3
	case domain.StatusPartiallyCompliant:
		rank = 2
	case domain.StatusUnclear:
		rank = 1
	}
	if m.PenaltyClause {
		rank++
	}
	return rank
}

// normalizeGap canonicalizes gap text for de-duplication.
func normalizeGap(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// collectRecommendations gathers one recommendation per distinct gap across
// the in-scope mappings, ordered by descending associated risk and capped.
// It also returns the clause IDs carrying gaps.
func collectRecommendations(mappings []domain.ComplianceMapping, max int) (recs []string, gapRefs []string) {
	ordered := make([]domain.ComplianceMapping, len(mappings))
	copy(ordered, mappings)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := mappingRisk(ordered[i]), mappingRisk(ordered[j])
		if ri != rj {
			return ri > rj
		}
		return ordered[i].ClauseID < ordered[j].ClauseID
	})

	seen := make(map[string]bool)
	for _, m := range ordered {
		if m.GapDescription != "" {
			gapRefs = append(gapRefs, m.ClauseID)
		}
		if len(m.Recommendations) == 0 {
			continue
		}
		key := normalizeGap(m.GapDescription)
		if key == "" {
			key = normalizeGap(m.Recommendations[0])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(recs) < max {
			recs = append(recs, m.Recommendations[0])
		}
	}
	if recs == nil {
		recs = []string{}
	}
	return recs, gapRefs
}
