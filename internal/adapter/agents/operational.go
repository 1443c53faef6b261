package agents

import (
	"context"

	"minecomply/internal/domain"
)

// OperationalAgent evaluates operational mappings: reporting duties, site
// access, equipment standards. Low-confidence matches count as weaker
// evidence of alignment, so they contribute at reduced weight.
type OperationalAgent struct {
	opts Options
}

func NewOperationalAgent(opts Options) *OperationalAgent {
	return &OperationalAgent{opts: opts}
}

func (a *OperationalAgent) Name() string { return "operational_agent" }
func (a *OperationalAgent) Description() string {
	return "Operational compliance: reporting obligations, site access, equipment and maintenance standards"
}
func (a *OperationalAgent) Category() domain.Category { return domain.CategoryOperational }

func (a *OperationalAgent) Analyze(_ context.Context, mappings []domain.ComplianceMapping) (*domain.AgentFinding, error) {
	scoped := inScope(mappings, domain.CategoryOperational)
	if len(scoped) == 0 {
		return neutralFinding(a.Name(), a.Category()), nil
	}

	score := weightedScore(scoped, func(m domain.ComplianceMapping) float64 {
		w := baseWeight(m)
		if m.Tier == domain.TierLow {
			w *= 0.5
		}
		return w
	})
	risk := baseRisk(score, scoped)

	recs, gapRefs := collectRecommendations(scoped, a.opts.maxRecs())
	return &domain.AgentFinding{
		AgentName:       a.Name(),
		Category:        a.Category(),
		RiskLevel:       risk,
		Score:           score,
		GapRefs:         gapRefs,
		Recommendations: recs,
		MappingsScoped:  len(scoped),
	}, nil
}
