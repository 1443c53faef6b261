package agents

import (
	"context"

	"minecomply/internal/domain"
)

// SafetyAgent evaluates work health and safety mappings. Safety obligations
// written in mandatory language are hard requirements: a non-compliant
// mapping on such a clause is high risk no matter the aggregate score.
type SafetyAgent struct {
	opts Options
}

func NewSafetyAgent(opts Options) *SafetyAgent {
	return &SafetyAgent{opts: opts}
}

func (a *SafetyAgent) Name() string { return "safety_agent" }
func (a *SafetyAgent) Description() string {
	return "Work health and safety compliance: safety management systems, hazard controls, emergency procedures"
}
func (a *SafetyAgent) Category() domain.Category { return domain.CategorySafety }

func (a *SafetyAgent) Analyze(_ context.Context, mappings []domain.ComplianceMapping) (*domain.AgentFinding, error) {
	scoped := inScope(mappings, domain.CategorySafety)
	if len(scoped) == 0 {
		return neutralFinding(a.Name(), a.Category()), nil
	}

	score := weightedScore(scoped, baseWeight)
	risk := baseRisk(score, scoped)
	for _, m := range scoped {
		if m.Status == domain.StatusNonCompliant && m.MandatoryLanguage {
			risk = domain.MaxRisk(risk, domain.RiskHigh)
		}
	}

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
