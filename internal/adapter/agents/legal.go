package agents

import (
	"context"

	"minecomply/internal/domain"
)

// LegalAgent evaluates legal and commercial mappings. Commercial terms fall
// under legal review because the catalog has no separate commercial agent.
// An unclear verdict on a penalty clause is never left low risk: ambiguity
// plus financial exposure warrants review.
type LegalAgent struct {
	opts Options
}

func NewLegalAgent(opts Options) *LegalAgent {
	return &LegalAgent{opts: opts}
}

func (a *LegalAgent) Name() string { return "legal_agent" }
func (a *LegalAgent) Description() string {
	return "Legal and commercial compliance: statutory provisions, liabilities, penalty and termination terms"
}
func (a *LegalAgent) Category() domain.Category { return domain.CategoryLegal }

func (a *LegalAgent) Analyze(_ context.Context, mappings []domain.ComplianceMapping) (*domain.AgentFinding, error) {
	scoped := inScope(mappings, domain.CategoryLegal, domain.CategoryCommercial)
	if len(scoped) == 0 {
		return neutralFinding(a.Name(), a.Category()), nil
	}

	score := weightedScore(scoped, baseWeight)
	risk := baseRisk(score, scoped)
	for _, m := range scoped {
		if m.Status == domain.StatusUnclear && m.PenaltyClause {
			risk = domain.MaxRisk(risk, domain.RiskMedium)
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
