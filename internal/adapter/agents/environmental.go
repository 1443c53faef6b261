package agents

import (
	"context"

	"minecomply/internal/domain"
)

// EnvironmentalAgent evaluates environmental mappings. Mining contractors
// carry dual-layer obligations: federal law and the state or territory the
// site operates in. The agent tracks both layers and reports the weaker one
// as its category score, so strong state alignment cannot mask a federal gap.
type EnvironmentalAgent struct {
	opts Options
}

func NewEnvironmentalAgent(opts Options) *EnvironmentalAgent {
	return &EnvironmentalAgent{opts: opts}
}

func (a *EnvironmentalAgent) Name() string { return "environmental_agent" }
func (a *EnvironmentalAgent) Description() string {
	return "Environmental compliance: impact assessment, water management, rehabilitation, waste handling"
}
func (a *EnvironmentalAgent) Category() domain.Category { return domain.CategoryEnvironmental }

func (a *EnvironmentalAgent) Analyze(_ context.Context, mappings []domain.ComplianceMapping) (*domain.AgentFinding, error) {
	scoped := inScope(mappings, domain.CategoryEnvironmental)
	if len(scoped) == 0 {
		return neutralFinding(a.Name(), a.Category()), nil
	}

	// Unmapped clauses count against both layers: an unmatched environmental
	// obligation is a gap regardless of which level of law it belongs to.
	var federal, state []domain.ComplianceMapping
	for _, m := range scoped {
		switch {
		case m.Unmapped():
			federal = append(federal, m)
			state = append(state, m)
		case m.RegulationJurisdiction == domain.JurisdictionFederal:
			federal = append(federal, m)
		default:
			state = append(state, m)
		}
	}

	federalScore := weightedScore(federal, baseWeight)
	stateScore := weightedScore(state, baseWeight)
	score := federalScore
	if stateScore < score {
		score = stateScore
	}

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
