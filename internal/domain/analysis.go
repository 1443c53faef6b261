package domain

import "time"

// RunState is one stage of the analysis pipeline. Transitions run strictly
// forward; failed is terminal and reachable from every non-terminal state.
type RunState string

const (
	StateQueued            RunState = "queued"
	StateIngesting         RunState = "ingesting"
	StateExtractingClauses RunState = "extracting_clauses"
	StateMapping           RunState = "mapping"
	StateReasoning         RunState = "reasoning"
	StateCompleted         RunState = "completed"
	StateFailed            RunState = "failed"
)

// Terminal reports whether no further transition is possible from the state.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CategoryBreakdown summarizes one agent's contribution to the final result.
type CategoryBreakdown struct {
	Score           float64   `json:"score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	MappingsScoped  int       `json:"mappings_analyzed"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// AnalysisResult is the terminal artifact of one analysis run. It is
// immutable once produced and consumed by reporting collaborators.
//
// SkippedClauses lists clauses that could not be mapped due to per-clause
// errors; they are reported explicitly rather than silently dropped.
type AnalysisResult struct {
	AnalysisID      string                         `json:"analysis_id"      db:"analysis_id"`
	DocumentID      string                         `json:"document_id"      db:"document_id"`
	OverallScore    float64                        `json:"overall_compliance_score" db:"overall_score"`
	OverallRisk     RiskLevel                      `json:"overall_risk_level"       db:"overall_risk"`
	PriorityActions []string                       `json:"priority_actions"`
	Categories      map[Category]CategoryBreakdown `json:"category_breakdown"`
	ClausesAnalyzed int                            `json:"clauses_analyzed"`
	SkippedClauses  []string                       `json:"skipped_clauses,omitempty"`
	CompletedAt     time.Time                      `json:"completed_at"     db:"completed_at"`
}
