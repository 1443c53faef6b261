package domain

// RiskLevel grades the severity of a compliance finding.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// riskSeverity orders risk levels for comparisons. Higher is worse.
var riskSeverity = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Severity returns the numeric rank of a risk level (critical > high > medium > low).
func (r RiskLevel) Severity() int {
	return riskSeverity[r]
}

// MaxRisk returns the more severe of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// AgentFinding is one category agent's verdict over its in-scope mappings.
// One finding is produced per category per analysis run.
type AgentFinding struct {
	AgentName       string    `json:"agent_name"`
	Category        Category  `json:"category"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Score           float64   `json:"score"`
	GapRefs         []string  `json:"gap_refs,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	MappingsScoped  int       `json:"mappings_analyzed"`
}
