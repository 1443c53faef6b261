package domain

// MappingType describes how closely a clause relates to its matched regulation.
type MappingType string

const (
	MappingDirectRequirement MappingType = "direct_requirement"
	MappingRelatedObligation MappingType = "related_obligation"
	MappingSupportingClause  MappingType = "supporting_clause"
	MappingUnmapped          MappingType = "unmapped"
)

// ComplianceStatus is the judged alignment between a clause and its regulation.
type ComplianceStatus string

const (
	StatusCompliant          ComplianceStatus = "compliant"
	StatusPartiallyCompliant ComplianceStatus = "partially_compliant"
	StatusNonCompliant       ComplianceStatus = "non_compliant"
	StatusUnclear            ComplianceStatus = "unclear"
)

// ConfidenceTier buckets how trustworthy a similarity-based match is.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// ComplianceMapping is the inferred relationship between one clause and its
// best-matching regulation. Exactly one mapping exists per clause per run,
// and it is never mutated after creation; a re-run produces a new mapping.
//
// Clause category, flags, and the matched regulation's jurisdiction are
// denormalized onto the mapping so category agents can operate on mappings
// alone.
type ComplianceMapping struct {
	ClauseID           string           `json:"clause_id"                     db:"clause_id"`
	RegulationID       string           `json:"regulation_id,omitempty"       db:"regulation_id"`
	MappingType        MappingType      `json:"mapping_type"                  db:"mapping_type"`
	Status             ComplianceStatus `json:"compliance_status"             db:"compliance_status"`
	Score              float64          `json:"compliance_score"              db:"compliance_score"`
	Tier               ConfidenceTier   `json:"confidence_tier"               db:"confidence_tier"`
	Coverage           float64          `json:"coverage_percentage"           db:"coverage_percentage"`
	MissingElements    []string         `json:"missing_elements,omitempty"    db:"missing_elements"`
	AdditionalElements []string         `json:"additional_elements,omitempty" db:"additional_elements"`
	GapDescription     string           `json:"gap_description,omitempty"     db:"gap_description"`
	Recommendations    []string         `json:"recommendations,omitempty"     db:"recommendations"`

	ClauseCategory         Category `json:"clause_category"                   db:"clause_category"`
	MandatoryLanguage      bool     `json:"mandatory_language"                db:"mandatory_language"`
	PenaltyClause          bool     `json:"penalty_clause"                    db:"penalty_clause"`
	RegulationJurisdiction string   `json:"regulation_jurisdiction,omitempty" db:"regulation_jurisdiction"`
}

// Unmapped reports whether the clause found no regulation above the floor.
func (m ComplianceMapping) Unmapped() bool {
	return m.MappingType == MappingUnmapped
}
