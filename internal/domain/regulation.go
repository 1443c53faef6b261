package domain

// JurisdictionFederal marks regulations that apply nationwide regardless of
// the state or territory a contract is analyzed against.
const JurisdictionFederal = "federal"

// Regulation is a single statutory or code provision from the reference
// catalog. The catalog is loaded once per run and read-only during analysis.
type Regulation struct {
	ID           string    `json:"id"           db:"id"`
	Jurisdiction string    `json:"jurisdiction" db:"jurisdiction"`
	Category     Category  `json:"category"     db:"category"`
	ActName      string    `json:"act_name"     db:"act_name"`
	Section      string    `json:"section"      db:"section"`
	Text         string    `json:"text"         db:"text"`
	Embedding    []float32 `json:"-"            db:"embedding"`
}

// SimilarityCandidate pairs a clause with one regulation it may map to.
// Candidates are ephemeral: produced by the similarity index and consumed by
// the mapping builder within a single run, never persisted.
type SimilarityCandidate struct {
	ClauseID     string  `json:"clause_id"`
	RegulationID string  `json:"regulation_id"`
	Score        float64 `json:"score"`
	Method       string  `json:"method"`
}
