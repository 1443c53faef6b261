package domain

import "time"

// Category classifies a clause or regulation into a compliance domain.
type Category string

const (
	CategorySafety        Category = "safety"
	CategoryEnvironmental Category = "environmental"
	CategoryOperational   Category = "operational"
	CategoryCommercial    Category = "commercial"
	CategoryLegal         Category = "legal"
)

// Clause is a single contractual obligation extracted from a vendor document.
// Clauses are immutable once extracted; they are owned by their source document.
type Clause struct {
	ID                string    `json:"id"                 db:"id"`
	DocumentID        string    `json:"document_id"        db:"document_id"`
	Text              string    `json:"text"               db:"text"`
	Category          Category  `json:"category"           db:"category"`
	SectionRef        string    `json:"section_ref"        db:"section_ref"`
	MandatoryLanguage bool      `json:"mandatory_language" db:"mandatory_language"`
	PenaltyClause     bool      `json:"penalty_clause"     db:"penalty_clause"`
	Embedding         []float32 `json:"-"                  db:"embedding"`
}

// Document is the vendor contract a set of clauses was extracted from.
// Parsing raw documents into clauses happens outside this system; a document
// record only anchors clause ownership and run bookkeeping.
type Document struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	DocType   string    `json:"doc_type"   db:"doc_type"`
	Status    string    `json:"status"     db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
