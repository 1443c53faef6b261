package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Migrate applies the schema. Idempotent; safe to run at every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			doc_type    TEXT NOT NULL DEFAULT 'contract',
			status      TEXT NOT NULL DEFAULT 'registered',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS clauses (
			id                 TEXT PRIMARY KEY,
			document_id        TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			text               TEXT NOT NULL,
			category           TEXT NOT NULL,
			section_ref        TEXT NOT NULL DEFAULT '',
			mandatory_language BOOLEAN NOT NULL DEFAULT FALSE,
			penalty_clause     BOOLEAN NOT NULL DEFAULT FALSE,
			embedding          vector
		)`,
		`CREATE TABLE IF NOT EXISTS regulations (
			id           TEXT PRIMARY KEY,
			jurisdiction TEXT NOT NULL,
			category     TEXT NOT NULL,
			act_name     TEXT NOT NULL,
			section      TEXT NOT NULL DEFAULT '',
			text         TEXT NOT NULL,
			embedding    vector
		)`,
		`CREATE TABLE IF NOT EXISTS compliance_mappings (
			id                      BIGSERIAL PRIMARY KEY,
			analysis_id             TEXT NOT NULL,
			clause_id               TEXT NOT NULL,
			regulation_id           TEXT NOT NULL DEFAULT '',
			mapping_type            TEXT NOT NULL,
			compliance_status       TEXT NOT NULL,
			compliance_score        DOUBLE PRECISION NOT NULL,
			confidence_tier         TEXT NOT NULL,
			coverage_percentage     DOUBLE PRECISION NOT NULL DEFAULT 0,
			missing_elements        TEXT[] NOT NULL DEFAULT '{}',
			additional_elements     TEXT[] NOT NULL DEFAULT '{}',
			gap_description         TEXT NOT NULL DEFAULT '',
			recommendations         TEXT[] NOT NULL DEFAULT '{}',
			clause_category         TEXT NOT NULL,
			mandatory_language      BOOLEAN NOT NULL DEFAULT FALSE,
			penalty_clause          BOOLEAN NOT NULL DEFAULT FALSE,
			regulation_jurisdiction TEXT NOT NULL DEFAULT '',
			created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_analysis ON compliance_mappings (analysis_id)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			analysis_id      TEXT PRIMARY KEY,
			document_id      TEXT NOT NULL,
			jurisdiction     TEXT NOT NULL DEFAULT '',
			state            TEXT NOT NULL,
			overall_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
			overall_risk     TEXT NOT NULL DEFAULT '',
			priority_actions TEXT[] NOT NULL DEFAULT '{}',
			categories       JSONB NOT NULL DEFAULT '{}',
			clauses_analyzed INTEGER NOT NULL DEFAULT 0,
			skipped_clauses  TEXT[] NOT NULL DEFAULT '{}',
			error            TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at     TIMESTAMPTZ
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- Documents ---

// CreateDocument inserts a document record.
func (s *PostgresStore) CreateDocument(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	query := `INSERT INTO documents (id, name, doc_type, status)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, name, doc_type, status, created_at`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, d.ID, d.Name, d.DocType, d.Status).Scan(
		&doc.ID, &doc.Name, &doc.DocType, &doc.Status, &doc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &doc, nil
}

// GetDocumentByID retrieves a document by ID.
func (s *PostgresStore) GetDocumentByID(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT id, name, doc_type, status, created_at FROM documents WHERE id = $1`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Name, &doc.DocType, &doc.Status, &doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	query := `SELECT id, name, doc_type, status, created_at FROM documents ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.DocType, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates a document's processing status.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	query := `UPDATE documents SET status = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, status, id)
	return err
}

// --- Clauses ---

// InsertClauses persists extracted clauses in one transaction.
func (s *PostgresStore) InsertClauses(ctx context.Context, clauses []domain.Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clauses (id, document_id, text, category, section_ref, mandatory_language, penalty_clause, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			category = EXCLUDED.category,
			section_ref = EXCLUDED.section_ref,
			mandatory_language = EXCLUDED.mandatory_language,
			penalty_clause = EXCLUDED.penalty_clause,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range clauses {
		var embedding interface{}
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.Text, c.Category, c.SectionRef,
			c.MandatoryLanguage, c.PenaltyClause, embedding,
		); err != nil {
			return fmt.Errorf("insert clause %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ListClausesByDocument returns all clauses extracted from a document.
func (s *PostgresStore) ListClausesByDocument(ctx context.Context, documentID string) ([]domain.Clause, error) {
	query := `SELECT id, document_id, text, category, section_ref, mandatory_language, penalty_clause, embedding
	          FROM clauses WHERE document_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list clauses: %w", err)
	}
	defer rows.Close()

	var clauses []domain.Clause
	for rows.Next() {
		var c domain.Clause
		var embedding sql.Null[pgvector.Vector]
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.Text, &c.Category, &c.SectionRef,
			&c.MandatoryLanguage, &c.PenaltyClause, &embedding,
		); err != nil {
			return nil, fmt.Errorf("scan clause: %w", err)
		}
		if embedding.Valid {
			c.Embedding = embedding.V.Slice()
		}
		clauses = append(clauses, c)
	}
	return clauses, rows.Err()
}

// --- Regulations ---

// UpsertRegulations loads or refreshes the regulation catalog in one transaction.
func (s *PostgresStore) UpsertRegulations(ctx context.Context, regulations []domain.Regulation) error {
	if len(regulations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO regulations (id, jurisdiction, category, act_name, section, text, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			category = EXCLUDED.category,
			act_name = EXCLUDED.act_name,
			section = EXCLUDED.section,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range regulations {
		var embedding interface{}
		if len(r.Embedding) > 0 {
			embedding = pgvector.NewVector(r.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Jurisdiction, r.Category, r.ActName, r.Section, r.Text, embedding,
		); err != nil {
			return fmt.Errorf("upsert regulation %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// ListRegulations returns catalog provisions, optionally filtered by
// jurisdiction and category. Empty filters match everything.
func (s *PostgresStore) ListRegulations(ctx context.Context, jurisdiction string, category domain.Category) ([]domain.Regulation, error) {
	query := `SELECT id, jurisdiction, category, act_name, section, text, embedding FROM regulations`
	args := []interface{}{}
	argIdx := 1

	if jurisdiction != "" {
		query += fmt.Sprintf(" WHERE jurisdiction IN ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, jurisdiction, domain.JurisdictionFederal)
		argIdx += 2
	}
	if category != "" {
		if len(args) > 0 {
			query += fmt.Sprintf(" AND category = $%d", argIdx)
		} else {
			query += fmt.Sprintf(" WHERE category = $%d", argIdx)
		}
		args = append(args, category)
	}

	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list regulations: %w", err)
	}
	defer rows.Close()

	var regulations []domain.Regulation
	for rows.Next() {
		var r domain.Regulation
		var embedding sql.Null[pgvector.Vector]
		if err := rows.Scan(
			&r.ID, &r.Jurisdiction, &r.Category, &r.ActName, &r.Section, &r.Text, &embedding,
		); err != nil {
			return nil, fmt.Errorf("scan regulation: %w", err)
		}
		if embedding.Valid {
			r.Embedding = embedding.V.Slice()
		}
		regulations = append(regulations, r)
	}
	return regulations, rows.Err()
}

// --- Compliance Mappings ---

// SaveMappings persists a run's mappings in one transaction.
func (s *PostgresStore) SaveMappings(ctx context.Context, analysisID string, mappings []domain.ComplianceMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO compliance_mappings (
			analysis_id, clause_id, regulation_id, mapping_type, compliance_status,
			compliance_score, confidence_tier, coverage_percentage, missing_elements,
			additional_elements, gap_description, recommendations, clause_category,
			mandatory_language, penalty_clause, regulation_jurisdiction
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err := stmt.ExecContext(ctx,
			analysisID, m.ClauseID, m.RegulationID, m.MappingType, m.Status,
			m.Score, m.Tier, m.Coverage, pq.Array(m.MissingElements),
			pq.Array(m.AdditionalElements), m.GapDescription, pq.Array(m.Recommendations),
			m.ClauseCategory, m.MandatoryLanguage, m.PenaltyClause, m.RegulationJurisdiction,
		); err != nil {
			return fmt.Errorf("insert mapping for clause %s: %w", m.ClauseID, err)
		}
	}

	return tx.Commit()
}

// ListMappingsByAnalysis returns the mappings recorded for one run.
func (s *PostgresStore) ListMappingsByAnalysis(ctx context.Context, analysisID string) ([]domain.ComplianceMapping, error) {
	query := `SELECT clause_id, regulation_id, mapping_type, compliance_status, compliance_score,
	                 confidence_tier, coverage_percentage, missing_elements, additional_elements,
	                 gap_description, recommendations, clause_category, mandatory_language,
	                 penalty_clause, regulation_jurisdiction
	          FROM compliance_mappings WHERE analysis_id = $1 ORDER BY clause_id`

	rows, err := s.db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.ComplianceMapping
	for rows.Next() {
		var m domain.ComplianceMapping
		if err := rows.Scan(
			&m.ClauseID, &m.RegulationID, &m.MappingType, &m.Status, &m.Score,
			&m.Tier, &m.Coverage, pq.Array(&m.MissingElements), pq.Array(&m.AdditionalElements),
			&m.GapDescription, pq.Array(&m.Recommendations), &m.ClauseCategory,
			&m.MandatoryLanguage, &m.PenaltyClause, &m.RegulationJurisdiction,
		); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// --- Analyses ---

// AnalysisRow is a stored analysis run: its lifecycle state plus the result
// once completed.
type AnalysisRow struct {
	AnalysisID      string          `json:"analysis_id"`
	DocumentID      string          `json:"document_id"`
	Jurisdiction    string          `json:"jurisdiction"`
	State           domain.RunState `json:"state"`
	OverallScore    float64         `json:"overall_compliance_score"`
	OverallRisk     string          `json:"overall_risk_level"`
	PriorityActions []string        `json:"priority_actions"`
	Categories      json.RawMessage `json:"category_breakdown"`
	ClausesAnalyzed int             `json:"clauses_analyzed"`
	SkippedClauses  []string        `json:"skipped_clauses,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// CreateAnalysis records a queued run before the pipeline starts.
func (s *PostgresStore) CreateAnalysis(ctx context.Context, analysisID, documentID, jurisdiction string) error {
	query := `INSERT INTO analyses (analysis_id, document_id, jurisdiction, state)
	          VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, analysisID, documentID, jurisdiction, domain.StateQueued)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}
	return nil
}

// UpdateAnalysisState records a pipeline transition.
func (s *PostgresStore) UpdateAnalysisState(ctx context.Context, analysisID string, state domain.RunState, runErr string) error {
	query := `UPDATE analyses SET state = $1, error = $2 WHERE analysis_id = $3`
	_, err := s.db.ExecContext(ctx, query, state, runErr, analysisID)
	return err
}

// SaveAnalysisResult stores the terminal result of a completed run.
func (s *PostgresStore) SaveAnalysisResult(ctx context.Context, result *domain.AnalysisResult) error {
	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	query := `UPDATE analyses SET
			state = $1,
			overall_score = $2,
			overall_risk = $3,
			priority_actions = $4,
			categories = $5,
			clauses_analyzed = $6,
			skipped_clauses = $7,
			completed_at = $8
		WHERE analysis_id = $9`

	_, err = s.db.ExecContext(ctx, query,
		domain.StateCompleted, result.OverallScore, result.OverallRisk,
		pq.Array(result.PriorityActions), categories, result.ClausesAnalyzed,
		pq.Array(result.SkippedClauses), result.CompletedAt, result.AnalysisID,
	)
	if err != nil {
		return fmt.Errorf("save analysis result: %w", err)
	}
	return nil
}

// GetAnalysis retrieves one analysis run by ID.
func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*AnalysisRow, error) {
	query := `SELECT analysis_id, document_id, jurisdiction, state, overall_score, overall_risk,
	                 priority_actions, categories, clauses_analyzed, skipped_clauses, error,
	                 created_at, completed_at
	          FROM analyses WHERE analysis_id = $1`

	var row AnalysisRow
	var categories []byte
	err := s.db.QueryRowContext(ctx, query, analysisID).Scan(
		&row.AnalysisID, &row.DocumentID, &row.Jurisdiction, &row.State,
		&row.OverallScore, &row.OverallRisk, pq.Array(&row.PriorityActions),
		&categories, &row.ClausesAnalyzed, pq.Array(&row.SkippedClauses),
		&row.Error, &row.CreatedAt, &row.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	row.Categories = categories
	return &row, nil
}

// ListAnalysesByDocument returns a document's runs, newest first.
func (s *PostgresStore) ListAnalysesByDocument(ctx context.Context, documentID string) ([]AnalysisRow, error) {
	query := `SELECT analysis_id, document_id, jurisdiction, state, overall_score, overall_risk,
	                 priority_actions, categories, clauses_analyzed, skipped_clauses, error,
	                 created_at, completed_at
	          FROM analyses WHERE document_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var results []AnalysisRow
	for rows.Next() {
		var row AnalysisRow
		var categories []byte
		if err := rows.Scan(
			&row.AnalysisID, &row.DocumentID, &row.Jurisdiction, &row.State,
			&row.OverallScore, &row.OverallRisk, pq.Array(&row.PriorityActions),
			&categories, &row.ClausesAnalyzed, pq.Array(&row.SkippedClauses),
			&row.Error, &row.CreatedAt, &row.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		row.Categories = categories
		results = append(results, row)
	}
	return results, rows.Err()
}
