package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"minecomply/internal/adapter/store"
	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// ChecklistItem is one row of the per-clause compliance checklist derived
// from a run's mappings.
type ChecklistItem struct {
	ClauseID        string                  `json:"clause_id"`
	RegulationID    string                  `json:"regulation_id,omitempty"`
	Status          domain.ComplianceStatus `json:"compliance_status"`
	Score           float64                 `json:"compliance_score"`
	Tier            domain.ConfidenceTier   `json:"confidence_tier"`
	NeedsReview     bool                    `json:"needs_review"`
	GapDescription  string                  `json:"gap_description,omitempty"`
	Recommendations []string                `json:"recommendations,omitempty"`
}

// ReportsHandler serves analysis results and derived report views.
type ReportsHandler struct {
	store *store.PostgresStore
	log   *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(pgStore *store.PostgresStore, log *zap.Logger) *ReportsHandler {
	return &ReportsHandler{store: pgStore, log: log}
}

// Register sets up report routes.
func (h *ReportsHandler) Register(router fiber.Router) {
	analysis := router.Group("/analysis")
	analysis.Get("/:id", h.GetAnalysis)
	analysis.Get("/:id/mappings", h.GetMappings)
	analysis.Get("/:id/checklist", h.GetChecklist)

	router.Get("/documents/:id/analyses", h.ListDocumentAnalyses)
}

// GetAnalysis returns one analysis run, including the result if completed.
func (h *ReportsHandler) GetAnalysis(c fiber.Ctx) error {
	row, err := h.store.GetAnalysis(c.Context(), c.Params("id"))
	if errors.Is(err, port.ErrAnalysisNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "analysis not found"})
	}
	if err != nil {
		h.log.Error("get analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load analysis"})
	}
	return c.JSON(row)
}

// GetMappings returns the clause-to-regulation mappings recorded for a run.
func (h *ReportsHandler) GetMappings(c fiber.Ctx) error {
	if _, err := h.store.GetAnalysis(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, port.ErrAnalysisNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "analysis not found"})
		}
		h.log.Error("get analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load analysis"})
	}

	mappings, err := h.store.ListMappingsByAnalysis(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("list mappings failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list mappings"})
	}
	return c.JSON(fiber.Map{"mappings": mappings})
}

// GetChecklist returns the mappings condensed into a reviewer checklist.
// Unmapped, low-confidence, and unclear items are flagged for manual review.
func (h *ReportsHandler) GetChecklist(c fiber.Ctx) error {
	mappings, err := h.store.ListMappingsByAnalysis(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("list mappings failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list mappings"})
	}
	if len(mappings) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "analysis not found or has no mappings"})
	}

	items := make([]ChecklistItem, 0, len(mappings))
	var needsReview int
	for _, m := range mappings {
		review := m.Unmapped() || m.Tier == domain.TierLow || m.Status == domain.StatusUnclear
		if review {
			needsReview++
		}
		items = append(items, ChecklistItem{
			ClauseID:        m.ClauseID,
			RegulationID:    m.RegulationID,
			Status:          m.Status,
			Score:           m.Score,
			Tier:            m.Tier,
			NeedsReview:     review,
			GapDescription:  m.GapDescription,
			Recommendations: m.Recommendations,
		})
	}

	return c.JSON(fiber.Map{
		"items":        items,
		"total":        len(items),
		"needs_review": needsReview,
	})
}

// ListDocumentAnalyses returns a document's runs, newest first.
func (h *ReportsHandler) ListDocumentAnalyses(c fiber.Ctx) error {
	rows, err := h.store.ListAnalysesByDocument(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("list analyses failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list analyses"})
	}
	return c.JSON(fiber.Map{"analyses": rows})
}
