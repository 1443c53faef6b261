package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"minecomply/internal/adapter/store"
	"minecomply/internal/domain"
	"minecomply/internal/port"
	"minecomply/internal/service"
)

// RunAnalysisRequest starts one analysis run for a registered document.
type RunAnalysisRequest struct {
	DocumentID   string `json:"document_id" validate:"required"`
	Jurisdiction string `json:"jurisdiction"`
}

// AnalysisHandler handles analysis run endpoints.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	store           *store.PostgresStore
	tracker         *JobTracker
	log             *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService *service.AnalysisService, pgStore *store.PostgresStore, tracker *JobTracker, log *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		store:           pgStore,
		tracker:         tracker,
		log:             log,
	}
}

// Register sets up analysis routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	analysis := router.Group("/analysis")
	analysis.Post("/run", h.RunAnalysis)
}

// RunAnalysis accepts a job and returns 202 immediately. The pipeline runs
// in the background; progress is observable via the jobs endpoints.
func (h *AnalysisHandler) RunAnalysis(c fiber.Ctx) error {
	var req RunAnalysisRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := h.store.GetDocumentByID(c.Context(), req.DocumentID); err != nil {
		if errors.Is(err, port.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
		}
		h.log.Error("get document failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load document"})
	}

	clauses, err := h.store.ListClausesByDocument(c.Context(), req.DocumentID)
	if err != nil {
		h.log.Error("list clauses failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load clauses"})
	}
	if len(clauses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "document has no clauses"})
	}

	regulations, err := h.store.ListRegulations(c.Context(), req.Jurisdiction, "")
	if err != nil {
		h.log.Error("list regulations failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load regulation catalog"})
	}

	analysisID := uuid.New().String()
	jobID := uuid.New().String()

	if err := h.store.CreateAnalysis(c.Context(), analysisID, req.DocumentID, req.Jurisdiction); err != nil {
		h.log.Error("create analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not record analysis"})
	}
	h.tracker.CreateJob(jobID, req.DocumentID, analysisID)

	// Run the pipeline in background — no HTTP connection held
	go h.runAnalysisJob(jobID, analysisID, req.DocumentID, req.Jurisdiction, clauses, regulations)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":      jobID,
		"analysis_id": analysisID,
		"message":     "analysis started",
	})
}

// runAnalysisJob executes one pipeline run, mirroring every state transition
// into the job tracker and the analyses table.
func (h *AnalysisHandler) runAnalysisJob(jobID, analysisID, documentID, jurisdiction string, clauses []domain.Clause, regulations []domain.Regulation) {
	ctx := context.Background()

	observe := func(state domain.RunState) {
		h.tracker.UpdateJob(jobID, state, "")
		if !state.Terminal() {
			if err := h.store.UpdateAnalysisState(ctx, analysisID, state, ""); err != nil {
				h.log.Warn("persist analysis state failed", zap.String("analysis_id", analysisID), zap.Error(err))
			}
		}
	}

	result, mappings, err := h.analysisService.Run(ctx, analysisID, documentID, jurisdiction, clauses, regulations, observe)
	if err != nil {
		h.tracker.UpdateJob(jobID, domain.StateFailed, err.Error())
		if dbErr := h.store.UpdateAnalysisState(ctx, analysisID, domain.StateFailed, err.Error()); dbErr != nil {
			h.log.Error("persist failed state failed", zap.String("analysis_id", analysisID), zap.Error(dbErr))
		}
		return
	}

	if err := h.store.SaveMappings(ctx, analysisID, mappings); err != nil {
		h.log.Error("save mappings failed", zap.String("analysis_id", analysisID), zap.Error(err))
	}
	if err := h.store.SaveAnalysisResult(ctx, result); err != nil {
		h.log.Error("save analysis result failed", zap.String("analysis_id", analysisID), zap.Error(err))
	}
	if err := h.store.UpdateDocumentStatus(ctx, documentID, "analyzed"); err != nil {
		h.log.Warn("update document status failed", zap.String("document_id", documentID), zap.Error(err))
	}

	h.log.Info("analysis job complete",
		zap.String("job_id", jobID),
		zap.String("analysis_id", analysisID),
		zap.Float64("overall_score", result.OverallScore),
		zap.String("overall_risk", string(result.OverallRisk)),
	)
}
