package handler

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"minecomply/internal/adapter/store"
	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// RegulationRequest is one provision in a catalog load payload.
type RegulationRequest struct {
	ID           string          `json:"id" validate:"required"`
	Jurisdiction string          `json:"jurisdiction" validate:"required"`
	Category     domain.Category `json:"category" validate:"required,oneof=safety environmental operational commercial legal"`
	ActName      string          `json:"act_name" validate:"required"`
	Section      string          `json:"section"`
	Text         string          `json:"text" validate:"required"`
	Embedding    []float32       `json:"embedding"`
}

// LoadCatalogRequest loads or refreshes regulation provisions.
type LoadCatalogRequest struct {
	Regulations []RegulationRequest `json:"regulations" validate:"required,min=1,dive"`
}

// SearchCatalogRequest finds the provisions most similar to a piece of
// clause text, using the pgvector index over the stored catalog.
type SearchCatalogRequest struct {
	Text          string   `json:"text" validate:"required"`
	Jurisdictions []string `json:"jurisdictions"`
	Limit         int      `json:"limit"`
	MinScore      float64  `json:"min_score"`
}

// RegulationsHandler handles the regulation catalog endpoints.
type RegulationsHandler struct {
	store    *store.PostgresStore
	vector   *store.VectorStore
	embedder port.EmbeddingProvider
	log      *zap.Logger
}

// NewRegulationsHandler creates a new regulations handler.
func NewRegulationsHandler(pgStore *store.PostgresStore, vector *store.VectorStore, embedder port.EmbeddingProvider, log *zap.Logger) *RegulationsHandler {
	return &RegulationsHandler{store: pgStore, vector: vector, embedder: embedder, log: log}
}

// Register sets up regulation catalog routes.
func (h *RegulationsHandler) Register(router fiber.Router) {
	regs := router.Group("/regulations")
	regs.Post("/", h.LoadCatalog)
	regs.Get("/", h.ListCatalog)
	regs.Post("/search", h.SearchCatalog)
}

// LoadCatalog upserts provisions, embedding any that arrive without vectors.
func (h *RegulationsHandler) LoadCatalog(c fiber.Ctx) error {
	var req LoadCatalogRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	regulations := make([]domain.Regulation, 0, len(req.Regulations))
	var pendingTexts []string
	var pendingIdx []int
	for i, rr := range req.Regulations {
		regulations = append(regulations, domain.Regulation{
			ID:           rr.ID,
			Jurisdiction: rr.Jurisdiction,
			Category:     rr.Category,
			ActName:      rr.ActName,
			Section:      rr.Section,
			Text:         rr.Text,
			Embedding:    rr.Embedding,
		})
		if len(rr.Embedding) == 0 {
			pendingTexts = append(pendingTexts, rr.Text)
			pendingIdx = append(pendingIdx, i)
		}
	}

	if len(pendingTexts) > 0 {
		if h.embedder == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "regulations without embeddings require an embedding provider",
			})
		}
		vectors, err := h.embedder.EmbedBatch(c.Context(), pendingTexts)
		if err != nil {
			h.log.Error("embed regulations failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not embed regulations"})
		}
		for i, idx := range pendingIdx {
			regulations[idx].Embedding = vectors[i]
		}
	}

	if err := h.store.UpsertRegulations(c.Context(), regulations); err != nil {
		h.log.Error("upsert regulations failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not store regulations"})
	}

	h.log.Info("regulation catalog loaded",
		zap.Int("provisions", len(regulations)),
		zap.Int("embedded", len(pendingTexts)),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"loaded": len(regulations)})
}

// ListCatalog returns provisions, optionally filtered by jurisdiction (plus
// federal) and category.
func (h *RegulationsHandler) ListCatalog(c fiber.Ctx) error {
	jurisdiction := c.Query("jurisdiction")
	category := domain.Category(c.Query("category"))

	regulations, err := h.store.ListRegulations(c.Context(), jurisdiction, category)
	if err != nil {
		h.log.Error("list regulations failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list regulations"})
	}
	return c.JSON(fiber.Map{"regulations": regulations})
}

// SearchCatalog embeds the given text and runs a similarity query against
// the stored catalog. This is an exploratory tool for reviewers; analysis
// runs use their own retrieval over the run's corpus snapshot.
func (h *RegulationsHandler) SearchCatalog(c fiber.Ctx) error {
	var req SearchCatalogRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	if h.embedder == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no embedding provider configured"})
	}
	embedding, err := h.embedder.Embed(c.Context(), req.Text)
	if err != nil {
		h.log.Error("embed search text failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not embed search text"})
	}

	candidates, err := h.vector.SearchSimilar(c.Context(), "", embedding, req.Jurisdictions, req.Limit, req.MinScore)
	if err != nil {
		h.log.Error("catalog search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not search catalog"})
	}
	return c.JSON(fiber.Map{"candidates": candidates})
}
