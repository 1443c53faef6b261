package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"minecomply/internal/adapter/store"
	"minecomply/internal/domain"
	"minecomply/internal/mapping"
	"minecomply/internal/port"
)

var validate = validator.New()

// ClauseRequest is one clause in a document registration payload. The
// mandatory-language and penalty flags are derived from the text when the
// caller does not set them.
type ClauseRequest struct {
	ID                string          `json:"id"`
	Text              string          `json:"text" validate:"required"`
	Category          domain.Category `json:"category" validate:"required,oneof=safety environmental operational commercial legal"`
	SectionRef        string          `json:"section_ref"`
	MandatoryLanguage *bool           `json:"mandatory_language"`
	PenaltyClause     *bool           `json:"penalty_clause"`
	Embedding         []float32       `json:"embedding"`
}

// RegisterDocumentRequest registers a contract and its extracted clauses.
type RegisterDocumentRequest struct {
	Name    string          `json:"name" validate:"required"`
	DocType string          `json:"doc_type"`
	Clauses []ClauseRequest `json:"clauses" validate:"required,min=1,dive"`
}

// DocumentsHandler handles contract document and clause endpoints.
type DocumentsHandler struct {
	store    *store.PostgresStore
	embedder port.EmbeddingProvider
	log      *zap.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(pgStore *store.PostgresStore, embedder port.EmbeddingProvider, log *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{store: pgStore, embedder: embedder, log: log}
}

// Register sets up document routes.
func (h *DocumentsHandler) Register(router fiber.Router) {
	docs := router.Group("/documents")
	docs.Post("/", h.RegisterDocument)
	docs.Get("/", h.ListDocuments)
	docs.Get("/:id", h.GetDocument)
	docs.Get("/:id/clauses", h.ListClauses)
}

// RegisterDocument stores a document with its clauses.
func (h *DocumentsHandler) RegisterDocument(c fiber.Ctx) error {
	var req RegisterDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.DocType == "" {
		req.DocType = "contract"
	}
	doc, err := h.store.CreateDocument(c.Context(), &domain.Document{
		ID:      uuid.New().String(),
		Name:    req.Name,
		DocType: req.DocType,
		Status:  "registered",
	})
	if err != nil {
		h.log.Error("create document failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not register document"})
	}

	clauses := make([]domain.Clause, 0, len(req.Clauses))
	for _, cr := range req.Clauses {
		id := cr.ID
		if id == "" {
			id = uuid.New().String()
		}
		mandatory := mapping.HasMandatoryLanguage(cr.Text, nil)
		if cr.MandatoryLanguage != nil {
			mandatory = *cr.MandatoryLanguage
		}
		penalty := mapping.HasPenaltyLanguage(cr.Text)
		if cr.PenaltyClause != nil {
			penalty = *cr.PenaltyClause
		}
		clauses = append(clauses, domain.Clause{
			ID:                id,
			DocumentID:        doc.ID,
			Text:              cr.Text,
			Category:          cr.Category,
			SectionRef:        cr.SectionRef,
			MandatoryLanguage: mandatory,
			PenaltyClause:     penalty,
			Embedding:         cr.Embedding,
		})
	}
	h.embedMissing(c, clauses)
	if err := h.store.InsertClauses(c.Context(), clauses); err != nil {
		h.log.Error("insert clauses failed", zap.String("document_id", doc.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not store clauses"})
	}

	h.log.Info("document registered",
		zap.String("document_id", doc.ID),
		zap.Int("clauses", len(clauses)),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document": doc,
		"clauses":  len(clauses),
	})
}

// embedMissing fills in vectors for clauses registered without one. Failures
// are logged, not fatal: the analysis run re-embeds anything still missing.
func (h *DocumentsHandler) embedMissing(c fiber.Ctx, clauses []domain.Clause) {
	if h.embedder == nil {
		return
	}
	var texts []string
	var idx []int
	for i, cl := range clauses {
		if len(cl.Embedding) == 0 && cl.Text != "" {
			texts = append(texts, cl.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return
	}
	vectors, err := h.embedder.EmbedBatch(c.Context(), texts)
	if err != nil {
		h.log.Warn("clause embedding at registration failed", zap.Error(err))
		return
	}
	for i, vec := range vectors {
		clauses[idx[i]].Embedding = vec
	}
}

// ListDocuments returns all registered documents.
func (h *DocumentsHandler) ListDocuments(c fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.Context())
	if err != nil {
		h.log.Error("list documents failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list documents"})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// GetDocument returns one document by ID.
func (h *DocumentsHandler) GetDocument(c fiber.Ctx) error {
	doc, err := h.store.GetDocumentByID(c.Context(), c.Params("id"))
	if err == port.ErrDocumentNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	if err != nil {
		h.log.Error("get document failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load document"})
	}
	return c.JSON(doc)
}

// ListClauses returns the clauses extracted from a document.
func (h *DocumentsHandler) ListClauses(c fiber.Ctx) error {
	if _, err := h.store.GetDocumentByID(c.Context(), c.Params("id")); err != nil {
		if err == port.ErrDocumentNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
		}
		h.log.Error("get document failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load document"})
	}

	clauses, err := h.store.ListClausesByDocument(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("list clauses failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list clauses"})
	}
	return c.JSON(fiber.Map{"clauses": clauses})
}
