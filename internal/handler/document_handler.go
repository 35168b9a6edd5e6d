package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
)

// DocumentHandler exposes stored documents and their chunks.
type DocumentHandler struct {
	docs port.DocumentStore
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(docs port.DocumentStore) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Register sets up document routes.
func (h *DocumentHandler) Register(router fiber.Router) {
	documents := router.Group("/documents")
	documents.Get("/", h.List)
	documents.Get("/:id", h.Get)
}

// List returns a page of document metadata.
func (h *DocumentHandler) List(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	docs, err := h.docs.ListDocuments(c.Context(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if docs == nil {
		docs = []domain.DocumentMetadata{}
	}
	return c.JSON(fiber.Map{
		"documents": docs,
		"limit":     limit,
		"offset":    offset,
	})
}

// Get returns a document with its ordered chunks.
func (h *DocumentHandler) Get(c fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.docs.GetDocument(c.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	chunks, err := h.docs.GetDocumentChunks(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}

	return c.JSON(fiber.Map{
		"document": doc,
		"chunks":   chunks,
	})
}

func queryInt(c fiber.Ctx, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
