package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/service"
)

// DefaultTextWeight balances vector and lexical scores when the caller does
// not specify one.
const DefaultTextWeight = 0.3

// SearchHandler exposes the retrieval engine over HTTP. Backend failures
// degrade to an empty result list here, at the boundary, after being logged;
// the engine itself always raises typed errors.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Register sets up search routes.
func (h *SearchHandler) Register(router fiber.Router) {
	search := router.Group("/search")
	search.Post("/vector", h.Vector)
	search.Post("/text", h.Lexical)
	search.Post("/hybrid", h.Hybrid)
}

type searchRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit"`
	TextWeight *float64 `json:"text_weight"`
}

// Vector performs pure vector-similarity search.
func (h *SearchHandler) Vector(c fiber.Ctx) error {
	var req searchRequest
	if ok, err := bindSearchRequest(c, &req); !ok {
		return err
	}
	results, err := h.search.VectorSearch(c.Context(), req.Query, req.Limit)
	if err != nil {
		slog.Error("vector search failed", "query", req.Query, "error", err)
		return c.JSON(emptyResults())
	}
	return c.JSON(fiber.Map{"results": nonNil(results)})
}

// Lexical performs pure full-text search.
func (h *SearchHandler) Lexical(c fiber.Ctx) error {
	var req searchRequest
	if ok, err := bindSearchRequest(c, &req); !ok {
		return err
	}
	results, err := h.search.LexicalSearch(c.Context(), req.Query, req.Limit)
	if err != nil {
		slog.Error("lexical search failed", "query", req.Query, "error", err)
		return c.JSON(emptyResults())
	}
	return c.JSON(fiber.Map{"results": nonNil(results)})
}

// Hybrid performs weighted vector+lexical search.
func (h *SearchHandler) Hybrid(c fiber.Ctx) error {
	var req searchRequest
	if ok, err := bindSearchRequest(c, &req); !ok {
		return err
	}
	textWeight := DefaultTextWeight
	if req.TextWeight != nil {
		textWeight = *req.TextWeight
	}
	results, err := h.search.HybridSearch(c.Context(), req.Query, req.Limit, textWeight)
	if err != nil {
		slog.Error("hybrid search failed", "query", req.Query, "error", err)
		return c.JSON(emptyResults())
	}
	return c.JSON(fiber.Map{"results": nonNil(results)})
}

// bindSearchRequest decodes and validates the request body; on failure it
// writes the 400 response and reports ok=false.
func bindSearchRequest(c fiber.Ctx, req *searchRequest) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	return true, nil
}

func emptyResults() fiber.Map {
	return fiber.Map{"results": []domain.SearchResult{}}
}

func nonNil(results []domain.SearchResult) []domain.SearchResult {
	if results == nil {
		return []domain.SearchResult{}
	}
	return results
}
