package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/service"
)

// IngestHandler triggers batch ingestion runs as background jobs. Jobs run
// under the server-lifetime context, not the request context, so they outlive
// the HTTP call but still abort cleanly on shutdown.
type IngestHandler struct {
	ingest  *service.IngestService
	tracker *JobTracker
	base    context.Context
}

// NewIngestHandler creates a new ingest handler. base bounds the lifetime of
// background jobs; cancelling it aborts in-flight ingestions.
func NewIngestHandler(base context.Context, ingest *service.IngestService, tracker *JobTracker) *IngestHandler {
	if base == nil {
		base = context.Background()
	}
	return &IngestHandler{ingest: ingest, tracker: tracker, base: base}
}

// Register sets up ingestion routes.
func (h *IngestHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.Start)
}

// Start launches an asynchronous batch ingestion over a documents folder and
// returns the job id for progress polling or SSE streaming.
func (h *IngestHandler) Start(c fiber.Ctx) error {
	var body struct {
		Path  string `json:"path"`
		Clean bool   `json:"clean"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}

	jobID := uuid.New().String()
	h.tracker.CreateJob(jobID, body.Path)

	go h.runJob(jobID, body.Path, body.Clean)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

// runJob executes one ingestion job to completion or until the server-lifetime
// context is cancelled.
func (h *IngestHandler) runJob(jobID, path string, clean bool) {
	results, err := h.ingest.IngestDirectory(h.base, path, clean,
		func(done, total int, result domain.IngestionResult) {
			h.tracker.RecordProgress(jobID, done, total, result)
		})
	if err != nil {
		slog.Error("ingestion job failed", "job_id", jobID, "error", err)
		h.tracker.Complete(jobID, err.Error())
		return
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("ingestion job finished", "job_id", jobID, "documents", len(results), "failed", failed)
	h.tracker.Complete(jobID, "")
}
