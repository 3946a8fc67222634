// Package server exposes one editing session and a workflow repository over
// HTTP with fiber.
package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/document"
	"github.com/meikuraledutech/workflow/graph"
	"github.com/meikuraledutech/workflow/internal/logging"
	"github.com/meikuraledutech/workflow/internal/metrics"
)

// Server serves the graph of one editing session.
type Server struct {
	app      *fiber.App
	store    *graph.Store
	repo     workflow.Repository
	logger   *slog.Logger
	metrics  *metrics.Metrics
	maxBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors served on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMaxImportBytes caps the size of an imported document.
func WithMaxImportBytes(n int64) Option {
	return func(s *Server) {
		s.maxBytes = n
	}
}

// New builds the fiber app over store and repo.
func New(store *graph.Store, repo workflow.Repository, opts ...Option) *Server {
	s := &Server{
		store:    store,
		repo:     repo,
		maxBytes: document.DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.app = fiber.New(fiber.Config{
		AppName: "flowctl",
		// Leave room for multipart framing around a full-size document.
		BodyLimit: int(s.maxBytes) + 64<<10,
	})
	s.app.Use(s.observe)
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	app := s.app

	app.Get("/catalog", s.catalog)
	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/nodes", s.addNode)
	app.Get("/nodes", s.listNodes)
	app.Get("/nodes/:id", s.getNode)
	app.Put("/nodes/:id", s.updateNode)
	app.Put("/nodes/:id/position", s.moveNode)
	app.Delete("/nodes/:id", s.removeNode)

	// ── Selection ─────────────────────────────────────────────────────
	app.Post("/nodes/:id/select", s.selectNode)
	app.Get("/selection", s.getSelection)
	app.Put("/selection", s.updateSelection)
	app.Delete("/selection", s.clearSelection)

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/edges", s.connect)
	app.Get("/edges", s.listEdges)

	app.Delete("/workflow", s.clear)

	// ── Documents ─────────────────────────────────────────────────────
	app.Get("/export", s.export)
	app.Get("/export/download", s.download)
	app.Post("/import", s.importDocument)

	// ── Repository ────────────────────────────────────────────────────
	app.Post("/workflows", s.saveWorkflow)
	app.Get("/workflows", s.listWorkflows)
	app.Get("/workflows/:id", s.getWorkflow)
	app.Post("/workflows/:id/load", s.loadWorkflow)
	app.Delete("/workflows/:id", s.deleteWorkflow)
}

// observe records latency per route.
func (s *Server) observe(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.metrics.Request(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
	return err
}

// statusOf maps domain errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInvalidConnection):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrUnknownNode), errors.Is(err, workflow.ErrWorkflowNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidRoleChange):
		return fiber.StatusConflict
	case errors.Is(err, workflow.ErrInvalidConfig), errors.Is(err, workflow.ErrMalformedDocument):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.logger.Warn("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badBody(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
}

// mutated records a mutation outcome and the resulting graph size.
func (s *Server) mutated(op string, err error) {
	s.metrics.Mutation(op, err)
	if err == nil {
		state := s.store.Snapshot()
		s.metrics.GraphSize(len(state.Nodes), len(state.Edges))
		s.logger.Debug("graph mutated", "op", op, "nodes", len(state.Nodes), "edges", len(state.Edges))
	}
}

func (s *Server) catalog(c fiber.Ctx) error {
	return c.JSON(workflow.DefaultCatalog())
}
