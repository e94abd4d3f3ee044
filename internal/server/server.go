// Package server exposes datasets, chat turns and response validation over HTTP.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/chat"
	"github.com/omule0/ai-csv-analyst/internal/logger"
	"github.com/omule0/ai-csv-analyst/internal/parser"
)

const module = "server"

// Deps are the collaborators a Server needs.
type Deps struct {
	Assistant *chat.Assistant
	Store     *chat.Store
	Summary   analysis.Options
	RawCells  bool
	// UploadLimit is the request body limit in bytes. Defaults to 20 MiB.
	UploadLimit int
	// AllowOrigins is passed to the CORS middleware. Defaults to "*".
	AllowOrigins string
	Logger       logger.Logger
}

type Server struct {
	app  *fiber.App
	deps Deps
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.UploadLimit <= 0 {
		deps.UploadLimit = 20 << 20
	}
	if deps.AllowOrigins == "" {
		deps.AllowOrigins = "*"
	}
	s := &Server{deps: deps}
	s.app = fiber.New(fiber.Config{
		AppName:               "csv-analyst",
		BodyLimit:             deps.UploadLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: deps.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	s.registerRoutes()
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.deps.Logger.Info(module, "listening", map[string]any{"addr": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Post("/datasets", s.uploadDataset)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Post("/chat", s.chatTurn)
	api.Post("/analyze", s.analyze)
	api.Post("/validate", s.validateResponse)
}

// handleError maps errors returned by handlers to JSON bodies.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	var ce *chat.CollaboratorError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, parser.ErrUnsupported):
		status = fiber.StatusUnsupportedMediaType
	case errors.Is(err, parser.ErrEmpty), errors.Is(err, chat.ErrEmptyQuestion):
		status = fiber.StatusBadRequest
	case errors.As(err, &ce):
		status = fiber.StatusBadGateway
	}
	details := map[string]any{"path": c.Path(), "status": status, "error": err}
	if status >= fiber.StatusInternalServerError {
		s.deps.Logger.Error(module, "request failed", details)
	} else {
		s.deps.Logger.Debug(module, "request rejected", details)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
