package api

import (
	"context"
	"errors"
	"log/slog"

	"pitchlab/app/client/openairt"
	"pitchlab/app/config"
	"pitchlab/app/service/competition"
	"pitchlab/app/service/practice"
	"pitchlab/app/service/voice"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

// Server is the HTTP facade over the practice and competition services.
type Server struct {
	cfg            *config.Config
	app            *fiber.App
	realtimeClient *openairt.Client
	voiceSvc       *voice.Service
	practiceSvc    *practice.Service
	competitionSvc *competition.Service
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:            do.MustInvoke[*config.Config](di),
		realtimeClient: do.MustInvoke[*openairt.Client](di),
		voiceSvc:       do.MustInvoke[*voice.Service](di),
		practiceSvc:    do.MustInvoke[*practice.Service](di),
		competitionSvc: do.MustInvoke[*competition.Service](di),
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:           s.cfg.Server.ReadTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Post("/realtime/session", s.handleMintSession)

	api.Post("/practice", s.handleCreatePractice)
	api.Get("/practice/:id", s.handleGetPractice)
	api.Post("/practice/:id/start", s.handlePracticeStart)
	api.Post("/practice/:id/message", s.handlePracticeMessage)
	api.Post("/practice/:id/restart", s.handlePracticeRestart)
	api.Post("/practice/:id/voice/listen", s.handleVoiceListen)
	api.Post("/practice/:id/voice/commit", s.handleVoiceCommit)

	api.Post("/competition/ratings", s.handleRate)
	api.Post("/competition/words", s.handleSubmitWord)
	api.Get("/competition/stats", s.handleStats)
	api.Get("/competition/voting", s.handleGetVoting)
	api.Put("/competition/voting", s.handleSetVoting)
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()

		if err := s.app.Shutdown(); err != nil {
			slog.Warn("HTTP server shutdown failed", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Server.Addr)

	if err := s.app.Listen(s.cfg.Server.Addr); err != nil {
		slog.Error("HTTP server stopped", "error", err, "telegram", true)
	}
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type errorResponse struct {
	Message string `json:"message"`
}

// errorHandler maps service errors to status codes. Every error body carries
// a message field.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	case errors.Is(err, practice.ErrSessionNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, practice.ErrInvalidSettings),
		errors.Is(err, competition.ErrInvalidSubmission):
		status = fiber.StatusBadRequest
	case errors.Is(err, practice.ErrWrongPhase),
		errors.Is(err, practice.ErrBusy):
		status = fiber.StatusConflict
	case errors.Is(err, competition.ErrVotingClosed):
		status = fiber.StatusForbidden
	}

	if status == fiber.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(errorResponse{Message: err.Error()})
}
