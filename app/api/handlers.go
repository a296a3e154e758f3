package api

import (
	"strings"

	"pitchlab/app/domain"

	"github.com/gofiber/fiber/v2"
)

type mintSessionRequest struct {
	Settings domain.PracticeSettings `json:"settings"`
	Profile  *domain.CustomerProfile `json:"profile"`
}

type mintSessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// handleMintSession exchanges the server-held API key for a short-lived
// client credential. The key itself never appears in a response.
func (s *Server) handleMintSession(c *fiber.Ctx) error {
	var req mintSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	instructions := s.voiceSvc.Instructions(req.Settings, req.Profile)

	token, err := s.realtimeClient.MintSession(c.Context(), instructions)
	if err != nil {
		return err
	}

	return c.JSON(mintSessionResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.Unix(),
	})
}

func (s *Server) handleCreatePractice(c *fiber.Ctx) error {
	var settings domain.PracticeSettings
	if err := c.BodyParser(&settings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	session, err := s.practiceSvc.Create(c.Context(), settings)
	if err != nil {
		if session == nil {
			return err
		}
		// profile generation failed; the session is back in configuring
		// and can be retried through its start route
		return c.Status(fiber.StatusAccepted).JSON(session.Snapshot())
	}

	return c.Status(fiber.StatusCreated).JSON(session.Snapshot())
}

// handlePracticeStart retries a session stuck in configuring after a failed
// profile generation.
func (s *Server) handlePracticeStart(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	if err := session.Start(c.Context()); err != nil {
		return err
	}

	return c.JSON(session.Snapshot())
}

func (s *Server) handleGetPractice(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(session.Snapshot())
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handlePracticeMessage(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := session.HandleUserMessage(c.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		return err
	}

	return c.JSON(messageResponse{Reply: reply})
}

func (s *Server) handlePracticeRestart(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	session.Restart()

	return c.JSON(session.Snapshot())
}

type listenRequest struct {
	Listening bool `json:"listening"`
}

// handleVoiceListen toggles the push-to-talk state. Releasing the button
// maps to listening=false, which ends the user's turn.
func (s *Server) handleVoiceListen(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	v := session.VoiceSession()
	if v == nil {
		return fiber.NewError(fiber.StatusConflict, "session has no voice connection")
	}

	var req listenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Listening {
		v.StartListening()
	} else if err := v.StopListening(); err != nil {
		return err
	}

	return c.JSON(v.State())
}

// handleVoiceCommit explicitly ends the user's turn and requests a reply,
// same as listen with listening=false.
func (s *Server) handleVoiceCommit(c *fiber.Ctx) error {
	session, err := s.practiceSvc.Get(c.Params("id"))
	if err != nil {
		return err
	}

	v := session.VoiceSession()
	if v == nil {
		return fiber.NewError(fiber.StatusConflict, "session has no voice connection")
	}

	if err := v.StopListening(); err != nil {
		return err
	}

	return c.JSON(v.State())
}

type rateRequest struct {
	UserID      string             `json:"userId"`
	GroupNumber domain.GroupNumber `json:"groupNumber"`
	Stars       int                `json:"stars"`
}

func (s *Server) handleRate(c *fiber.Ctx) error {
	var req rateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.competitionSvc.Rate(c.Context(), req.UserID, req.GroupNumber, req.Stars); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type wordRequest struct {
	UserID      string             `json:"userId"`
	GroupNumber domain.GroupNumber `json:"groupNumber"`
	Word        string             `json:"word"`
}

func (s *Server) handleSubmitWord(c *fiber.Ctx) error {
	var req wordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.competitionSvc.SubmitWord(c.Context(), req.UserID, req.GroupNumber, req.Word); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.competitionSvc.Stats(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(stats)
}

func (s *Server) handleGetVoting(c *fiber.Ctx) error {
	cfg, err := s.competitionSvc.VotingConfig(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(cfg)
}

func (s *Server) handleSetVoting(c *fiber.Ctx) error {
	var cfg domain.VotingConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.competitionSvc.SetVotingConfig(c.Context(), cfg); err != nil {
		return err
	}

	return c.JSON(cfg)
}
