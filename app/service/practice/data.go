package practice

import (
	"context"
	"errors"

	"pitchlab/app/domain"
	"pitchlab/app/service/transcript"
	"pitchlab/app/service/voice"
)

type Phase string

const (
	PhaseConfiguring       Phase = "configuring"
	PhaseGeneratingProfile Phase = "generating-profile"
	PhasePitching          Phase = "pitching"
	PhaseObjections        Phase = "objections"
	PhaseEvaluating        Phase = "evaluating"
	PhaseFinished          Phase = "finished"
)

const (
	openingLine    = "Hola, ¡gracias por tu tiempo! Cuéntame qué me ofreces."
	transitionLine = "Interesante. Pero tengo algunas dudas..."
)

var (
	ErrSessionNotFound = errors.New("practice session not found")
	ErrWrongPhase      = errors.New("operation is not valid in the current phase")
	ErrBusy            = errors.New("a reply is already being generated")
	ErrInvalidSettings = errors.New("invalid practice settings")
)

// profileGenerator, avatarResponder and evaluator are the three external
// calls the orchestrator depends on; narrowed to interfaces for tests.
type profileGenerator interface {
	Generate(ctx context.Context, settings domain.PracticeSettings) (*domain.CustomerProfile, error)
}

type avatarResponder interface {
	Respond(ctx context.Context, settings domain.PracticeSettings, profile *domain.CustomerProfile,
		pitchText string, sink transcript.Sink) (string, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, settings domain.PracticeSettings, profile *domain.CustomerProfile,
		conversation []domain.ConversationMessage) (*domain.PitchEvaluation, error)
}

type voiceSession interface {
	Connect(ctx context.Context) error
	StartListening()
	StopListening() error
	Disconnect()
	State() voice.State
}

type voiceFactory interface {
	NewSession(settings domain.PracticeSettings, profile *domain.CustomerProfile, sink transcript.Sink) voiceSession
}

// Snapshot is a point-in-time view of one session for the API layer.
type Snapshot struct {
	ID           string                       `json:"id"`
	Phase        Phase                        `json:"phase"`
	Timer        int                          `json:"timer"`
	Notice       string                       `json:"notice,omitempty"`
	Settings     domain.PracticeSettings      `json:"settings"`
	Profile      *domain.CustomerProfile      `json:"profile,omitempty"`
	Conversation []domain.ConversationMessage `json:"conversation"`
	Evaluation   *domain.PitchEvaluation      `json:"evaluation,omitempty"`
	Voice        *voice.State                 `json:"voice,omitempty"`
}
