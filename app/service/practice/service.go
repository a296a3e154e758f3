package practice

import (
	"context"
	"fmt"
	"sync"

	"pitchlab/app/config"
	"pitchlab/app/domain"
	"pitchlab/app/service/avatar"
	"pitchlab/app/service/evaluation"
	"pitchlab/app/service/profile"
	"pitchlab/app/service/transcript"
	"pitchlab/app/service/voice"

	"github.com/google/uuid"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Service owns the live practice sessions.
type Service struct {
	cfg        *config.Config
	profileSvc profileGenerator
	avatarSvc  avatarResponder
	evalSvc    evaluator
	voiceSvc   voiceFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:        do.MustInvoke[*config.Config](di),
		profileSvc: do.MustInvoke[*profile.Service](di),
		avatarSvc:  do.MustInvoke[*avatar.Service](di),
		evalSvc:    do.MustInvoke[*evaluation.Service](di),
		voiceSvc:   voiceAdapter{svc: do.MustInvoke[*voice.Service](di)},
		sessions:   make(map[string]*Session),
	}, nil
}

// Create validates the settings, registers a new session and starts it.
func (s *Service) Create(ctx context.Context, settings domain.PracticeSettings) (*Session, error) {
	if err := validateSettings(s.cfg, &settings); err != nil {
		return nil, err
	}

	session := newSession(uuid.NewString(), settings,
		s.profileSvc, s.avatarSvc, s.evalSvc, s.voiceSvc)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		return session, err
	}

	return session, nil
}

func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Shutdown disconnects every live session so no microphone or peer
// connection outlives the process.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		session.Restart()
	}

	return nil
}

func validateSettings(cfg *config.Config, settings *domain.PracticeSettings) error {
	if !settings.Product.Valid() {
		return fmt.Errorf("%w: unknown product %q", ErrInvalidSettings, settings.Product)
	}
	if !settings.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, settings.Mode)
	}
	if !settings.DifficultyLevel.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSettings, settings.DifficultyLevel)
	}

	if settings.PitchDuration == 0 {
		settings.PitchDuration = cfg.Practice.PitchDuration
	}
	if settings.QnaDuration == 0 {
		settings.QnaDuration = cfg.Practice.QnaDuration
	}

	if settings.PitchDuration < 0 || settings.QnaDuration < 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidSettings)
	}

	return nil
}

type voiceAdapter struct {
	svc *voice.Service
}

func (a voiceAdapter) NewSession(settings domain.PracticeSettings, profile *domain.CustomerProfile, sink transcript.Sink) voiceSession {
	return a.svc.NewSession(settings, profile, sink)
}
