package practice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pitchlab/app/domain"
	"pitchlab/app/service/evaluation"
	"pitchlab/app/service/transcript"
)

// Session is the practice state machine:
// configuring → generating-profile → pitching → objections → evaluating → finished.
// All state changes go through methods holding s.mu; timer ticks, control
// events and HTTP handlers never mutate fields directly.
type Session struct {
	ID string

	profileSvc profileGenerator
	avatarSvc  avatarResponder
	evalSvc    evaluator
	voiceSvc   voiceFactory

	settings domain.PracticeSettings
	acc      *transcript.Accumulator

	mu         sync.Mutex
	phase      Phase
	timer      int
	notice     string
	profile    *domain.CustomerProfile
	evaluation *domain.PitchEvaluation
	voice      voiceSession

	starting bool
	replying bool

	// exactly one ticking interval may run at a time: tickGen invalidates
	// stale tickers, tickCancel stops the current one
	tickGen      int
	tickCancel   context.CancelFunc
	tickInterval time.Duration
}

func newSession(id string, settings domain.PracticeSettings,
	profileSvc profileGenerator, avatarSvc avatarResponder, evalSvc evaluator, voiceSvc voiceFactory,
) *Session {
	return &Session{
		ID:           id,
		profileSvc:   profileSvc,
		avatarSvc:    avatarSvc,
		evalSvc:      evalSvc,
		voiceSvc:     voiceSvc,
		settings:     settings,
		acc:          transcript.NewAccumulator(),
		phase:        PhaseConfiguring,
		timer:        settings.PitchDuration,
		tickInterval: time.Second,
	}
}

// Start generates the customer profile and enters the pitching phase. It is
// single-flight; a failure returns the session to configuring with a notice
// so the user can submit again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseConfiguring || s.starting {
		s.mu.Unlock()
		return fmt.Errorf("%w: phase %s", ErrWrongPhase, s.phase)
	}
	s.starting = true
	s.notice = ""
	s.phase = PhaseGeneratingProfile
	s.mu.Unlock()

	profile, err := s.profileSvc.Generate(ctx, s.settings)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.starting = false

	if s.phase != PhaseGeneratingProfile {
		// restarted while the profile call was in flight, discard it
		return nil
	}

	if err != nil {
		s.phase = PhaseConfiguring
		s.notice = "No se pudo generar el perfil del cliente. Intenta de nuevo."
		return fmt.Errorf("profile generation failed: %w", err)
	}

	s.profile = profile
	s.acc.AddAvatarLine(openingLine)
	s.phase = PhasePitching
	s.startTimerLocked(s.settings.PitchDuration)

	if s.settings.VoiceMode {
		s.voice = s.voiceSvc.NewSession(s.settings, profile, s.acc)
		go s.connectVoice()
	}

	slog.Info("Practice session started",
		"session", s.ID,
		"product", s.settings.Product,
		"difficulty", s.settings.DifficultyLevel)

	return nil
}

// connectVoice runs off the lock; a failed attempt surfaces as a notice and
// is terminal, the user may trigger another connect explicitly.
func (s *Session) connectVoice() {
	s.mu.Lock()
	v := s.voice
	s.mu.Unlock()

	if v == nil {
		return
	}

	if err := v.Connect(context.Background()); err != nil {
		slog.Error("Voice connection failed", "session", s.ID, "error", err)

		s.mu.Lock()
		s.notice = "No se pudo conectar la sesión de voz."
		s.mu.Unlock()
	}
}

// HandleUserMessage drives the non-voice path: the user's line becomes a
// complete turn and the avatar's reply streams into the same accumulator.
func (s *Session) HandleUserMessage(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidSettings)
	}

	s.mu.Lock()
	if s.phase != PhasePitching && s.phase != PhaseObjections {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: phase %s", ErrWrongPhase, s.phase)
	}
	if s.replying {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.replying = true
	profile := s.profile
	s.mu.Unlock()

	s.acc.OnFragment(domain.SenderUser, text)

	reply, err := s.avatarSvc.Respond(ctx, s.settings, profile, text, s.acc)

	s.mu.Lock()
	s.replying = false
	s.mu.Unlock()

	if err != nil {
		s.acc.DropOpenAvatarTurn()
		return "", fmt.Errorf("avatar response failed: %w", err)
	}

	return reply, nil
}

// VoiceSession exposes the live voice controls, nil on the text path.
func (s *Session) VoiceSession() voiceSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.voice
}

// Restart tears everything down and returns to configuring. Safe under
// rapid repeated calls: teardown is idempotent and runs exactly once per
// acquired resource.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()

	if s.voice != nil {
		s.voice.Disconnect()
		s.voice = nil
	}

	s.acc.Reset()
	s.profile = nil
	s.evaluation = nil
	s.notice = ""
	s.replying = false
	s.phase = PhaseConfiguring
	s.timer = s.settings.PitchDuration
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		ID:           s.ID,
		Phase:        s.phase,
		Timer:        s.timer,
		Notice:       s.notice,
		Settings:     s.settings,
		Profile:      s.profile,
		Conversation: s.acc.Turns(),
		Evaluation:   s.evaluation,
	}

	if s.voice != nil {
		state := s.voice.State()
		snapshot.Voice = &state
	}

	return snapshot
}

// startTimerLocked cancels any running interval before starting the new one.
// Callers hold s.mu.
func (s *Session) startTimerLocked(seconds int) {
	s.stopTimerLocked()

	s.timer = seconds
	s.tickGen++
	gen := s.tickGen

	ctx, cancel := context.WithCancel(context.Background())
	s.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(gen)
			}
		}
	}()
}

func (s *Session) stopTimerLocked() {
	if s.tickCancel != nil {
		s.tickCancel()
		s.tickCancel = nil
	}
	s.tickGen++
}

// tick decrements the countdown and fires phase transitions at zero. A tick
// from a cancelled interval carries a stale generation and is dropped, so no
// decrement can happen after evaluating/finished is entered.
func (s *Session) tick(gen int) {
	s.mu.Lock()

	if gen != s.tickGen {
		s.mu.Unlock()
		return
	}

	if s.phase != PhasePitching && s.phase != PhaseObjections {
		s.mu.Unlock()
		return
	}

	if s.timer > 0 {
		s.timer--
	}

	if s.timer > 0 {
		s.mu.Unlock()
		return
	}

	switch s.phase {
	case PhasePitching:
		s.phase = PhaseObjections
		s.acc.AddAvatarLine(transitionLine)
		s.startTimerLocked(s.settings.QnaDuration)
		s.mu.Unlock()

		slog.Info("Pitch phase over, objections begin", "session", s.ID)

	case PhaseObjections:
		s.stopTimerLocked()
		s.phase = PhaseEvaluating
		v := s.voice
		s.mu.Unlock()

		slog.Info("Objections over, evaluating", "session", s.ID)

		go s.runEvaluation(v)
	}
}

// runEvaluation disconnects the voice session, calls the evaluation service
// and always produces a complete result: on failure the neutral default is
// stored instead of leaving the user stuck.
func (s *Session) runEvaluation(v voiceSession) {
	if v != nil {
		v.Disconnect()
	}

	s.mu.Lock()
	settings := s.settings
	profile := s.profile
	conversation := s.acc.Turns()
	s.mu.Unlock()

	result, err := s.evalSvc.Evaluate(context.Background(), settings, profile, conversation)
	if err != nil {
		slog.Error("Evaluation failed, using neutral default",
			"session", s.ID,
			"error", err,
			"telegram", true)
		result = evaluation.DefaultEvaluation()
	}

	s.mu.Lock()
	if s.phase != PhaseEvaluating {
		// restarted while evaluating, discard the result
		s.mu.Unlock()
		return
	}
	s.evaluation = result
	s.phase = PhaseFinished
	s.mu.Unlock()

	slog.Info("Practice session finished", "session", s.ID, "score", result.OverallScore)
}
