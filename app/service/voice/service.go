package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"pitchlab/app/client/openairt"
	"pitchlab/app/config"
	"pitchlab/app/domain"
	"pitchlab/app/service/transcript"

	_ "embed"

	"github.com/samber/do"
)

//go:embed instructions_template.txt
var instructionsTemplate string

//go:embed response_instructions.txt
var responseInstructions string

var modeDetails = map[domain.Mode]string{
	domain.ModeCurioso:     "abierto, con interés genuino",
	domain.ModeDesconfiado: "frío, dudoso, busca defectos",
	domain.ModeApurado:     "cortante, con prisa, quiere lo esencial",
}

type Service struct {
	cfg       *config.Config
	transport Transport
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:       do.MustInvoke[*config.Config](di),
		transport: realtimeTransport{client: do.MustInvoke[*openairt.Client](di)},
	}, nil
}

// NewSession prepares a voice session for one practice run. Completed turns
// flow into the given sink.
func (s *Service) NewSession(settings domain.PracticeSettings, profile *domain.CustomerProfile, sink transcript.Sink) *Session {
	return &Session{
		transport:    s.transport,
		serverVAD:    s.cfg.OpenAI.Realtime.ServerVAD,
		instructions: s.Instructions(settings, profile),
		sink:         sink,
	}
}

// Instructions renders the behavioral instructions for the simulated
// customer. The closing threshold is policy data from config.
func (s *Service) Instructions(settings domain.PracticeSettings, profile *domain.CustomerProfile) string {
	values := map[string]string{
		"product":           string(settings.Product),
		"mode":              string(settings.Mode),
		"mode_details":      modeDetails[settings.Mode],
		"difficulty":        string(settings.DifficultyLevel),
		"closing_threshold": fmt.Sprint(s.cfg.Practice.ClosingThreshold(string(settings.DifficultyLevel))),
	}

	if profile != nil {
		values["customer_name"] = profile.Name
		values["customer_occupation"] = profile.Occupation
		values["customer_context"] = profile.Context
		values["customer_objections"] = strings.Join(profile.Objections, "; ")
		values["customer_attitude"] = profile.AttitudeTrait
	} else {
		values["customer_name"] = "un cliente potencial"
		values["customer_occupation"] = "trabajador o microempresario"
		values["customer_context"] = "busca crédito para sus necesidades"
		values["customer_objections"] = "eso suena caro; no confío en los bancos"
		values["customer_attitude"] = string(settings.Mode)
	}

	result := instructionsTemplate
	for key, value := range values {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}

	return result
}

// Session tracks one realtime voice connection through
// idle → connecting → connected → (listening ⇄ speaking) → disconnected.
type Session struct {
	transport    Transport
	serverVAD    bool
	instructions string
	sink         transcript.Sink

	mu    sync.Mutex
	phase phase
	conn  Conn
	state State
}

// Connect is single-flight: a call while connecting or connected is a no-op.
// A failed attempt resets everything and is terminal; the caller decides
// whether to try again.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != phaseIdle {
		s.mu.Unlock()
		slog.Debug("Voice connect ignored, session is not idle")
		return nil
	}
	s.phase = phaseConnecting
	s.state.Err = nil
	s.mu.Unlock()

	conn, err := s.transport.Connect(ctx, openairt.ConnectOptions{
		Instructions: s.instructions,
		OnEvent:      s.handleEvent,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != phaseConnecting {
		// torn down while negotiating; the late connection must not
		// outlive the disconnect, or the microphone leaks
		if conn != nil {
			if closeErr := conn.Close(); closeErr != nil {
				slog.Warn("Failed to close late voice connection", "error", closeErr)
			}
		}
		return nil
	}

	if err != nil {
		s.phase = phaseIdle
		s.state = State{Err: err}
		return fmt.Errorf("voice connect failed: %w", err)
	}

	s.phase = phaseConnected
	s.conn = conn

	slog.Info("Voice session negotiated")

	return nil
}

// StartListening is advisory: the microphone is always streaming, this only
// tracks the push-to-talk display state.
func (s *Session) StartListening() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != phaseConnected {
		return
	}

	s.state.IsListening = true
}

// StopListening ends the user's turn. In manual turn detection this commits
// the buffered audio and then requests a response, two separate control
// messages in that exact order. In server-driven mode the endpoint decides
// turn boundaries itself and only the flag changes.
func (s *Session) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != phaseConnected || s.conn == nil {
		return nil
	}

	s.state.IsListening = false

	if s.serverVAD {
		return nil
	}

	if err := s.conn.Commit(); err != nil {
		return fmt.Errorf("failed to commit audio buffer: %w", err)
	}

	if err := s.conn.CreateResponse(responseInstructions); err != nil {
		return fmt.Errorf("failed to request response: %w", err)
	}

	return nil
}

// Disconnect is idempotent and safe under concurrent calls; it stops the
// microphone, closes the control channel and the peer connection, and resets
// every flag.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			slog.Warn("Failed to close voice connection", "error", err)
		}
		s.conn = nil
	}

	s.phase = phaseIdle
	s.state = State{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}
