package voice

import (
	"errors"
	"log/slog"

	"pitchlab/app/client/openairt"
	"pitchlab/app/domain"
)

// handleEvent runs on the control-channel callback goroutine. An error event
// is surfaced through the state but does not tear the connection down.
func (s *Session) handleEvent(event openairt.ServerEvent) {
	switch event.Type {
	case openairt.EventSessionCreated:
		slog.Debug("Realtime session created")

	case openairt.EventSessionUpdated:
		s.mu.Lock()
		s.state.IsConnected = true
		s.mu.Unlock()
		slog.Info("Realtime session configured")

	case openairt.EventSpeechStarted:
		s.mu.Lock()
		s.state.IsListening = true
		s.mu.Unlock()

	case openairt.EventSpeechStopped:
		s.mu.Lock()
		s.state.IsListening = false
		s.mu.Unlock()

	case openairt.EventUserTranscriptDone:
		if event.Transcript != "" {
			s.sink.OnFragment(domain.SenderUser, event.Transcript)
			s.sink.OnTurnComplete(domain.SenderUser)
		}

	case openairt.EventResponseCreated:
		s.mu.Lock()
		s.state.IsSpeaking = true
		s.mu.Unlock()

	case openairt.EventResponseTranscriptDelta:
		if event.Delta != "" {
			s.sink.OnFragment(domain.SenderAvatar, event.Delta)
		}

	case openairt.EventResponseDone:
		s.mu.Lock()
		s.state.IsSpeaking = false
		s.mu.Unlock()
		s.sink.OnTurnComplete(domain.SenderAvatar)

	case openairt.EventError:
		msg := "unknown agent error"
		if event.Error != nil && event.Error.Message != "" {
			msg = event.Error.Message
		}

		s.mu.Lock()
		s.state.Err = errors.New(msg)
		s.mu.Unlock()

		slog.Error("Realtime agent error", "message", msg)
	}
}
