package openairt

import "fmt"

// Control-channel event kinds the session reacts to.
const (
	EventSessionCreated            = "session.created"
	EventSessionUpdated            = "session.updated"
	EventSpeechStarted             = "input_audio_buffer.speech_started"
	EventSpeechStopped             = "input_audio_buffer.speech_stopped"
	EventBufferCommitted           = "input_audio_buffer.committed"
	EventUserTranscriptDone        = "conversation.item.input_audio_transcription.completed"
	EventResponseCreated           = "response.created"
	EventResponseTranscriptDelta   = "response.audio_transcript.delta"
	EventResponseTranscriptDone    = "response.audio_transcript.done"
	EventResponseDone              = "response.done"
	EventError                     = "error"
	eventInputAudioBufferCommitMsg = "input_audio_buffer.commit"
	eventResponseCreateMsg         = "response.create"
	eventSessionUpdateMsg          = "session.update"
)

// ServerEvent is one message received on the control channel. Only the
// fields the state machine consumes are decoded.
type ServerEvent struct {
	Type       string       `json:"type"`
	Transcript string       `json:"transcript,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type sessionUpdateEvent struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription"`
	TurnDetection           *turnDetection       `json:"turn_detection"`
	Temperature             float32              `json:"temperature"`
	MaxResponseOutputTokens int                  `json:"max_response_output_tokens"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type commitEvent struct {
	Type string `json:"type"`
}

type responseCreateEvent struct {
	Type     string          `json:"type"`
	Response responsePayload `json:"response"`
}

type responsePayload struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitempty"`
}

// Stage identifies which step of connection establishment failed.
type Stage string

const (
	StageCredential  Stage = "credential"
	StageMedia       Stage = "media"
	StageControl     Stage = "control"
	StageNegotiation Stage = "negotiation"
)

// StageError is a terminal failure of one connection attempt.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("realtime %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
