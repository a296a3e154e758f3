package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	DB       DB       `yaml:"db"`
	OpenAI   OpenAI   `yaml:"openai"`
	Audio    Audio    `yaml:"audio"`
	Practice Practice `yaml:"practice"`
}

type OpenAI struct {
	Profile    ModelConfig    `yaml:"profile" validate:"required"`
	Avatar     ModelConfig    `yaml:"avatar" validate:"required"`
	Evaluation ModelConfig    `yaml:"evaluation" validate:"required"`
	Realtime   RealtimeConfig `yaml:"realtime" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type RealtimeConfig struct {
	// Token used to mint ephemeral session credentials, never handed to callers
	Token string `yaml:"token" validate:"required"`
	// Base url of the realtime endpoint (SDP exchange and session minting)
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1/realtime"`
	// Realtime model
	Model string `yaml:"model" example:"gpt-4o-realtime-preview-2024-12-17"`
	// Synthesized voice name
	Voice string `yaml:"voice" example:"verse"`
	// Transcription model for user speech
	TranscriptionModel string `yaml:"transcription_model" example:"whisper-1"`
	// Server-driven turn detection; manual commit mode when false
	ServerVAD bool `yaml:"server_vad"`
}

type Audio struct {
	// ffmpeg input spec for microphone capture
	CaptureInput string `yaml:"capture_input" example:"default"`
	// ffmpeg input format (alsa, pulse, avfoundation)
	CaptureFormat string `yaml:"capture_format" example:"pulse"`
}

type Practice struct {
	// Default pitch phase duration in seconds
	PitchDuration int `yaml:"pitch_duration" example:"120"`
	// Default Q&A phase duration in seconds
	QnaDuration int `yaml:"qna_duration" example:"60"`
	// Good turns required before the simulated customer may accept, per difficulty.
	// Content policy, tune freely.
	ClosingThresholds map[string]int `yaml:"closing_thresholds"`
}

func (p Practice) ClosingThreshold(difficulty string) int {
	if n, ok := p.ClosingThresholds[difficulty]; ok {
		return n
	}
	return 3
}

type Server struct {
	// Listen address of the HTTP API
	Addr string `yaml:"addr" example:":8080"`
	// Read timeout of the HTTP server
	ReadTimeout time.Duration `yaml:"read_timeout" example:"30s"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type DB struct {
	// Path to the sqlite database file
	Path string `yaml:"path" example:"data/pitchlab.db"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Addr == "" {
		result.Server.Addr = ":8080"
	}
	if result.Server.ReadTimeout == 0 {
		result.Server.ReadTimeout = 30 * time.Second
	}
	if result.DB.Path == "" {
		result.DB.Path = "data/pitchlab.db"
	}
	if result.OpenAI.Realtime.BaseURL == "" {
		result.OpenAI.Realtime.BaseURL = "https://api.openai.com/v1/realtime"
	}
	if result.OpenAI.Realtime.Model == "" {
		result.OpenAI.Realtime.Model = "gpt-4o-realtime-preview-2024-12-17"
	}
	if result.OpenAI.Realtime.Voice == "" {
		result.OpenAI.Realtime.Voice = "verse"
	}
	if result.OpenAI.Realtime.TranscriptionModel == "" {
		result.OpenAI.Realtime.TranscriptionModel = "whisper-1"
	}
	if result.Audio.CaptureFormat == "" {
		result.Audio.CaptureFormat = "pulse"
	}
	if result.Audio.CaptureInput == "" {
		result.Audio.CaptureInput = "default"
	}
	if result.Practice.PitchDuration == 0 {
		result.Practice.PitchDuration = 120
	}
	if result.Practice.QnaDuration == 0 {
		result.Practice.QnaDuration = 60
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
