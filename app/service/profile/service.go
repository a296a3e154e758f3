package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pitchlab/app/config"
	"pitchlab/app/domain"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed profile_prompt_template.txt
var profilePromptTemplate string

const maxGenerateDuration = 30 * time.Second

// Service generates one immutable customer profile per practice session.
type Service struct {
	cfg      *config.Config
	client   *openai.Client
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:      cfg,
		client:   newClient(cfg.OpenAI.Profile),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Generate requests a profile matching the chosen product, mode and
// difficulty. A response that violates the schema is a fatal error for the
// call, never coerced.
func (s *Service) Generate(ctx context.Context, settings domain.PracticeSettings) (*domain.CustomerProfile, error) {
	templateValues := map[string]any{
		"product":    settings.Product,
		"mode":       settings.Mode,
		"difficulty": settings.DifficultyLevel,
	}

	prompt := profilePromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	ctx, cancel := context.WithTimeout(ctx, maxGenerateDuration)
	defer cancel()

	aiResponse, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.cfg.OpenAI.Profile.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: 1000,
			Temperature:         1,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return nil, fmt.Errorf("no chat completion found")
	}

	result := aiResponse.Choices[0].Message.Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var profile domain.CustomerProfile
	if err = json.Unmarshal([]byte(result), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	profile.DifficultyLevel = settings.DifficultyLevel

	if err = s.validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("profile violates schema: %w", err)
	}

	return &profile, nil
}

func newClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	return openai.NewClientWithConfig(clientConfig)
}
