package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pitchlab/app/config"
	"pitchlab/app/domain"
	"pitchlab/app/service/transcript"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed avatar_prompt_template.txt
var avatarPromptTemplate string

const (
	maxReplyDuration = 30 * time.Second
	maxReplyTokens   = 300
)

// Service produces the simulated customer's replies on the non-voice path.
// Replies stream in as chunks and feed the same turn accumulator the voice
// path uses.
type Service struct {
	cfg    *config.Config
	client *openai.Client
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:    cfg,
		client: newClient(cfg.OpenAI.Avatar),
	}, nil
}

// Respond streams the avatar's reply to the seller's latest line into the
// sink: each chunk is a fragment, stream end completes the turn. On failure
// the sink is left with the open turn for the caller to drop.
func (s *Service) Respond(
	ctx context.Context,
	settings domain.PracticeSettings,
	profile *domain.CustomerProfile,
	pitchText string,
	sink transcript.Sink,
) (string, error) {
	templateValues := map[string]any{
		"product":    settings.Product,
		"mode":       settings.Mode,
		"pitch_text": pitchText,
	}

	if profile != nil {
		templateValues["customer_name"] = profile.Name
		templateValues["customer_occupation"] = profile.Occupation
		templateValues["customer_attitude"] = profile.AttitudeTrait
		templateValues["customer_objections"] = strings.Join(profile.Objections, "; ")
	} else {
		templateValues["customer_name"] = "un cliente potencial"
		templateValues["customer_occupation"] = "trabajador"
		templateValues["customer_attitude"] = string(settings.Mode)
		templateValues["customer_objections"] = "eso suena caro"
	}

	prompt := avatarPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	ctx, cancel := context.WithTimeout(ctx, maxReplyDuration)
	defer cancel()

	stream, err := s.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.cfg.OpenAI.Avatar.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: maxReplyTokens,
			Temperature:         1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create completion stream: %w", err)
	}
	defer stream.Close()

	var builder strings.Builder

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stream receive failed: %w", err)
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}

		builder.WriteString(text)
		sink.OnFragment(domain.SenderAvatar, text)
	}

	sink.OnTurnComplete(domain.SenderAvatar)

	return strings.TrimSpace(builder.String()), nil
}

func newClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	return openai.NewClientWithConfig(clientConfig)
}
