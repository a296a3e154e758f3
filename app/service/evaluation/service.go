package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pitchlab/app/config"
	"pitchlab/app/domain"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

//go:embed evaluation_prompt_template.txt
var evaluationPromptTemplate string

//go:embed fallback_feedback.txt
var fallbackFeedback string

const maxEvaluateDuration = 45 * time.Second

// Service scores a finished pitch conversation against the sales rubric.
type Service struct {
	cfg      *config.Config
	llm      llms.Model
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	llm, err := lcopenai.New(
		lcopenai.WithToken(cfg.OpenAI.Evaluation.Token),
		lcopenai.WithModel(cfg.OpenAI.Evaluation.Model),
		lcopenai.WithBaseURL(cfg.OpenAI.Evaluation.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation llm: %w", err)
	}

	return &Service{
		cfg:      cfg,
		llm:      llm,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Evaluate scores the full transcript against the customer profile. A
// schema-violating response is an error; the caller falls back to
// DefaultEvaluation so the user is never left without a result.
func (s *Service) Evaluate(
	ctx context.Context,
	settings domain.PracticeSettings,
	profile *domain.CustomerProfile,
	conversation []domain.ConversationMessage,
) (*domain.PitchEvaluation, error) {
	templateValues := map[string]any{
		"product":      settings.Product,
		"conversation": formatConversation(conversation),
	}

	if profile != nil {
		templateValues["customer_name"] = profile.Name
		templateValues["customer_occupation"] = profile.Occupation
		templateValues["customer_attitude"] = profile.AttitudeTrait
		templateValues["customer_objections"] = strings.Join(profile.Objections, ", ")
	} else {
		templateValues["customer_name"] = "cliente"
		templateValues["customer_occupation"] = "desconocida"
		templateValues["customer_attitude"] = "neutral"
		templateValues["customer_objections"] = "ninguna registrada"
	}

	prompt := evaluationPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	ctx, cancel := context.WithTimeout(ctx, maxEvaluateDuration)
	defer cancel()

	response, err := s.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithJSONMode(),
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(1200),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate evaluation: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no evaluation choices found")
	}

	result := response.Choices[0].Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var evaluation domain.PitchEvaluation
	if err = json.Unmarshal([]byte(result), &evaluation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}

	if err = s.validate.Struct(evaluation); err != nil {
		return nil, fmt.Errorf("evaluation violates schema: %w", err)
	}

	return &evaluation, nil
}

// DefaultEvaluation is the degrade-gracefully result used when the external
// call fails: every score mid-scale and an explanatory feedback text.
func DefaultEvaluation() *domain.PitchEvaluation {
	return &domain.PitchEvaluation{
		Greeting:              5,
		NeedIdentification:    5,
		ProductPresentation:   5,
		BenefitsCommunication: 5,
		ObjectionHandling:     5,
		Closing:               5,
		Empathy:               5,
		Clarity:               5,
		OverallScore:          5,
		Feedback:              strings.TrimSpace(fallbackFeedback),
	}
}

func formatConversation(conversation []domain.ConversationMessage) string {
	var builder strings.Builder

	for _, msg := range conversation {
		switch msg.Sender {
		case domain.SenderUser:
			builder.WriteString("Vendedor: ")
		case domain.SenderAvatar:
			builder.WriteString("Cliente: ")
		}
		builder.WriteString(msg.Text)
		builder.WriteString("\n")
	}

	if builder.Len() == 0 {
		return "Sin conversación registrada"
	}

	return builder.String()
}
