package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	defaultModel        = "gemini-1.5-flash-latest"
	defaultMaxLogLength = 200
)

// modelsAPI is the part of genai.Models the package depends on.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates a Gemini API client shared by the generator and the transcriber.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// Generator implements ai.TextGenerator on top of Gemini with a bounded retry policy.
type Generator struct {
	models    modelsAPI
	model     string
	retry     ai.RetryPolicy
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator wraps the client. model is used when a call does not name one.
func NewGenerator(client *genai.Client, model string, retry ai.RetryPolicy, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	g := &Generator{
		model:     model,
		retry:     retry,
		logger:    logger,
		maxLogLen: defaultMaxLogLength,
	}
	if client != nil {
		g.models = client.Models
	}
	return g
}

// Model returns the default model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends the prompt and returns the first candidate's text. Every returned
// error is a *GenerationError whose message starts with ai.ErrorPrefix.
func (g *Generator) Generate(ctx context.Context, prompt string, params ai.GenerationParams) (string, error) {
	model := strings.TrimSpace(params.Model)
	if g != nil && model == "" {
		model = g.model
	}

	if g == nil || g.models == nil {
		return "", &GenerationError{Kind: KindInit, Model: model, Err: errors.New("gemini client is not initialized")}
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &GenerationError{Kind: KindInit, Model: model, Err: errors.New("prompt must not be empty")}
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: params.MaxTokens,
		Temperature:     genai.Ptr(params.Temperature),
		SafetySettings:  safetySettings(),
	}

	g.logger.Debug("gemini generate content request",
		zap.String("model", model),
		zap.Int32("max_tokens", params.MaxTokens),
		zap.Float32("temperature", params.Temperature),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	attempts := g.retry.Attempts()
	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err == nil {
			return g.readResponse(model, params, resp)
		}

		lastErr = err
		g.logger.Warn("gemini generate content failed",
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		if ctx.Err() != nil || !isRetryable(err) || attempt == attempts {
			break
		}

		g.logger.Info("retrying gemini request", zap.Duration("delay", g.retry.Delay))
		if waitErr := utils.WaitFor(ctx, g.retry.Delay); waitErr != nil {
			lastErr = waitErr
			break
		}
	}

	return "", &GenerationError{Kind: KindTransport, Model: model, Attempts: made, Err: lastErr}
}

func (g *Generator) readResponse(model string, params ai.GenerationParams, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		reason := "Unknown"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = string(resp.PromptFeedback.BlockReason)
		}
		g.logger.Warn("gemini response blocked", zap.String("model", model), zap.String("reason", reason))
		return "", &GenerationError{Kind: KindBlocked, Model: model, Reason: reason}
	}

	candidate := resp.Candidates[0]
	text := candidateText(candidate)

	switch candidate.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified:
	case genai.FinishReasonMaxTokens:
		g.logger.Warn("gemini response truncated by max tokens",
			zap.String("model", model),
			zap.Int32("max_tokens", params.MaxTokens),
		)
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		g.logger.Warn("gemini response stopped", zap.String("model", model), zap.String("reason", string(candidate.FinishReason)))
		return "", &GenerationError{Kind: KindStopped, Model: model, Reason: string(candidate.FinishReason)}
	default:
		g.logger.Warn("gemini response finished with unexpected reason",
			zap.String("model", model),
			zap.String("reason", string(candidate.FinishReason)),
		)
	}

	if text == "" {
		return "", &GenerationError{Kind: KindEmpty, Model: model, Reason: string(candidate.FinishReason)}
	}

	g.logger.Debug("gemini generate content response",
		zap.String("model", model),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
	)

	return text, nil
}

func candidateText(candidate *genai.Candidate) string {
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String())
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}
