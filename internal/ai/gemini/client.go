package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hr-interviewer/internal/logger"
	"github.com/spigell/hr-interviewer/internal/utils"
)

const (
	DefaultModel = "gemini-2.5-flash"

	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
	previewLength     = 200
	// Quota errors asking to wait longer than this are returned instead of retried.
	maxQuotaWait = 30 * time.Second
)

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configure a Generator.
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	// MaxRetries is the total number of attempts per request.
	MaxRetries int
}

// Generator wraps the Google GenAI models API with retries and logging.
type Generator struct {
	models      modelsAPI
	model       string
	temperature float32
	maxRetries  int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
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

	return newGenerator(client.Models, opts, log), nil
}

func newGenerator(models modelsAPI, opts Options, log *zap.Logger) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		models:      models,
		model:       model,
		temperature: opts.Temperature,
		maxRetries:  maxRetries,
		baseDelay:   defaultBaseDelay,
		logger:      logger.WithProvider(log, "gemini", model),
	}
}

// Model returns the model name used for requests.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Complete sends a text prompt and returns the first textual response.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	return g.generate(ctx, []*genai.Part{{Text: prompt}})
}

// GenerateWithFile sends a prompt together with an inline file payload.
func (g *Generator) GenerateWithFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("file payload must not be empty")
	}
	if strings.TrimSpace(mimeType) == "" {
		return "", errors.New("mime type is required")
	}

	parts := []*genai.Part{{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}}
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		parts = append([]*genai.Part{{Text: prompt}}, parts...)
	}

	return g.generate(ctx, parts)
}

func (g *Generator) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	temperature := g.temperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(g.maxRetries-1), retry.NewExponential(g.baseDelay))

	var output string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		started := time.Now()

		resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			if retryable(err) && attempt < g.maxRetries {
				g.logger.Warn("gemini request failed, retrying",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", g.maxRetries),
					zap.Error(err),
				)
				return retry.RetryableError(err)
			}
			return err
		}

		output = responseText(resp)
		g.logger.Debug("gemini response received",
			zap.Int("attempt", attempt),
			zap.Duration("duration", time.Since(started)),
			zap.Int("response_length", utf8.RuneCountInString(output)),
			zap.String("response_preview", utils.TruncateForLog(output, previewLength)),
		)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func retryable(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case http.StatusTooManyRequests:
		wait, found := quotaWait(apiErr.Message)
		return !found || wait <= maxQuotaWait
	default:
		return false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}

	return genai.APIError{}, false
}

func quotaWait(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}
