package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/httpapi"
	"github.com/spigell/hr-interviewer/internal/logger"
	"github.com/spigell/hr-interviewer/internal/utils"
)

// Provider presets for OpenAI-compatible endpoints.
const (
	ProviderOpenAI = "openai"
	ProviderNvidia = "nvidia"

	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "gpt-4o-mini"
	NvidiaBaseURL = "https://integrate.api.nvidia.com/v1"
	NvidiaModel   = "nvidia/llama-3.1-nemotron-70b-instruct"

	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	previewLength     = 200
)

// Options configure a Client.
type Options struct {
	// Provider selects the defaults for BaseURL and Model.
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client completes prompts through an OpenAI-compatible chat completions API.
type Client struct {
	api         *httpapi.Client
	model       string
	temperature float64
	maxRetries  int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// New returns a client for the configured provider.
func New(opts Options, log *zap.Logger) (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))

	var baseURL, model string
	switch provider {
	case "", ProviderOpenAI:
		provider = ProviderOpenAI
		baseURL, model = OpenAIBaseURL, OpenAIModel
	case ProviderNvidia:
		baseURL, model = NvidiaBaseURL, NvidiaModel
	default:
		return nil, fmt.Errorf("unsupported openai-compatible provider %q", opts.Provider)
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is required", provider)
	}

	baseURL = utils.FirstNonEmpty(opts.BaseURL, baseURL)
	model = utils.FirstNonEmpty(opts.Model, model)

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	log = logger.WithProvider(log, provider, model)

	return &Client{
		api:         httpapi.New(baseURL, apiKey, opts.Timeout, log),
		model:       model,
		temperature: opts.Temperature,
		maxRetries:  maxRetries,
		baseDelay:   defaultBaseDelay,
		logger:      log,
	}, nil
}

// Model returns the model name used for requests.
func (c *Client) Model() string { return c.model }

// Complete sends the prompt as a single user message and returns the answer text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	request := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.maxRetries-1), retry.NewExponential(c.baseDelay))

	var response chatResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		response = chatResponse{}

		err := c.api.PostJSON(ctx, "chat/completions", request, &response)
		if err == nil {
			return nil
		}

		var statusErr *httpapi.StatusError
		if errors.As(err, &statusErr) && statusErr.Temporary() && attempt < c.maxRetries {
			c.logger.Warn("completion request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxRetries),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	output := strings.TrimSpace(response.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("chat completion returned empty response")
	}

	c.logger.Debug("completion received",
		zap.Int("attempt", attempt),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, previewLength)),
	)

	return output, nil
}
