package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/ai"
	"github.com/spigell/hr-interviewer/internal/ai/gemini"
	"github.com/spigell/hr-interviewer/internal/ai/openai"
	"github.com/spigell/hr-interviewer/internal/secrets"
	"github.com/spigell/hr-interviewer/internal/utils"
)

const (
	providerGemini = "gemini"

	geminiKeyEnv = "GEMINI_API_KEY"
	llmKeyEnv    = "LLM_API_KEY"
)

// newGeminiGenerator builds the multimodal Gemini client used for transcription and resume
// parsing. When Gemini is also the completion provider the llm settings apply to it.
func newGeminiGenerator(ctx context.Context, cfg *LLMConfig, logger *zap.Logger) (*gemini.Generator, error) {
	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	src := secrets.Source{
		Name:  "gemini api key",
		File:  geminiCfg.APIKeyFile,
		Value: geminiCfg.APIKey,
		Env:   geminiKeyEnv,
	}
	model := geminiCfg.Model

	if isGemini(cfg.Provider) {
		src.File = utils.FirstNonEmpty(geminiCfg.APIKeyFile, cfg.APIKeyFile)
		src.Value = utils.FirstNonEmpty(geminiCfg.APIKey, cfg.APIKey)
		model = utils.FirstNonEmpty(cfg.Model, geminiCfg.Model)
	}

	apiKey, err := secrets.Load(src)
	if err != nil {
		return nil, fmt.Errorf("%w (set llm.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewGenerator(ctx, gemini.Options{
		APIKey:      apiKey,
		Model:       model,
		Temperature: float32(cfg.Temperature),
		MaxRetries:  cfg.MaxRetries,
	}, logger)
}

// newCompleter returns the completion client for the configured provider. The Gemini
// generator is reused when Gemini is the provider.
func newCompleter(cfg *LLMConfig, generator *gemini.Generator, logger *zap.Logger) (ai.Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", providerGemini:
		if generator == nil {
			return nil, fmt.Errorf("gemini generator is not initialized")
		}
		return generator, nil
	case openai.ProviderOpenAI, openai.ProviderNvidia:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  provider + " api key",
			File:  cfg.APIKeyFile,
			Value: cfg.APIKey,
			Env:   llmKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.api-key-file or LLM_API_KEY_FILE)", err)
		}

		client, err := openai.New(openai.Options{
			Provider:    provider,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			APIKey:      apiKey,
			Temperature: cfg.Temperature,
			MaxRetries:  cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func isGemini(provider string) bool {
	provider = strings.ToLower(strings.TrimSpace(provider))
	return provider == "" || provider == providerGemini
}
