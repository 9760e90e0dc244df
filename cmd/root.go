package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hr-interviewer/internal/classifier"
	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/media"
	"github.com/spigell/hr-interviewer/internal/store"
)

const (
	app = "hr-interviewer"
)

type Config struct {
	LLM        *LLMConfig        `mapstructure:"llm"`
	Classifier classifier.Config `mapstructure:"classifier"`
	Media      media.Config      `mapstructure:"media"`
	Emotion    *EmotionConfig    `mapstructure:"emotion"`
	Store      store.Config      `mapstructure:"store"`
}

type LLMConfig struct {
	// Provider is one of gemini, openai or nvidia.
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base-url"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig is used for transcription and resume parsing whatever the completion provider is.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type EmotionConfig struct {
	Weights emotion.Weights `mapstructure:"weights"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "hr-interviewer scores recorded interviews against a job description",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"llm.api-key-file":        "LLM_API_KEY_FILE",
		"llm.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"store.redis.password":    "REDIS_PASSWORD",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	w := emotion.DefaultWeights()
	viper.SetDefault("emotion.weights.sad", w.Sad)
	viper.SetDefault("emotion.weights.fear", w.Fear)
	viper.SetDefault("emotion.weights.angry", w.Angry)
	viper.SetDefault("emotion.weights.disgust", w.Disgust)
	viper.SetDefault("emotion.weights.happy", w.Happy)
	viper.SetDefault("emotion.weights.surprise", w.Surprise)
	viper.SetDefault("emotion.weights.neutral", w.Neutral)

	viper.SetDefault("llm.provider", providerGemini)
	viper.SetDefault("llm.max-log-length", 200)

	viper.SetDefault("classifier.url", classifier.DefaultURL)
	viper.SetDefault("classifier.workers", classifier.DefaultWorkers)
	viper.SetDefault("classifier.timeout", "60s")

	viper.SetDefault("media.ffmpeg", media.DefaultBinary)
	viper.SetDefault("media.stride", media.DefaultStride)

	viper.SetDefault("store.backend", store.BackendSQLite)
	viper.SetDefault("store.path", store.DefaultSQLitePath)
	viper.SetDefault("store.redis.address", store.DefaultRedisAddress)
	viper.SetDefault("store.redis.key", store.DefaultRedisKey)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Defaults are enough when there is no config file in the current directory,
	// but an explicitly given or broken file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.LLM == nil {
		config.LLM = &LLMConfig{}
	}
	if config.LLM.Gemini == nil {
		config.LLM.Gemini = &GeminiConfig{}
	}
	if config.Emotion == nil {
		config.Emotion = &EmotionConfig{Weights: emotion.DefaultWeights()}
	}

	return config, nil
}
