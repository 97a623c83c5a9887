package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

type Config struct {
	Database struct {
		Primary struct {
			DSN string
		}
		Vector struct {
			DSN string `mapstructure:"DSN"` // DSN for the pgvector store
		}
	}

	Embedding struct {
		Model           string `mapstructure:"model"`
		OpenaiApiKey    string `mapstructure:"openai_api_key"`
		GoogleApiKey    string `mapstructure:"google_api_key"`
		GeminiModelName string `mapstructure:"gemini_model_name"`
		Dimension       int    `mapstructure:"dimension"`
	}

	Completion struct {
		Provider string `mapstructure:"provider"` // "openai" or "gemini"
		Model    string `mapstructure:"model"`
	} `mapstructure:"completion"`

	Chunking struct {
		MaxTokens int `mapstructure:"max_tokens"`
		Overlap   int `mapstructure:"overlap"`
	} `mapstructure:"chunking"`

	Pipeline struct {
		// RetryPolicy names a preset: "default", "aggressive" or "gentle".
		RetryPolicy        string `mapstructure:"retry_policy"`
		StepTimeoutSeconds int    `mapstructure:"step_timeout_seconds"`
		DocConcurrency     int    `mapstructure:"doc_concurrency"`
	} `mapstructure:"pipeline"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	}

	Server struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	// API keys are usually set through the environment, not the file.
	viper.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("embedding.google_api_key", "GEMINI_API_KEY")

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimension", 1536)
	viper.SetDefault("completion.provider", "openai")
	viper.SetDefault("completion.model", "gpt-4o-mini")
	viper.SetDefault("chunking.max_tokens", 200)
	viper.SetDefault("chunking.overlap", 50)
	viper.SetDefault("pipeline.retry_policy", "default")
	viper.SetDefault("pipeline.step_timeout_seconds", 300)
	viper.SetDefault("pipeline.doc_concurrency", 4)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.queues", map[string]int{
		"critical": 6, "high": 4, "default": 3, "low": 1,
	})
	viper.SetDefault("server.address", ":8080")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and env vars carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
