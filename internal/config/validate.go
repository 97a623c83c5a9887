package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	// Database config
	if c.Database.Primary.DSN == "" {
		return errors.New("database.primary.DSN is required")
	}
	if c.Database.Vector.DSN == "" {
		return errors.New("database.vector.DSN is required")
	}

	// Embedding config
	if c.Embedding.GeminiModelName != "" && c.Embedding.GoogleApiKey == "" {
		return errors.New("embedding.google_api_key is required when embedding.gemini_model_name is set")
	}
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be a positive integer")
	}

	// Completion config
	switch c.Completion.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("completion.provider '%s' is not supported", c.Completion.Provider)
	}
	if c.Completion.Provider != "none" && c.Completion.Model == "" {
		return errors.New("completion.model is required")
	}

	// Redis config
	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}

	// Worker config
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	// Chunking config
	if c.Chunking.MaxTokens <= 0 {
		return errors.New("chunking.max_tokens must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking.overlap (%d) must be non-negative and less than max_tokens (%d)", c.Chunking.Overlap, c.Chunking.MaxTokens)
	}

	// Pipeline config
	switch c.Pipeline.RetryPolicy {
	case "default", "aggressive", "gentle":
	default:
		return fmt.Errorf("pipeline.retry_policy '%s' is not a known preset", c.Pipeline.RetryPolicy)
	}
	if c.Pipeline.StepTimeoutSeconds <= 0 {
		return errors.New("pipeline.step_timeout_seconds must be positive")
	}

	return nil
}
