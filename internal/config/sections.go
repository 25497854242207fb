package config

import "time"

// AIConfig provides type-safe access to AI settings.
type AIConfig struct {
	// Enabled enables AI features.
	Enabled bool

	// Provider is the AI provider ("anthropic", "openai", "gemini").
	Provider string

	// Model is the model name sent to the provider.
	Model string

	// MaxTokens bounds model responses.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// StepDelay paces executor steps for typing animation.
	StepDelay time.Duration

	// Format is the document serialization format sent to the model.
	Format string

	// MaxRetries bounds transport retry attempts.
	MaxRetries int

	// APIKey is the credential for the configured provider.
	APIKey string
}

// LoggingConfig provides type-safe access to logging settings.
type LoggingConfig struct {
	// Level is the logging verbosity ("debug", "info", "warn", "error").
	Level string

	// Format is the log format ("text", "json").
	Format string

	// File is the log file path; empty disables file logging.
	File string
}

// HistoryConfig provides type-safe access to undo history settings.
type HistoryConfig struct {
	// MaxEntries caps the undo stack depth.
	MaxEntries int
}

// AI returns the AI section.
func (c *Config) AI() AIConfig {
	out := AIConfig{}
	out.Enabled, _ = c.GetBool("ai.enabled")
	out.Provider, _ = c.GetString("ai.provider")
	out.Model, _ = c.GetString("ai.model")
	out.MaxTokens, _ = c.GetInt("ai.maxTokens")
	out.Temperature, _ = c.GetFloat("ai.temperature")
	out.StepDelay, _ = c.GetDuration("ai.stepDelay")
	out.Format, _ = c.GetString("ai.format")
	out.MaxRetries, _ = c.GetInt("ai.maxRetries")
	out.APIKey = c.apiKeyFor(out.Provider)
	return out
}

// apiKeyFor selects the credential matching the provider.
func (c *Config) apiKeyFor(provider string) string {
	var key string
	switch provider {
	case "anthropic":
		key, _ = c.GetString("ai.anthropicApiKey")
	case "openai":
		key, _ = c.GetString("ai.openaiApiKey")
	case "gemini":
		key, _ = c.GetString("ai.geminiApiKey")
	}
	return key
}

// Logging returns the logging section.
func (c *Config) Logging() LoggingConfig {
	out := LoggingConfig{}
	out.Level, _ = c.GetString("logging.level")
	out.Format, _ = c.GetString("logging.format")
	out.File, _ = c.GetString("logging.file")
	return out
}

// History returns the undo history section.
func (c *Config) History() HistoryConfig {
	out := HistoryConfig{}
	out.MaxEntries, _ = c.GetInt("history.maxEntries")
	return out
}
