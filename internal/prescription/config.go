package prescription

import (
	"clinqo-prescriber/internal/common/config"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/openrouter"
)

// Config holds the settings the pipeline reads on every invocation.
type Config struct {
	APIKey     string
	Model      string
	SchemaMode string
}

// ConfigFromApp pulls pipeline settings out of the application config.
func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		APIKey:     cfg.Inference.APIKey,
		Model:      cfg.Inference.Model,
		SchemaMode: cfg.Pipeline.SchemaMode,
	}
}

func (c *Config) strict() bool {
	return c.SchemaMode == config.SchemaModeStrict
}

func (c *Config) credentialProblem() string {
	switch c.APIKey {
	case "":
		return "OPENROUTER_API_KEY is not set"
	case config.PlaceholderAPIKey:
		return "OPENROUTER_API_KEY still holds the placeholder value"
	default:
		return ""
	}
}

// NewFromApp wires a Generator to an OpenRouter client built from cfg.
func NewFromApp(cfg *config.Config, log logger.Logger, opts ...Option) *Generator {
	client := openrouter.NewClient(openrouter.ConfigFromApp(cfg.Inference), log)
	return NewGenerator(ConfigFromApp(cfg), client, append([]Option{WithLogger(log)}, opts...)...)
}
