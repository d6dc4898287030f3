// Package llm selects and constructs the configured completion
// provider. Provider adapters live in the subpackages; this package
// only knows how to pick one from config and report its health.
package llm

import (
	"context"
	"fmt"

	"github.com/HerbHall/tokenchat/internal/llm/anthropic"
	"github.com/HerbHall/tokenchat/internal/llm/ollama"
	"github.com/HerbHall/tokenchat/internal/llm/openai"
	pkgllm "github.com/HerbHall/tokenchat/pkg/llm"
	"go.uber.org/zap"
)

// Config holds the provider selection with per-provider sub-configs.
type Config struct {
	Provider  string           `mapstructure:"provider"` // "ollama" (default), "openai", "anthropic"
	Ollama    ollama.Config    `mapstructure:"ollama"`
	OpenAI    openai.Config    `mapstructure:"openai"`
	Anthropic anthropic.Config `mapstructure:"anthropic"`
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		Provider:  "ollama",
		Ollama:    ollama.DefaultConfig(),
		OpenAI:    openai.DefaultConfig(),
		Anthropic: anthropic.DefaultConfig(),
	}
}

// NewProvider creates a provider based on the config.
func NewProvider(cfg Config, logger *zap.Logger) (pkgllm.Provider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return ollama.New(cfg.Ollama, logger)

	case "openai":
		return openai.New(cfg.OpenAI, cfg.OpenAI.APIKey, logger)

	case "anthropic":
		return anthropic.New(cfg.Anthropic, cfg.Anthropic.APIKey, logger)

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ReportHealth logs whether the provider is reachable and which models
// it offers. Failures are logged, not returned; the service starts
// regardless and completions fail per-request until the backend is up.
func ReportHealth(ctx context.Context, name string, provider pkgllm.Provider, logger *zap.Logger) {
	hr, ok := provider.(pkgllm.HealthReporter)
	if !ok {
		return
	}

	if err := hr.Heartbeat(ctx); err != nil {
		logger.Warn("completion provider not reachable; completions will fail until it comes online",
			zap.String("provider", name),
			zap.Error(err),
		)
		return
	}

	models, err := hr.ListModels(ctx)
	if err != nil {
		logger.Warn("failed to list models",
			zap.String("provider", name),
			zap.Error(err),
		)
		return
	}

	logger.Info("completion provider connected",
		zap.String("provider", name),
		zap.Strings("models", models),
	)
}
