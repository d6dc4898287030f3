package anthropic

import "time"

// Config holds the Anthropic provider configuration. BaseURL is
// overridable for proxies and API-compatible backends.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

// DefaultConfig returns sensible defaults for Anthropic.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.anthropic.com",
		Model:   "claude-sonnet-4-5-20250929",
		Timeout: 2 * time.Minute,
	}
}
