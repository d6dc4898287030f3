package openai

import "time"

// Config holds the OpenAI provider configuration. BaseURL is
// overridable for proxies and API-compatible backends.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

// DefaultConfig returns sensible defaults for OpenAI.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com",
		Model:   "gpt-4o-mini",
		Timeout: 2 * time.Minute,
	}
}
