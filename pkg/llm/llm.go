// Package llm provides the provider-facing SDK types for completion
// backends. All provider adapters (OpenAI, Anthropic, Ollama) implement
// these interfaces; implementations live in internal/llm/{provider}/.
package llm

import "context"

// Provider is the core interface implemented by all completion backends.
// It exposes single-prompt generation and multi-turn chat completion.
type Provider interface {
	// Generate creates a completion from a single prompt.
	// Use CallOption values to override model or sampling parameters.
	Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error)

	// Chat creates a completion from a conversation history.
	// Use CallOption values to override model or sampling parameters.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)
}

// HealthReporter is optionally implemented by providers that can report
// connection health and model availability. Detected via type assertion.
type HealthReporter interface {
	// Heartbeat checks whether the backing service is reachable.
	Heartbeat(ctx context.Context) error

	// ListModels returns the names of models available from this provider.
	ListModels(ctx context.Context) ([]string, error)
}

// CallOption configures a single Generate or Chat call.
type CallOption func(*CallConfig)

// CallConfig holds the resolved configuration for a single call.
// Users interact through CallOption functions, not this struct directly.
type CallConfig struct {
	Model            string
	Temperature      float64
	TopP             float64
	N                int
	Stop             []string
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	StreamFunc       func(ctx context.Context, chunk []byte) error
}

// WithModel sets the model to use for this call, overriding the provider default.
func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithTemperature sets the sampling temperature.
// 0.0 = deterministic, 1.0+ = creative. Provider default if unset.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Temperature = temp }
}

// WithTopP sets the nucleus sampling probability mass.
func WithTopP(topP float64) CallOption {
	return func(c *CallConfig) { c.TopP = topP }
}

// WithN sets how many completions the provider should generate.
func WithN(n int) CallOption {
	return func(c *CallConfig) { c.N = n }
}

// WithStop sets the stop sequences that end generation.
func WithStop(stop []string) CallOption {
	return func(c *CallConfig) { c.Stop = stop }
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(max int) CallOption {
	return func(c *CallConfig) { c.MaxTokens = max }
}

// WithPresencePenalty sets the presence penalty (-2.0 to 2.0).
func WithPresencePenalty(p float64) CallOption {
	return func(c *CallConfig) { c.PresencePenalty = p }
}

// WithFrequencyPenalty sets the frequency penalty (-2.0 to 2.0).
func WithFrequencyPenalty(p float64) CallOption {
	return func(c *CallConfig) { c.FrequencyPenalty = p }
}

// WithStreamFunc enables streaming mode. The function is called for each
// chunk received from the provider. Return a non-nil error to abort streaming.
func WithStreamFunc(fn func(ctx context.Context, chunk []byte) error) CallOption {
	return func(c *CallConfig) { c.StreamFunc = fn }
}

// ApplyOptions creates a CallConfig from a list of options, starting from defaults.
func ApplyOptions(opts ...CallOption) CallConfig {
	cfg := CallConfig{
		Temperature: 0.7,
		TopP:        1,
		N:           1,
		MaxTokens:   2048,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
