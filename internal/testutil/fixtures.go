// Package testutil provides shared fixture builders for chat domain
// tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/HerbHall/tokenchat/internal/chat"
)

// WordTokenizer counts whitespace-separated words as tokens, which
// makes token budgets in tests easy to reason about.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// FixedTokenizer counts every message as N tokens regardless of text.
type FixedTokenizer int

func (f FixedTokenizer) Count(string) int {
	return int(f)
}

// NewChat returns a chat with sensible defaults, suitable for test
// fixtures. Override individual settings via options.
func NewChat(t *testing.T, opts ...func(*chat.Config)) *chat.Chat {
	t.Helper()

	model, err := chat.NewModel("gpt-4", 4096)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	cfg := chat.Config{
		Model:            model,
		Temperature:      0.7,
		TopP:             1,
		N:                1,
		MaxTokens:        500,
		PresencePenalty:  0,
		FrequencyPenalty: 0,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	initial, err := chat.NewMessage(chat.RoleSystem, "You are a helpful assistant.", cfg.Model, WordTokenizer{})
	if err != nil {
		t.Fatalf("system message: %v", err)
	}
	c, err := chat.NewChat("user-1", initial, cfg)
	if err != nil {
		t.Fatalf("NewChat: %v", err)
	}
	return c
}

// WithModel sets the chat's model name and token budget.
func WithModel(t *testing.T, name string, maxTokens int) func(*chat.Config) {
	t.Helper()
	return func(cfg *chat.Config) {
		model, err := chat.NewModel(name, maxTokens)
		if err != nil {
			t.Fatalf("NewModel: %v", err)
		}
		cfg.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) func(*chat.Config) {
	return func(cfg *chat.Config) { cfg.Temperature = temp }
}

// WithMaxTokens sets the completion token cap.
func WithMaxTokens(n int) func(*chat.Config) {
	return func(cfg *chat.Config) { cfg.MaxTokens = n }
}

// UserMessage appends a user message to the chat and returns it.
func UserMessage(t *testing.T, c *chat.Chat, content string) *chat.Message {
	t.Helper()
	m, err := chat.NewMessage(chat.RoleUser, content, c.Config.Model, WordTokenizer{})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if _, err := c.AddMessage(m); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	return m
}
