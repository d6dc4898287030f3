package chat

import (
	"fmt"
	"testing"
)

func testConfig(t *testing.T, modelMaxTokens int) Config {
	t.Helper()
	return Config{
		Model:            testModel(t, modelMaxTokens),
		Temperature:      0.7,
		TopP:             1,
		N:                1,
		Stop:             nil,
		MaxTokens:        500,
		PresencePenalty:  0,
		FrequencyPenalty: 0,
	}
}

func systemMessage(t *testing.T, cfg Config) *Message {
	t.Helper()
	m, err := NewMessage(RoleSystem, "You are a helpful assistant.", cfg.Model, fixedTokenizer(4))
	if err != nil {
		t.Fatalf("system message: %v", err)
	}
	return m
}

func newTestChat(t *testing.T, modelMaxTokens int) *Chat {
	t.Helper()
	cfg := testConfig(t, modelMaxTokens)
	c, err := NewChat("user-1", systemMessage(t, cfg), cfg)
	if err != nil {
		t.Fatalf("NewChat: %v", err)
	}
	return c
}

func userMessage(t *testing.T, c *Chat, content string, tokens int) *Message {
	t.Helper()
	m, err := NewMessage(RoleUser, content, c.Config.Model, fixedTokenizer(tokens))
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return m
}

func TestNewChat(t *testing.T) {
	c := newTestChat(t, 4096)

	if c.Status() != StatusActive {
		t.Errorf("Status = %q, want %q", c.Status(), StatusActive)
	}
	if c.CountMessages() != 0 {
		t.Errorf("CountMessages = %d, want 0", c.CountMessages())
	}
	if c.TokenUsage() != 0 {
		t.Errorf("TokenUsage = %d, want 0", c.TokenUsage())
	}
	if c.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", c.UserID, "user-1")
	}
}

func TestNewChat_validation(t *testing.T) {
	base := func(t *testing.T) Config { return testConfig(t, 4096) }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"temperature too high", func(c *Config) { c.Temperature = 1.25 },
			"temperature should be between 0 and 1"},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 },
			"temperature should be between 0 and 1"},
		{"topP out of range", func(c *Config) { c.TopP = 1.5 },
			"topP should be between 0 and 1"},
		{"n zero", func(c *Config) { c.N = 0 },
			"n should be a positive integer"},
		{"maxTokens zero", func(c *Config) { c.MaxTokens = 0 },
			"maxTokens should be a positive integer"},
		{"presencePenalty out of range", func(c *Config) { c.PresencePenalty = 2.1 },
			"presencePenalty should be between -2 and 2"},
		{"frequencyPenalty out of range", func(c *Config) { c.FrequencyPenalty = -2.5 },
			"frequencyPenalty should be between -2 and 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(&cfg)
			_, err := NewChat("user-1", systemMessage(t, cfg), cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewChat_empty_user_id(t *testing.T) {
	cfg := testConfig(t, 4096)
	_, err := NewChat("", systemMessage(t, cfg), cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "user id is empty" {
		t.Errorf("error = %q, want %q", err.Error(), "user id is empty")
	}
}

func TestNewChat_initial_message_must_be_system(t *testing.T) {
	cfg := testConfig(t, 4096)
	initial, err := NewMessage(RoleUser, "not a system message", cfg.Model, fixedTokenizer(4))
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	_, err = NewChat("user-1", initial, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "initial system message needs to have the role 'system'"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestRestoreChat_invalid_id(t *testing.T) {
	cfg := testConfig(t, 4096)

	_, err := RestoreChat("bogus", "user-1", systemMessage(t, cfg), cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "id needs to be a valid uuid" {
		t.Errorf("error = %q, want %q", err.Error(), "id needs to be a valid uuid")
	}
}

func TestAddMessage_accumulates_tokens(t *testing.T) {
	c := newTestChat(t, 100)

	for i := 1; i <= 3; i++ {
		msg := userMessage(t, c, fmt.Sprintf("message %d", i), 10)
		if _, err := c.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}

	if c.CountMessages() != 3 {
		t.Errorf("CountMessages = %d, want 3", c.CountMessages())
	}
	if c.TokenUsage() != 30 {
		t.Errorf("TokenUsage = %d, want 30", c.TokenUsage())
	}
	if len(c.EvictedMessages()) != 0 {
		t.Errorf("EvictedMessages = %d, want 0", len(c.EvictedMessages()))
	}
}

// Reference eviction scenario: budget 28, four 8-token messages. The
// fourth append pushes usage to 32, so exactly the oldest message is
// evicted and usage settles at 24.
func TestAddMessage_evicts_oldest_over_budget(t *testing.T) {
	c := newTestChat(t, 28)

	var first *Message
	for i := 1; i <= 4; i++ {
		msg := userMessage(t, c, fmt.Sprintf("message %d", i), 8)
		if i == 1 {
			first = msg
		}
		if _, err := c.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}

	if got := len(c.EvictedMessages()); got != 1 {
		t.Fatalf("EvictedMessages = %d, want 1", got)
	}
	if c.EvictedMessages()[0].ID != first.ID {
		t.Error("evicted message is not the oldest one")
	}
	if c.TokenUsage() != 24 {
		t.Errorf("TokenUsage = %d, want 24", c.TokenUsage())
	}
	if c.CountMessages() != 3 {
		t.Errorf("CountMessages = %d, want 3", c.CountMessages())
	}
}

func TestAddMessage_eviction_is_fifo(t *testing.T) {
	c := newTestChat(t, 25)

	var ids []string
	for i := 1; i <= 5; i++ {
		msg := userMessage(t, c, fmt.Sprintf("message %d", i), 10)
		ids = append(ids, msg.ID)
		if _, err := c.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}

	// Budget 25, 10 tokens each: the window holds two messages, so the
	// first three were evicted in insertion order.
	evicted := c.EvictedMessages()
	if len(evicted) != 3 {
		t.Fatalf("EvictedMessages = %d, want 3", len(evicted))
	}
	for i, m := range evicted {
		if m.ID != ids[i] {
			t.Errorf("evicted[%d] = %q, want %q (insertion order)", i, m.ID, ids[i])
		}
	}
	if c.TokenUsage() != 20 {
		t.Errorf("TokenUsage = %d, want 20", c.TokenUsage())
	}
}

// Token accounting invariant: after every append, usage equals the sum
// over the active window and never exceeds the model budget.
func TestAddMessage_usage_matches_window(t *testing.T) {
	c := newTestChat(t, 50)

	for i, tokens := range []int{12, 7, 25, 3, 18, 30, 9} {
		msg := userMessage(t, c, fmt.Sprintf("message %d", i), tokens)
		if _, err := c.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}

		sum := 0
		for _, m := range c.Messages() {
			sum += m.Tokens
		}
		if sum != c.TokenUsage() {
			t.Fatalf("after append %d: window sum %d != TokenUsage %d", i, sum, c.TokenUsage())
		}
		if c.TokenUsage() > c.Config.Model.MaxTokens {
			t.Fatalf("after append %d: TokenUsage %d exceeds budget %d",
				i, c.TokenUsage(), c.Config.Model.MaxTokens)
		}
	}
}

// A single message heavier than the whole budget drains the window,
// itself included. This mirrors the upstream behavior: eviction pops
// from the front until usage fits, and the only message left is the
// one just added.
func TestAddMessage_single_message_over_budget(t *testing.T) {
	c := newTestChat(t, 20)

	small := userMessage(t, c, "small", 5)
	if _, err := c.AddMessage(small); err != nil {
		t.Fatalf("AddMessage small: %v", err)
	}

	huge := userMessage(t, c, "huge", 50)
	returned, err := c.AddMessage(huge)
	if err != nil {
		t.Fatalf("AddMessage huge: %v", err)
	}
	// The appended message is returned even though it was evicted.
	if returned.ID != huge.ID {
		t.Error("AddMessage did not return the appended message")
	}

	if c.CountMessages() != 0 {
		t.Errorf("CountMessages = %d, want 0", c.CountMessages())
	}
	if c.TokenUsage() != 0 {
		t.Errorf("TokenUsage = %d, want 0", c.TokenUsage())
	}
	evicted := c.EvictedMessages()
	if len(evicted) != 2 {
		t.Fatalf("EvictedMessages = %d, want 2", len(evicted))
	}
	if evicted[0].ID != small.ID || evicted[1].ID != huge.ID {
		t.Error("eviction order does not match insertion order")
	}
}

func TestEnd_is_idempotent(t *testing.T) {
	c := newTestChat(t, 100)

	c.End()
	if c.Status() != StatusEnded {
		t.Fatalf("Status = %q, want %q", c.Status(), StatusEnded)
	}
	c.End()
	if c.Status() != StatusEnded {
		t.Errorf("Status after second End = %q, want %q", c.Status(), StatusEnded)
	}
}

func TestAddMessage_rejected_after_end(t *testing.T) {
	c := newTestChat(t, 100)

	msg := userMessage(t, c, "before end", 10)
	if _, err := c.AddMessage(msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	c.End()

	usageBefore := c.TokenUsage()
	countBefore := c.CountMessages()

	late := userMessage(t, c, "too late", 10)
	_, err := c.AddMessage(late)
	if err == nil {
		t.Fatal("expected error after End")
	}
	if err.Error() != "chat is ended, no more messages allowed" {
		t.Errorf("error = %q, want %q", err.Error(), "chat is ended, no more messages allowed")
	}

	// Rejection must not mutate the aggregate.
	if c.TokenUsage() != usageBefore {
		t.Errorf("TokenUsage changed on rejected add: %d -> %d", usageBefore, c.TokenUsage())
	}
	if c.CountMessages() != countBefore {
		t.Errorf("CountMessages changed on rejected add: %d -> %d", countBefore, c.CountMessages())
	}
}

func TestAddEvictedMessage_skips_accounting(t *testing.T) {
	c := newTestChat(t, 100)

	old := userMessage(t, c, "replayed from storage", 40)
	if _, err := c.AddEvictedMessage(old); err != nil {
		t.Fatalf("AddEvictedMessage: %v", err)
	}

	if c.TokenUsage() != 0 {
		t.Errorf("TokenUsage = %d, want 0 (evicted history is not accounted)", c.TokenUsage())
	}
	if len(c.EvictedMessages()) != 1 {
		t.Errorf("EvictedMessages = %d, want 1", len(c.EvictedMessages()))
	}
}
