// Package chat holds the conversational domain: models, messages, and
// the chat aggregate that enforces a sliding-window token budget. The
// aggregate owns its message collections exclusively; a Chat held by an
// orchestration call is never shared between goroutines.
package chat

import "github.com/google/uuid"

// Status is the lifecycle state of a chat.
type Status string

// Chat lifecycle states. Ended is terminal.
const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusEnded
}

// Config carries the generation parameters governing a chat, including
// the model whose MaxTokens bounds the active message window.
type Config struct {
	Model            *Model
	Temperature      float64 // 0.0 to 1.0, randomness degree
	TopP             float64 // 0.0 to 1.0, nucleus sampling degree
	N                int     // number of completions to generate
	Stop             []string
	MaxTokens        int // completion token cap, distinct from Model.MaxTokens
	PresencePenalty  float64 // -2.0 to 2.0
	FrequencyPenalty float64 // -2.0 to 2.0
}

// Chat is the aggregate root: an active message window bounded by the
// model's token budget, plus the history of messages evicted from it.
// The initial system message is tracked outside the window and is never
// evicted.
type Chat struct {
	ID                   string
	UserID               string
	InitialSystemMessage *Message
	Config               Config

	status     Status
	messages   []*Message
	evicted    []*Message
	tokenUsage int
}

// NewChat creates an active Chat with a generated ID, no active
// messages, and zero token usage.
func NewChat(userID string, initialSystemMessage *Message, cfg Config) (*Chat, error) {
	return newChat(uuid.New().String(), userID, initialSystemMessage, cfg)
}

// RestoreChat creates a Chat with an explicit ID, used when rehydrating
// an aggregate from storage. The caller replays history through
// AddMessage and AddEvictedMessage afterwards.
func RestoreChat(id, userID string, initialSystemMessage *Message, cfg Config) (*Chat, error) {
	return newChat(id, userID, initialSystemMessage, cfg)
}

func newChat(id, userID string, initialSystemMessage *Message, cfg Config) (*Chat, error) {
	c := &Chat{
		ID:                   id,
		UserID:               userID,
		InitialSystemMessage: initialSystemMessage,
		Config:               cfg,
		status:               StatusActive,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks every construction invariant in order; the first
// failing check wins.
func (c *Chat) validate() error {
	if c.ID == "" {
		return newValidationError("id is empty")
	}
	if uuid.Validate(c.ID) != nil {
		return newValidationError("id needs to be a valid uuid")
	}
	if c.UserID == "" {
		return newValidationError("user id is empty")
	}
	if !c.status.Valid() {
		return newValidationError("invalid status")
	}
	if c.Config.Temperature < 0 || c.Config.Temperature > 1 {
		return newValidationError("temperature should be between 0 and 1")
	}
	if c.Config.TopP < 0 || c.Config.TopP > 1 {
		return newValidationError("topP should be between 0 and 1")
	}
	if c.Config.N <= 0 {
		return newValidationError("n should be a positive integer")
	}
	if c.Config.MaxTokens <= 0 {
		return newValidationError("maxTokens should be a positive integer")
	}
	if c.Config.PresencePenalty < -2 || c.Config.PresencePenalty > 2 {
		return newValidationError("presencePenalty should be between -2 and 2")
	}
	if c.Config.FrequencyPenalty < -2 || c.Config.FrequencyPenalty > 2 {
		return newValidationError("frequencyPenalty should be between -2 and 2")
	}
	if c.InitialSystemMessage == nil || c.InitialSystemMessage.Role != RoleSystem {
		return newValidationError("initial system message needs to have the role 'system'")
	}
	return nil
}

// AddMessage appends a message to the active window and evicts from the
// front, oldest first, until token usage fits the model's budget again.
// The appended message is returned even if the eviction loop removed it
// (a lone message heavier than the whole budget evicts itself).
func (c *Chat) AddMessage(m *Message) (*Message, error) {
	if c.status == StatusEnded {
		return nil, newValidationError("chat is ended, no more messages allowed")
	}

	c.messages = append(c.messages, m)
	c.tokenUsage += m.Tokens

	for c.tokenUsage > c.Config.Model.MaxTokens && len(c.messages) > 0 {
		oldest := c.messages[0]
		c.messages = c.messages[1:]
		c.evicted = append(c.evicted, oldest)
		c.tokenUsage -= oldest.Tokens
	}

	return m, nil
}

// AddEvictedMessage appends directly to the evicted history without
// touching token accounting. Used only when replaying persisted state.
func (c *Chat) AddEvictedMessage(m *Message) (*Message, error) {
	c.evicted = append(c.evicted, m)
	return m, nil
}

// End marks the chat ended. Idempotent; an ended chat rejects all
// further AddMessage calls.
func (c *Chat) End() {
	c.status = StatusEnded
}

// Status returns the chat's lifecycle state.
func (c *Chat) Status() Status {
	return c.status
}

// Messages returns the active window, oldest first.
func (c *Chat) Messages() []*Message {
	return c.messages
}

// EvictedMessages returns evicted messages in the order they were
// removed, which is their original insertion order.
func (c *Chat) EvictedMessages() []*Message {
	return c.evicted
}

// TokenUsage returns the token sum over the active window.
func (c *Chat) TokenUsage() int {
	return c.tokenUsage
}

// CountMessages returns the size of the active window.
func (c *Chat) CountMessages() int {
	return len(c.messages)
}
