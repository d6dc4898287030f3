package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Allowed message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the allowed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Tokenizer counts the tokens a piece of text occupies in a model's
// context window. Implementations must be pure: same text, same count,
// and empty text counts as zero.
type Tokenizer interface {
	Count(text string) int
}

// Message is a single immutable utterance in a chat. Token count is
// fixed at creation and never recomputed.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Model     *Model
	Tokens    int
	CreatedAt time.Time
}

// NewMessage creates a Message with a generated ID and the current
// time, counting tokens for the content via the tokenizer.
func NewMessage(role Role, content string, model *Model, tok Tokenizer) (*Message, error) {
	m := &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Model:     model,
		Tokens:    tok.Count(content),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// RestoreMessage rebuilds a Message from persisted state. The supplied
// ID must be a valid UUID and the token count is taken as stored rather
// than recomputed, so history replays exactly as it was accounted.
func RestoreMessage(id string, role Role, content string, model *Model, tokens int, createdAt time.Time) (*Message, error) {
	if id == "" {
		return nil, newValidationError("id is empty")
	}
	if uuid.Validate(id) != nil {
		return nil, newValidationError("id needs to be a valid uuid")
	}
	m := &Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Model:     model,
		Tokens:    tokens,
		CreatedAt: createdAt,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) validate() error {
	if m.Content == "" {
		return newValidationError("content is empty")
	}
	if !m.Role.Valid() {
		return newValidationError("invalid role")
	}
	return nil
}
