package chat

// Model describes a completion model and the context-token budget its
// window accepts. It is a value object: validated once at construction
// and never mutated.
type Model struct {
	Name      string
	MaxTokens int
}

// NewModel creates a Model, validating that the name is set and the
// token budget is positive.
func NewModel(name string, maxTokens int) (*Model, error) {
	if name == "" {
		return nil, newValidationError("name is empty")
	}
	if maxTokens <= 0 {
		return nil, newValidationError("maxTokens needs to be greater than 0")
	}
	return &Model{Name: name, MaxTokens: maxTokens}, nil
}
