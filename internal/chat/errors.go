package chat

// ValidationError reports a violated domain rule. The message is the
// rule itself and is stable: callers and tests match on it verbatim.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func newValidationError(msg string) error {
	return &ValidationError{msg: msg}
}
