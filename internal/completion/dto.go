package completion

// ConfigInput bundles the per-chat generation settings used when a
// request targets a chat that does not exist yet. It usually comes
// straight from the service configuration (see chat.* viper keys).
type ConfigInput struct {
	Model                string
	ModelMaxTokens       int
	Temperature          float64
	TopP                 float64
	N                    int
	Stop                 []string
	MaxTokens            int
	PresencePenalty      float64
	FrequencyPenalty     float64
	InitialSystemMessage string
}

// Input is a single completion request. An empty ChatID means
// "start a new chat".
type Input struct {
	ChatID      string
	UserID      string
	UserMessage string
	Config      ConfigInput
}

// Output is the result of a successful completion.
type Output struct {
	ChatID  string
	UserID  string
	Content string
}
