package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageCompletionStarted MessageType = "completion.started"
	MessageCompletionChunk   MessageType = "completion.chunk"
	MessageCompletionDone    MessageType = "completion.done"
	MessageCompletionError   MessageType = "completion.error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// CompletionRequest is the client-to-server frame asking for one
// completion exchange on this connection.
type CompletionRequest struct {
	ChatID      string `json:"chatId"`
	UserID      string `json:"userId"`
	UserMessage string `json:"userMessage"`
}

// CompletionChunkData is the payload for completion.chunk messages.
type CompletionChunkData struct {
	Content string `json:"content"`
}

// CompletionDoneData is the payload for completion.done messages. It
// carries the full reply so clients that missed chunks can recover.
type CompletionDoneData struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// CompletionErrorData is the payload for completion.error messages.
type CompletionErrorData struct {
	Error string `json:"error"`
}
