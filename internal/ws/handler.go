package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/HerbHall/tokenchat/internal/completion"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// StreamExecutor runs a completion exchange, delivering reply chunks to
// fn as the provider produces them. Implemented by completion.UseCase.
type StreamExecutor interface {
	ExecuteStream(ctx context.Context, in completion.Input, fn func(ctx context.Context, chunk []byte) error) (*completion.Output, error)
}

// Handler provides the WebSocket endpoint for streaming completions.
type Handler struct {
	hub      *Hub
	uc       StreamExecutor
	defaults completion.ConfigInput
	logger   *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket streaming handler.
func NewHandler(uc StreamExecutor, defaults completion.ConfigInput, logger *zap.Logger) *Handler {
	return &Handler{
		hub:      NewHub(logger),
		uc:       uc,
		defaults: defaults,
		logger:   logger,
	}
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/chat/stream", h.handleChatStream)
}

// ClientCount returns the number of connected streaming clients.
func (h *Handler) ClientCount() int {
	return h.hub.ClientCount()
}

// handleChatStream upgrades the connection and serves completion
// requests on it, one at a time, streaming reply chunks back as they
// arrive from the provider.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// Serve requests until the client disconnects.
	h.serve(ctx, client)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// serve reads completion requests off the connection and answers them
// sequentially. Requests on one connection share the chat's ordering.
func (h *Handler) serve(ctx context.Context, client *Client) {
	for {
		var req CompletionRequest
		if err := wsjson.Read(ctx, client.conn, &req); err != nil {
			return
		}

		if req.UserID == "" || req.UserMessage == "" {
			client.enqueue(Message{
				Type:      MessageCompletionError,
				ChatID:    req.ChatID,
				Timestamp: time.Now().UTC(),
				Data:      CompletionErrorData{Error: "userId and userMessage are required"},
			})
			continue
		}

		h.runCompletion(ctx, client, req)
	}
}

func (h *Handler) runCompletion(ctx context.Context, client *Client, req CompletionRequest) {
	client.enqueue(Message{
		Type:      MessageCompletionStarted,
		ChatID:    req.ChatID,
		Timestamp: time.Now().UTC(),
	})

	out, err := h.uc.ExecuteStream(ctx, completion.Input{
		ChatID:      req.ChatID,
		UserID:      req.UserID,
		UserMessage: req.UserMessage,
		Config:      h.defaults,
	}, func(_ context.Context, chunk []byte) error {
		client.enqueue(Message{
			Type:      MessageCompletionChunk,
			ChatID:    req.ChatID,
			Timestamp: time.Now().UTC(),
			Data:      CompletionChunkData{Content: string(chunk)},
		})
		return nil
	})
	if err != nil {
		h.logger.Warn("streamed completion failed",
			zap.String("chat_id", req.ChatID),
			zap.Error(err),
		)
		client.enqueue(Message{
			Type:      MessageCompletionError,
			ChatID:    req.ChatID,
			Timestamp: time.Now().UTC(),
			Data:      CompletionErrorData{Error: err.Error()},
		})
		return
	}

	client.enqueue(Message{
		Type:      MessageCompletionDone,
		ChatID:    out.ChatID,
		Timestamp: time.Now().UTC(),
		Data: CompletionDoneData{
			UserID:  out.UserID,
			Content: out.Content,
		},
	})
}
