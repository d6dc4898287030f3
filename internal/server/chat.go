package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/HerbHall/tokenchat/internal/chat"
	"github.com/HerbHall/tokenchat/internal/completion"
	"go.uber.org/zap"
)

// CompletionExecutor runs one completion exchange. Implemented by
// completion.UseCase; defined here so tests can substitute a fake.
type CompletionExecutor interface {
	Execute(ctx context.Context, in completion.Input) (*completion.Output, error)
}

// ChatHandler serves the chat API routes.
type ChatHandler struct {
	uc       CompletionExecutor
	store    chat.Store
	defaults completion.ConfigInput
	logger   *zap.Logger
}

// NewChatHandler creates the chat API handler. The defaults bundle is
// applied whenever a request starts a new chat.
func NewChatHandler(uc CompletionExecutor, store chat.Store, defaults completion.ConfigInput, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		uc:       uc,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// RegisterRoutes implements RouteRegistrar.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat/completions", h.handleCompletion)
	mux.HandleFunc("GET /api/v1/chats/{id}", h.handleGetChat)
}

// CompletionRequest is the body for POST /chat/completions.
type CompletionRequest struct {
	ChatID      string `json:"chatId" example:"a81bc81b-dead-4e5d-abff-90865d1e13b1"`
	UserID      string `json:"userId" example:"user-42"`
	UserMessage string `json:"userMessage" example:"What is the capital of France?"`
}

// CompletionResponse is the reply for POST /chat/completions.
type CompletionResponse struct {
	ChatID  string `json:"chatId" example:"a81bc81b-dead-4e5d-abff-90865d1e13b1"`
	UserID  string `json:"userId" example:"user-42"`
	Content string `json:"content" example:"The capital of France is Paris."`
}

// handleCompletion exchanges one user message for a model reply.
//
//	@Summary		Chat completion
//	@Description	Appends the user message to the chat (creating the chat if chatId is absent or unknown), asks the completion provider for a reply, and returns it. The chat's token window is trimmed FIFO when the model budget is exceeded.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CompletionRequest	true	"completion request"
//	@Success		200		{object}	CompletionResponse
//	@Failure		400		{object}	Problem
//	@Failure		422		{object}	Problem
//	@Failure		500		{object}	Problem
//	@Router			/chat/completions [post]
func (h *ChatHandler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.UserID == "" {
		BadRequest(w, "userId is required", r.URL.Path)
		return
	}
	if req.UserMessage == "" {
		BadRequest(w, "userMessage is required", r.URL.Path)
		return
	}

	out, err := h.uc.Execute(r.Context(), completion.Input{
		ChatID:      req.ChatID,
		UserID:      req.UserID,
		UserMessage: req.UserMessage,
		Config:      h.defaults,
	})
	if err != nil {
		h.writeCompletionError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(CompletionResponse{
		ChatID:  out.ChatID,
		UserID:  out.UserID,
		Content: out.Content,
	})
}

// writeCompletionError maps pipeline failures onto problem responses.
// Validation failures are the client's fault; everything else is a 500
// with the detail kept out of the response body.
func (h *ChatHandler) writeCompletionError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *chat.ValidationError
	if errors.As(err, &ve) {
		WriteProblem(w, Problem{
			Type:     ProblemTypeBadRequest,
			Title:    "Unprocessable Entity",
			Status:   http.StatusUnprocessableEntity,
			Detail:   err.Error(),
			Instance: r.URL.Path,
		})
		return
	}

	h.logger.Error("completion failed",
		zap.Error(err),
		zap.String("request_id", RequestID(r.Context())),
	)
	InternalError(w, "completion failed", r.URL.Path)
}

// MessageView is one message in a chat detail response.
type MessageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role" example:"user"`
	Content   string    `json:"content"`
	Tokens    int       `json:"tokens" example:"12"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatView is the response for GET /chats/{id}.
type ChatView struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	Status         string        `json:"status" example:"active"`
	Model          string        `json:"model" example:"gpt-4"`
	TokenUsage     int           `json:"tokenUsage" example:"128"`
	Messages       []MessageView `json:"messages"`
	ErasedMessages []MessageView `json:"erasedMessages"`
}

// handleGetChat returns a chat with its active and erased history.
//
//	@Summary		Get chat
//	@Description	Returns the chat's status, token usage, active window and erased history.
//	@Tags			chat
//	@Produce		json
//	@Param			id	path		string	true	"chat ID"
//	@Success		200	{object}	ChatView
//	@Failure		404	{object}	Problem
//	@Router			/chats/{id} [get]
func (h *ChatHandler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	c, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			NotFound(w, "chat not found", r.URL.Path)
			return
		}
		h.logger.Error("load chat failed", zap.String("chat_id", id), zap.Error(err))
		InternalError(w, "failed to load chat", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatView{
		ID:             c.ID,
		UserID:         c.UserID,
		Status:         string(c.Status()),
		Model:          c.Config.Model.Name,
		TokenUsage:     c.TokenUsage(),
		Messages:       messageViews(c.Messages()),
		ErasedMessages: messageViews(c.EvictedMessages()),
	})
}

func messageViews(msgs []*chat.Message) []MessageView {
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		out[i] = MessageView{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Tokens:    m.Tokens,
			CreatedAt: m.CreatedAt,
		}
	}
	return out
}
