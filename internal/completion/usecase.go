// Package completion orchestrates a single chat completion exchange:
// locate or create the chat, append the user message under the token
// budget, call the completion provider, append the reply, and persist.
//
// Each Execute call is an independent sequential pipeline. The chat
// aggregate is exclusively owned by the call that holds it; concurrent
// invocations on the same chat ID are not guarded beyond what the
// store's write ordering provides.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/tokenchat/internal/chat"
	"github.com/HerbHall/tokenchat/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Completion pipeline metrics.
var (
	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_completions_total",
			Help: "Total number of completion requests by outcome.",
		},
		[]string{"status"},
	)
	messagesEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_evicted_total",
			Help: "Total number of messages evicted from active windows.",
		},
	)
)

func init() {
	prometheus.MustRegister(completionsTotal)
	prometheus.MustRegister(messagesEvictedTotal)
}

// UseCase coordinates the chat store and the completion provider for
// one exchange. Construct with New; all dependencies are explicit.
type UseCase struct {
	store     chat.Store
	provider  llm.Provider
	tokenizer chat.Tokenizer
	logger    *zap.Logger
}

// New creates a completion use case.
func New(store chat.Store, provider llm.Provider, tokenizer chat.Tokenizer, logger *zap.Logger) *UseCase {
	return &UseCase{
		store:     store,
		provider:  provider,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Execute runs the completion pipeline and returns the provider's reply
// bound to the chat it was exchanged on. Every failure is reported with
// the stage it occurred in; no stage runs after a failure.
func (uc *UseCase) Execute(ctx context.Context, in Input) (*Output, error) {
	return uc.execute(ctx, in)
}

// ExecuteStream behaves like Execute but additionally delivers reply
// chunks to fn as the provider produces them. The full reply is still
// appended and persisted once streaming completes.
func (uc *UseCase) ExecuteStream(ctx context.Context, in Input, fn func(ctx context.Context, chunk []byte) error) (*Output, error) {
	return uc.execute(ctx, in, llm.WithStreamFunc(fn))
}

func (uc *UseCase) execute(ctx context.Context, in Input, extra ...llm.CallOption) (*Output, error) {
	out, err := uc.run(ctx, in, extra...)
	if err != nil {
		completionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	completionsTotal.WithLabelValues("ok").Inc()
	return out, nil
}

func (uc *UseCase) run(ctx context.Context, in Input, extra ...llm.CallOption) (*Output, error) {
	c, err := uc.store.FindByID(ctx, in.ChatID)
	if err != nil {
		if !errors.Is(err, chat.ErrChatNotFound) {
			return nil, err
		}
		c, err = uc.createNewChat(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	userMessage, err := chat.NewMessage(chat.RoleUser, in.UserMessage, c.Config.Model, uc.tokenizer)
	if err != nil {
		return nil, fmt.Errorf("error creating user message: %w", err)
	}

	if err := uc.addMessageOnChat(c, userMessage); err != nil {
		return nil, err
	}

	reply, err := uc.provider.Chat(ctx, projectMessages(c), uc.callOptions(c, extra)...)
	if err != nil {
		return nil, fmt.Errorf("error completion provider: %w", err)
	}

	// An empty reply surfaces as "content is empty" from the message
	// constructor, unwrapped: it is a provider or configuration
	// concern, not an orchestration stage failure.
	assistantMessage, err := chat.NewMessage(chat.RoleAssistant, reply.Content, c.Config.Model, uc.tokenizer)
	if err != nil {
		return nil, err
	}

	if err := uc.addMessageOnChat(c, assistantMessage); err != nil {
		return nil, err
	}

	if err := uc.store.Update(ctx, c); err != nil {
		return nil, err
	}

	uc.logger.Debug("completion exchanged",
		zap.String("chat_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.Int("token_usage", c.TokenUsage()),
		zap.Int("active_messages", c.CountMessages()),
		zap.Int("evicted_messages", len(c.EvictedMessages())),
	)

	return &Output{
		ChatID:  c.ID,
		UserID:  c.UserID,
		Content: reply.Content,
	}, nil
}

// createNewChat builds and persists a fresh chat from the request's
// config bundle. Each construction step is tagged with its stage.
func (uc *UseCase) createNewChat(ctx context.Context, in Input) (*chat.Chat, error) {
	model, err := chat.NewModel(in.Config.Model, in.Config.ModelMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating model: %w", err)
	}

	initialMessage, err := chat.NewMessage(chat.RoleSystem, in.Config.InitialSystemMessage, model, uc.tokenizer)
	if err != nil {
		return nil, fmt.Errorf("error creating initial message: %w", err)
	}

	cfg := chat.Config{
		Model:            model,
		Temperature:      in.Config.Temperature,
		TopP:             in.Config.TopP,
		N:                in.Config.N,
		Stop:             in.Config.Stop,
		MaxTokens:        in.Config.MaxTokens,
		PresencePenalty:  in.Config.PresencePenalty,
		FrequencyPenalty: in.Config.FrequencyPenalty,
	}

	c, err := chat.NewChat(in.UserID, initialMessage, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating new chat: %w", err)
	}

	if err := uc.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("error saving new chat: %w", err)
	}

	uc.logger.Info("new chat created",
		zap.String("chat_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.String("model", model.Name),
		zap.Int("model_max_tokens", model.MaxTokens),
	)

	return c, nil
}

// addMessageOnChat appends a message to the aggregate, recording how
// many messages the append evicted from the window.
func (uc *UseCase) addMessageOnChat(c *chat.Chat, m *chat.Message) error {
	evictedBefore := len(c.EvictedMessages())
	if _, err := c.AddMessage(m); err != nil {
		return fmt.Errorf("error adding new message: %w", err)
	}
	if evicted := len(c.EvictedMessages()) - evictedBefore; evicted > 0 {
		messagesEvictedTotal.Add(float64(evicted))
		uc.logger.Debug("messages evicted from window",
			zap.String("chat_id", c.ID),
			zap.Int("evicted", evicted),
			zap.Int("token_usage", c.TokenUsage()),
		)
	}
	return nil
}

// projectMessages flattens the chat into the provider's wire shape:
// the fixed system instruction first, then the active window in order.
// Only role and content cross the boundary.
func projectMessages(c *chat.Chat) []llm.Message {
	active := c.Messages()
	out := make([]llm.Message, 0, len(active)+1)
	out = append(out, llm.Message{
		Role:    string(c.InitialSystemMessage.Role),
		Content: c.InitialSystemMessage.Content,
	})
	for _, m := range active {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// callOptions maps the chat's generation config onto provider call
// options, with extra options (e.g. streaming) appended last.
func (uc *UseCase) callOptions(c *chat.Chat, extra []llm.CallOption) []llm.CallOption {
	opts := []llm.CallOption{
		llm.WithModel(c.Config.Model.Name),
		llm.WithMaxTokens(c.Config.MaxTokens),
		llm.WithTemperature(c.Config.Temperature),
		llm.WithTopP(c.Config.TopP),
		llm.WithN(c.Config.N),
		llm.WithStop(c.Config.Stop),
		llm.WithPresencePenalty(c.Config.PresencePenalty),
		llm.WithFrequencyPenalty(c.Config.FrequencyPenalty),
	}
	return append(opts, extra...)
}
