// Package chatstore persists chat aggregates in SQLite, implementing
// the chat.Store contract. A chat row carries the model and generation
// config; messages live in chat_messages with a kind column separating
// the fixed initial instruction, the active window, and evicted history.
package chatstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/tokenchat/internal/chat"
	"github.com/HerbHall/tokenchat/internal/store"
)

// Message kinds in the chat_messages table.
const (
	kindInitial = "initial"
	kindActive  = "active"
	kindEvicted = "evicted"
)

// Compile-time interface guard.
var _ chat.Store = (*SQLiteStore)(nil)

// SQLiteStore implements chat.Store backed by the shared SQLite store.
type SQLiteStore struct {
	store *store.SQLiteStore
}

// New creates the repository and applies its schema migrations.
func New(ctx context.Context, s *store.SQLiteStore) (*SQLiteStore, error) {
	if err := s.Migrate(ctx, "chatstore", migrations()); err != nil {
		return nil, fmt.Errorf("migrate chatstore: %w", err)
	}
	return &SQLiteStore{store: s}, nil
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create chats and chat_messages tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE chats (
						id                TEXT PRIMARY KEY,
						user_id           TEXT NOT NULL,
						status            TEXT NOT NULL,
						token_usage       INTEGER NOT NULL,
						model_name        TEXT NOT NULL,
						model_max_tokens  INTEGER NOT NULL,
						temperature       REAL NOT NULL,
						top_p             REAL NOT NULL,
						n                 INTEGER NOT NULL,
						stop              TEXT NOT NULL,
						max_tokens        INTEGER NOT NULL,
						presence_penalty  REAL NOT NULL,
						frequency_penalty REAL NOT NULL,
						created_at        DATETIME NOT NULL,
						updated_at        DATETIME NOT NULL
					);

					CREATE TABLE chat_messages (
						id         TEXT PRIMARY KEY,
						chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
						kind       TEXT NOT NULL CHECK (kind IN ('initial', 'active', 'evicted')),
						position   INTEGER NOT NULL,
						role       TEXT NOT NULL,
						content    TEXT NOT NULL,
						tokens     INTEGER NOT NULL,
						created_at DATETIME NOT NULL
					);

					CREATE INDEX idx_chat_messages_chat ON chat_messages(chat_id, kind, position);
				`)
				return err
			},
		},
	}
}

// FindByID loads a chat and replays its message history through the
// aggregate, so the rehydrated state went through the same domain
// operations as the original.
func (r *SQLiteStore) FindByID(ctx context.Context, id string) (*chat.Chat, error) {
	if id == "" {
		return nil, chat.ErrChatNotFound
	}

	var (
		userID, status, modelName, stopJSON string
		tokenUsage, modelMaxTokens, n       int
		maxTokens                           int
		temperature, topP                   float64
		presencePenalty, frequencyPenalty   float64
	)
	err := r.store.DB().QueryRowContext(ctx, `
		SELECT user_id, status, token_usage, model_name, model_max_tokens,
		       temperature, top_p, n, stop, max_tokens, presence_penalty, frequency_penalty
		FROM chats WHERE id = ?`, id,
	).Scan(&userID, &status, &tokenUsage, &modelName, &modelMaxTokens,
		&temperature, &topP, &n, &stopJSON, &maxTokens, &presencePenalty, &frequencyPenalty)
	if err == sql.ErrNoRows {
		return nil, chat.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query chat %s: %w", id, err)
	}

	model, err := chat.NewModel(modelName, modelMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("restore model for chat %s: %w", id, err)
	}

	var stop []string
	if err := json.Unmarshal([]byte(stopJSON), &stop); err != nil {
		return nil, fmt.Errorf("decode stop list for chat %s: %w", id, err)
	}

	initial, active, evicted, err := r.loadMessages(ctx, id, model)
	if err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, fmt.Errorf("chat %s has no initial system message", id)
	}

	cfg := chat.Config{
		Model:            model,
		Temperature:      temperature,
		TopP:             topP,
		N:                n,
		Stop:             stop,
		MaxTokens:        maxTokens,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
	}

	c, err := chat.RestoreChat(id, userID, initial, cfg)
	if err != nil {
		return nil, fmt.Errorf("restore chat %s: %w", id, err)
	}
	for _, m := range active {
		if _, err := c.AddMessage(m); err != nil {
			return nil, fmt.Errorf("replay message %s: %w", m.ID, err)
		}
	}
	for _, m := range evicted {
		if _, err := c.AddEvictedMessage(m); err != nil {
			return nil, fmt.Errorf("replay evicted message %s: %w", m.ID, err)
		}
	}
	if chat.Status(status) == chat.StatusEnded {
		c.End()
	}
	return c, nil
}

func (r *SQLiteStore) loadMessages(ctx context.Context, chatID string, model *chat.Model) (initial *chat.Message, active, evicted []*chat.Message, err error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, kind, role, content, tokens, created_at
		FROM chat_messages WHERE chat_id = ?
		ORDER BY kind, position`, chatID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, kind, role, content, createdAt string
			tokens                             int
		)
		if err := rows.Scan(&id, &kind, &role, &content, &tokens, &createdAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan message: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse created_at for message %s: %w", id, err)
		}
		m, err := chat.RestoreMessage(id, chat.Role(role), content, model, tokens, ts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("restore message %s: %w", id, err)
		}
		switch kind {
		case kindInitial:
			initial = m
		case kindActive:
			active = append(active, m)
		case kindEvicted:
			evicted = append(evicted, m)
		}
	}
	return initial, active, evicted, rows.Err()
}

// Create persists a new chat and its initial system message.
func (r *SQLiteStore) Create(ctx context.Context, c *chat.Chat) error {
	return r.store.Tx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM chats WHERE id = ?", c.ID,
		).Scan(&count); err != nil {
			return fmt.Errorf("check chat %s: %w", c.ID, err)
		}
		if count > 0 {
			return chat.ErrChatAlreadyExists
		}

		if err := insertChatRow(ctx, tx, c); err != nil {
			return err
		}
		return writeMessages(ctx, tx, c)
	})
}

// Update persists the current state of an existing chat, replacing its
// message history. The row's updated_at moves; created_at stays.
func (r *SQLiteStore) Update(ctx context.Context, c *chat.Chat) error {
	return r.store.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE chats SET status = ?, token_usage = ?, updated_at = ?
			WHERE id = ?`,
			string(c.Status()), c.TokenUsage(), now(), c.ID)
		if err != nil {
			return fmt.Errorf("update chat %s: %w", c.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update chat %s: %w", c.ID, err)
		}
		if affected == 0 {
			return chat.ErrChatNotFound
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chat_messages WHERE chat_id = ?", c.ID); err != nil {
			return fmt.Errorf("clear messages for chat %s: %w", c.ID, err)
		}
		return writeMessages(ctx, tx, c)
	})
}

func insertChatRow(ctx context.Context, tx *sql.Tx, c *chat.Chat) error {
	stop := c.Config.Stop
	if stop == nil {
		stop = []string{}
	}
	stopJSON, err := json.Marshal(stop)
	if err != nil {
		return fmt.Errorf("encode stop list: %w", err)
	}

	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, status, token_usage, model_name, model_max_tokens,
			temperature, top_p, n, stop, max_tokens, presence_penalty, frequency_penalty,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.Status()), c.TokenUsage(),
		c.Config.Model.Name, c.Config.Model.MaxTokens,
		c.Config.Temperature, c.Config.TopP, c.Config.N, string(stopJSON),
		c.Config.MaxTokens, c.Config.PresencePenalty, c.Config.FrequencyPenalty,
		ts, ts)
	if err != nil {
		return fmt.Errorf("insert chat %s: %w", c.ID, err)
	}
	return nil
}

func writeMessages(ctx context.Context, tx *sql.Tx, c *chat.Chat) error {
	if err := insertMessage(ctx, tx, c.ID, kindInitial, 0, c.InitialSystemMessage); err != nil {
		return err
	}
	for i, m := range c.Messages() {
		if err := insertMessage(ctx, tx, c.ID, kindActive, i, m); err != nil {
			return err
		}
	}
	for i, m := range c.EvictedMessages() {
		if err := insertMessage(ctx, tx, c.ID, kindEvicted, i, m); err != nil {
			return err
		}
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, chatID, kind string, position int, m *chat.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, kind, position, role, content, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, chatID, kind, position, string(m.Role), m.Content, m.Tokens,
		m.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert message %s: %w", m.ID, err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
