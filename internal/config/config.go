// Package config turns the raw Viper tree into the typed settings the
// service components consume, and builds the logger from it.
package config

import (
	"fmt"

	"github.com/HerbHall/tokenchat/internal/completion"
	"github.com/HerbHall/tokenchat/internal/llm"
	"github.com/HerbHall/tokenchat/internal/server"
	"github.com/spf13/viper"
)

// Server extracts the server section.
func Server(v *viper.Viper) (server.Config, error) {
	var cfg server.Config
	if err := v.UnmarshalKey("server", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal server config: %w", err)
	}
	return cfg, nil
}

// ChatDefaults extracts the chat section: the generation settings
// applied whenever a request starts a new chat.
func ChatDefaults(v *viper.Viper) completion.ConfigInput {
	return completion.ConfigInput{
		Model:                v.GetString("chat.model"),
		ModelMaxTokens:       v.GetInt("chat.model_max_tokens"),
		Temperature:          v.GetFloat64("chat.temperature"),
		TopP:                 v.GetFloat64("chat.top_p"),
		N:                    v.GetInt("chat.n"),
		Stop:                 v.GetStringSlice("chat.stop"),
		MaxTokens:            v.GetInt("chat.max_tokens"),
		PresencePenalty:      v.GetFloat64("chat.presence_penalty"),
		FrequencyPenalty:     v.GetFloat64("chat.frequency_penalty"),
		InitialSystemMessage: v.GetString("chat.initial_system_message"),
	}
}

// LLM extracts the llm section: provider selection and per-provider
// settings.
func LLM(v *viper.Viper) (llm.Config, error) {
	cfg := llm.DefaultConfig()
	if err := v.UnmarshalKey("llm", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal llm config: %w", err)
	}
	return cfg, nil
}

// DatabaseDSN returns the SQLite path.
func DatabaseDSN(v *viper.Viper) string {
	return v.GetString("database.dsn")
}
