package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/tokenchat.db")

	// Chat defaults applied when a request starts a new chat.
	v.SetDefault("chat.model", "gpt-4")
	v.SetDefault("chat.model_max_tokens", 4096)
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.top_p", 1.0)
	v.SetDefault("chat.n", 1)
	v.SetDefault("chat.stop", []string{})
	v.SetDefault("chat.max_tokens", 500)
	v.SetDefault("chat.presence_penalty", 0.0)
	v.SetDefault("chat.frequency_penalty", 0.0)
	v.SetDefault("chat.initial_system_message", "You are a helpful assistant.")

	// Completion provider defaults.
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.ollama.url", "http://localhost:11434")
	v.SetDefault("llm.ollama.model", "qwen2.5:32b")
	v.SetDefault("llm.ollama.timeout", "5m")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.timeout", "2m")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.anthropic.timeout", "2m")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("tokenchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tokenchat")
	}

	// Environment variable support: TC_SERVER_PORT=9090
	v.SetEnvPrefix("TC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
