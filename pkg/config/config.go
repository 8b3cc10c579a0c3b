package config

import "time"

// Config is the root configuration for the chatbot backend.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Chat      ChatConfig      `koanf:"chat"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"            validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

// ModelConfig configures the OpenAI-compatible model backend.
type ModelConfig struct {
	BaseURL   string        `koanf:"base_url"   validate:"required,url"`
	APIKey    string        `koanf:"api_key"`
	ChatModel string        `koanf:"chat_model" validate:"required"`
	MaxTokens int           `koanf:"max_tokens" validate:"min=1"`
	Timeout   time.Duration `koanf:"timeout"`
}

// RetrievalConfig configures the MCP retrieval backend.
type RetrievalConfig struct {
	ServerURL       string        `koanf:"server_url"        validate:"required,url"`
	ResourceBaseURL string        `koanf:"resource_base_url" validate:"omitempty,url"`
	ToolCacheTTL    time.Duration `koanf:"tool_cache_ttl"    validate:"min=1s"`
}

// ChatConfig tunes the orchestration pipeline.
type ChatConfig struct {
	ToolTimeout       time.Duration `koanf:"tool_timeout"        validate:"min=1s"`
	SelectionBackoff  time.Duration `koanf:"selection_backoff"`
	HistoryLimit      int           `koanf:"history_limit"       validate:"min=1"`
	TopCandidates     int           `koanf:"top_candidates"      validate:"min=1"`
	MaxSelectedDocs   int           `koanf:"max_selected_docs"   validate:"min=1"`
	MaxSubDocuments   int           `koanf:"max_sub_documents"   validate:"min=0"`
	ContentCacheSize  int           `koanf:"content_cache_size"  validate:"min=1"`
	ContentCacheTTL   time.Duration `koanf:"content_cache_ttl"`
}

// DatabaseConfig configures the Postgres message store.
type DatabaseConfig struct {
	ConnString  string `koanf:"conn_string" validate:"required"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// RedisConfig configures the Redis session token store.
type RedisConfig struct {
	Addr     string `koanf:"addr" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"   validate:"min=0"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the built-in configuration defaults. Required fields
// (model URL, retrieval URL, database DSN) have no defaults and must come
// from the environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Model: ModelConfig{
			ChatModel: "gpt-4o-mini",
			MaxTokens: 2048,
			Timeout:   60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			ToolCacheTTL: 5 * time.Minute,
		},
		Chat: ChatConfig{
			ToolTimeout:      30 * time.Second,
			SelectionBackoff: 500 * time.Millisecond,
			HistoryLimit:     10,
			TopCandidates:    5,
			MaxSelectedDocs:  3,
			MaxSubDocuments:  3,
			ContentCacheSize: 128,
			ContentCacheTTL:  10 * time.Minute,
		},
		Database: DatabaseConfig{
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
