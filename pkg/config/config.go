// Package config provides unified configuration for the argonaut gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ARGONAUT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the argonaut gateway.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Argo    ArgoConfig    `yaml:"argo"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "0.0.0.0"
	Port            int           `yaml:"port"`             // default: 44497
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ArgoConfig holds upstream Argo API settings. The three URLs are complete
// endpoints, not a base to join paths onto.
type ArgoConfig struct {
	User     string `yaml:"user"`      // required: the username sent on every backend request
	UserFile string `yaml:"user_file"` // _file variant for user

	ChatURL       string `yaml:"chat_url"`
	StreamChatURL string `yaml:"stream_chat_url"`
	EmbeddingURL  string `yaml:"embedding_url"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 10s
	HeaderTimeout  time.Duration `yaml:"header_timeout"`  // default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 120s
	MaxRetries     int           `yaml:"max_retries"`     // default: 0 (exactly one attempt)
	MaxConns       int           `yaml:"max_conns"`       // default: 64
}

// EngineConfig holds request orchestration settings.
type EngineConfig struct {
	PseudoStream     bool   `yaml:"pseudo_stream"`      // default: false
	MaxResponseBytes int64  `yaml:"max_response_bytes"` // default: 8 MiB
	ProbeModel       string `yaml:"probe_model"`        // default: "argo:gpt-4o"
}

// LoggingConfig holds logging settings. The ARGONAUT_LOG_LEVEL and
// ARGONAUT_DEBUG environment variables take precedence over these fields.
type LoggingConfig struct {
	Level string `yaml:"level"` // ERROR, WARN, INFO, DEBUG, TRACE; default: "INFO"
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in. The embedding
// endpoint exists only on the production host, so its default differs from
// the chat endpoints.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            44497,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Argo: ArgoConfig{
			ChatURL:        "https://apps-dev.inside.anl.gov/argoapi/api/v1/resource/chat/",
			StreamChatURL:  "https://apps-dev.inside.anl.gov/argoapi/api/v1/resource/streamchat/",
			EmbeddingURL:   "https://apps.inside.anl.gov/argoapi/api/v1/resource/embed/",
			ConnectTimeout: 10 * time.Second,
			HeaderTimeout:  60 * time.Second,
			RequestTimeout: 120 * time.Second,
			MaxConns:       64,
		},
		Engine: EngineConfig{
			MaxResponseBytes: 8 << 20,
			ProbeModel:       "argo:gpt-4o",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
