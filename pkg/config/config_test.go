package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default server.host = %q, want \"0.0.0.0\"", cfg.Server.Host)
	}
	if cfg.Server.Port != 44497 {
		t.Errorf("default server.port = %d, want 44497", cfg.Server.Port)
	}
	if cfg.Server.MaxBodySize != 10<<20 {
		t.Errorf("default server.max_body_size = %d, want %d", cfg.Server.MaxBodySize, 10<<20)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("default server.shutdown_timeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Argo.ChatURL == "" || cfg.Argo.StreamChatURL == "" || cfg.Argo.EmbeddingURL == "" {
		t.Error("default argo URLs must all be set")
	}
	if cfg.Argo.ConnectTimeout != 10*time.Second {
		t.Errorf("default argo.connect_timeout = %v, want 10s", cfg.Argo.ConnectTimeout)
	}
	if cfg.Argo.RequestTimeout != 120*time.Second {
		t.Errorf("default argo.request_timeout = %v, want 120s", cfg.Argo.RequestTimeout)
	}
	if cfg.Argo.MaxRetries != 0 {
		t.Errorf("default argo.max_retries = %d, want 0", cfg.Argo.MaxRetries)
	}
	if cfg.Argo.MaxConns != 64 {
		t.Errorf("default argo.max_conns = %d, want 64", cfg.Argo.MaxConns)
	}
	if cfg.Engine.PseudoStream {
		t.Error("default engine.pseudo_stream = true, want false")
	}
	if cfg.Engine.MaxResponseBytes != 8<<20 {
		t.Errorf("default engine.max_response_bytes = %d, want %d", cfg.Engine.MaxResponseBytes, 8<<20)
	}
	if cfg.Engine.ProbeModel != "argo:gpt-4o" {
		t.Errorf("default engine.probe_model = %q, want \"argo:gpt-4o\"", cfg.Engine.ProbeModel)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("default logging.level = %q, want \"INFO\"", cfg.Logging.Level)
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9000}
	if got := s.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q, want \"127.0.0.1:9000\"", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 10s
argo:
  user: jdoe
  chat_url: http://argo.local/chat/
  stream_chat_url: http://argo.local/streamchat/
  embedding_url: http://argo.local/embed/
  connect_timeout: 5s
  request_timeout: 300s
  max_retries: 2
  max_conns: 16
engine:
  pseudo_stream: true
  max_response_bytes: 1048576
  probe_model: argo:gpt-4
logging:
  level: DEBUG
  debug: translate,toolcall
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want \"127.0.0.1\"", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("server.shutdown_timeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Argo.User != "jdoe" {
		t.Errorf("argo.user = %q, want \"jdoe\"", cfg.Argo.User)
	}
	if cfg.Argo.ChatURL != "http://argo.local/chat/" {
		t.Errorf("argo.chat_url = %q, want yaml value", cfg.Argo.ChatURL)
	}
	if cfg.Argo.ConnectTimeout != 5*time.Second {
		t.Errorf("argo.connect_timeout = %v, want 5s", cfg.Argo.ConnectTimeout)
	}
	if cfg.Argo.RequestTimeout != 300*time.Second {
		t.Errorf("argo.request_timeout = %v, want 300s", cfg.Argo.RequestTimeout)
	}
	if cfg.Argo.MaxRetries != 2 {
		t.Errorf("argo.max_retries = %d, want 2", cfg.Argo.MaxRetries)
	}
	if cfg.Argo.MaxConns != 16 {
		t.Errorf("argo.max_conns = %d, want 16", cfg.Argo.MaxConns)
	}
	if !cfg.Engine.PseudoStream {
		t.Error("engine.pseudo_stream = false, want true")
	}
	if cfg.Engine.MaxResponseBytes != 1048576 {
		t.Errorf("engine.max_response_bytes = %d, want 1048576", cfg.Engine.MaxResponseBytes)
	}
	if cfg.Engine.ProbeModel != "argo:gpt-4" {
		t.Errorf("engine.probe_model = %q, want \"argo:gpt-4\"", cfg.Engine.ProbeModel)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("logging.level = %q, want \"DEBUG\"", cfg.Logging.Level)
	}
	if cfg.Logging.Debug != "translate,toolcall" {
		t.Errorf("logging.debug = %q, want \"translate,toolcall\"", cfg.Logging.Debug)
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	// A partial YAML keeps defaults for everything it does not mention.
	yamlContent := `
argo:
  user: jdoe
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Argo.User != "jdoe" {
		t.Errorf("argo.user = %q, want \"jdoe\"", cfg.Argo.User)
	}
	if cfg.Server.Port != 44497 {
		t.Errorf("server.port = %d, want default 44497", cfg.Server.Port)
	}
	if cfg.Argo.ChatURL != Defaults().Argo.ChatURL {
		t.Errorf("argo.chat_url = %q, want default", cfg.Argo.ChatURL)
	}
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
server:
  host: from-yaml
  port: 9090
argo:
  user: yaml-user
  chat_url: http://from-yaml/chat/
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("ARGONAUT_HOST", "from-env")
	t.Setenv("ARGONAUT_PORT", "7070")
	t.Setenv("ARGONAUT_USER", "env-user")
	t.Setenv("ARGONAUT_ARGO_URL", "http://from-env/chat/")
	t.Setenv("ARGONAUT_PSEUDO_STREAM", "yes")
	t.Setenv("ARGONAUT_LOG_LEVEL", "TRACE")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "from-env" {
		t.Errorf("server.host = %q, want env override", cfg.Server.Host)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Argo.User != "env-user" {
		t.Errorf("argo.user = %q, want env override", cfg.Argo.User)
	}
	if cfg.Argo.ChatURL != "http://from-env/chat/" {
		t.Errorf("argo.chat_url = %q, want env override", cfg.Argo.ChatURL)
	}
	if !cfg.Engine.PseudoStream {
		t.Error("engine.pseudo_stream = false, want env override true")
	}
	if cfg.Logging.Level != "TRACE" {
		t.Errorf("logging.level = %q, want env override \"TRACE\"", cfg.Logging.Level)
	}
}

func TestEnvOnlyNoConfigFile(t *testing.T) {
	// No config file at all: env vars on top of defaults must be enough.
	t.Setenv("ARGONAUT_CONFIG", "")
	t.Setenv("ARGONAUT_USER", "env-only-user")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Argo.User != "env-only-user" {
		t.Errorf("argo.user = %q, want \"env-only-user\"", cfg.Argo.User)
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", "t", "yes", "Y"}
	for _, v := range truthy {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false, want true", v)
		}
	}
	falsy := []string{"", "0", "false", "no", "off", "maybe"}
	for _, v := range falsy {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true, want false", v)
		}
	}
}

func TestFileReference(t *testing.T) {
	userFile := writeTemp(t, "user-*", "  jdoe\n")
	yamlContent := `
argo:
  user_file: ` + userFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Argo.User != "jdoe" {
		t.Errorf("argo.user = %q, want trimmed file content \"jdoe\"", cfg.Argo.User)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	userFile := writeTemp(t, "user-*", "from-file")
	yamlContent := `
argo:
  user: explicit
  user_file: ` + userFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Argo.User != "explicit" {
		t.Errorf("argo.user = %q, want explicit value to win over user_file", cfg.Argo.User)
	}
}

func TestFileReferenceMissingFile(t *testing.T) {
	yamlContent := `
argo:
  user_file: /nonexistent/user.txt
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	if _, err := Load(tmpFile); err == nil {
		t.Fatal("Load() expected error for missing argo.user_file, got nil")
	}
}

func TestFileDiscovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("argo:\n  user: discovered\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("ARGONAUT_CONFIG", "")
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Argo.User != "discovered" {
		t.Errorf("argo.user = %q, want \"discovered\" from ./config.yaml", cfg.Argo.User)
	}
}

func TestEnvConfigPath(t *testing.T) {
	tmpFile := writeTemp(t, "config-*.yaml", "argo:\n  user: from-env-path\n")
	t.Setenv("ARGONAUT_CONFIG", tmpFile)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Argo.User != "from-env-path" {
		t.Errorf("argo.user = %q, want \"from-env-path\" via ARGONAUT_CONFIG", cfg.Argo.User)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "missing user",
			modify:  func(c *Config) { c.Argo.User = "" },
			wantErr: "argo.user is required",
		},
		{
			name:    "user with whitespace",
			modify:  func(c *Config) { c.Argo.User = "two words" },
			wantErr: "argo.user must not contain whitespace",
		},
		{
			name:    "shared account rejected",
			modify:  func(c *Config) { c.Argo.User = "CELS" },
			wantErr: "must be a personal account",
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port must be in 1..65535",
		},
		{
			name:    "missing chat url",
			modify:  func(c *Config) { c.Argo.ChatURL = "" },
			wantErr: "argo.chat_url is required",
		},
		{
			name:    "non-http url",
			modify:  func(c *Config) { c.Argo.StreamChatURL = "ftp://argo/stream" },
			wantErr: "argo.stream_chat_url must be an http(s) URL",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Argo.MaxRetries = -1 },
			wantErr: "argo.max_retries must be >= 0",
		},
		{
			name:    "negative response bound",
			modify:  func(c *Config) { c.Engine.MaxResponseBytes = -1 },
			wantErr: "engine.max_response_bytes must be >= 0",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "LOUD" },
			wantErr: "logging.level must be one of",
		},
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Argo.User = "jdoe"
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Argo.User = ""
	cfg.Server.Port = -1
	cfg.Argo.ChatURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected errors, got nil")
	}
	for _, want := range []string{"argo.user", "server.port", "argo.chat_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q missing %q", err.Error(), want)
		}
	}
}

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing temp file: %v", err)
	}
	return f.Name()
}
