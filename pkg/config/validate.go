package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// argo.user is required: the backend rejects requests without one.
	if c.Argo.User == "" {
		errs = append(errs, fmt.Errorf("argo.user is required"))
	} else {
		if strings.ContainsAny(c.Argo.User, " \t") {
			errs = append(errs, fmt.Errorf("argo.user must not contain whitespace, got %q", c.Argo.User))
		}
		if strings.EqualFold(c.Argo.User, "cels") {
			errs = append(errs, fmt.Errorf("argo.user must be a personal account, %q is not allowed", c.Argo.User))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	urls := []struct{ field, value string }{
		{"argo.chat_url", c.Argo.ChatURL},
		{"argo.stream_chat_url", c.Argo.StreamChatURL},
		{"argo.embedding_url", c.Argo.EmbeddingURL},
	}
	for _, u := range urls {
		if u.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", u.field))
			continue
		}
		if !strings.HasPrefix(u.value, "http://") && !strings.HasPrefix(u.value, "https://") {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", u.field, u.value))
		}
	}

	if c.Argo.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("argo.max_retries must be >= 0, got %d", c.Argo.MaxRetries))
	}
	if c.Engine.MaxResponseBytes < 0 {
		errs = append(errs, fmt.Errorf("engine.max_response_bytes must be >= 0, got %d", c.Engine.MaxResponseBytes))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "ERROR", "WARN", "INFO", "DEBUG", "TRACE":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}
