package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ARGONAUT_CONFIG env, ./config.yaml,
//     ~/.config/argonaut/config.yaml, /etc/argonaut/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
//  1. Explicit configPath argument
//  2. ARGONAUT_CONFIG environment variable
//  3. ./config.yaml in the current directory
//  4. ~/.config/argonaut/config.yaml
//  5. /etc/argonaut/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ARGONAUT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "argonaut", "config.yaml"))
	}
	candidates = append(candidates, "/etc/argonaut/config.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Values set
// here win over the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARGONAUT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ARGONAUT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ARGONAUT_USER"); v != "" {
		cfg.Argo.User = v
	}
	if v := os.Getenv("ARGONAUT_ARGO_URL"); v != "" {
		cfg.Argo.ChatURL = v
	}
	if v := os.Getenv("ARGONAUT_ARGO_STREAM_URL"); v != "" {
		cfg.Argo.StreamChatURL = v
	}
	if v := os.Getenv("ARGONAUT_ARGO_EMBEDDING_URL"); v != "" {
		cfg.Argo.EmbeddingURL = v
	}
	if v := os.Getenv("ARGONAUT_PSEUDO_STREAM"); v != "" {
		cfg.Engine.PseudoStream = parseBool(v)
	}
	if v := os.Getenv("ARGONAUT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ARGONAUT_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
}

// parseBool accepts the truthy spellings the old proxy accepted.
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. An explicitly set value always wins over its _file variant.
func resolveFileReferences(cfg *Config) error {
	// argo.user_file -> argo.user
	if cfg.Argo.UserFile != "" && cfg.Argo.User == "" {
		val, err := readSecretFile(cfg.Argo.UserFile)
		if err != nil {
			return fmt.Errorf("argo.user_file: %w", err)
		}
		cfg.Argo.User = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
