package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment provide a value.
const (
	DefaultDBPath   = "./data/db"
	DefaultBlobPath = "./data/history.bin"
)

// Load reads the YAML config at path (optional), applies environment
// overrides and fills defaults. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Env overrides use the HAVENSTORE_ prefix; they win over the file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_ADDRESS")); v != "" {
		cfg.Server.Address = v
	}
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_BACKEND")); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_DB_PATH")); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_BLOB_PATH")); v != "" {
		cfg.Storage.BlobPath = v
	}
	if v := os.Getenv("HAVENSTORE_SECRET"); v != "" {
		cfg.Security.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("HAVENSTORE_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "pebble"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DefaultDBPath
	}
	if cfg.Storage.BlobPath == "" {
		cfg.Storage.BlobPath = DefaultBlobPath
	}
	if cfg.Security.RateLimit.RPS <= 0 {
		cfg.Security.RateLimit.RPS = 5
	}
	if cfg.Security.RateLimit.Burst <= 0 {
		cfg.Security.RateLimit.Burst = 10
	}
	if cfg.Limits.MaxAttachments <= 0 {
		cfg.Limits.MaxAttachments = 10
	}
	if cfg.Limits.MaxAttachmentBytes <= 0 {
		cfg.Limits.MaxAttachmentBytes = 25 << 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
