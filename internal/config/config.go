// Package config loads the optional arbor.yaml file and ARBOR_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
)

// DefaultFile is read when --config is not given and the file exists.
const DefaultFile = "arbor.yaml"

// Config is the process configuration shared by the CLI commands.
type Config struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Attempts int           `mapstructure:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LogLevel string        `mapstructure:"log_level"`
	JSONLogs bool          `mapstructure:"json_logs"`
	Metrics  bool          `mapstructure:"metrics"`
	// Serialize requests of the same session (process-local, or through Redis when the
	// redis store is used).
	Serialize bool `mapstructure:"serialize"`

	Store StoreConfig `mapstructure:"store"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Dir     string        `mapstructure:"dir"`
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	// EncryptionKey is a 32-byte AES key, hex or base64 encoded.
	EncryptionKey string   `mapstructure:"encryption_key"`
	PII           []string `mapstructure:"pii"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     8080,
		Attempts: 10,
		Timeout:  5 * time.Minute,
		LogLevel: "info",
		Store: StoreConfig{
			Backend: StoreMemory,
			Dir:     ".arbor/sessions",
			Path:    ".arbor/sessions.db",
			URL:     "redis://localhost:6379/0",
		},
	}
}

// Load reads path over the defaults and then applies the environment. An empty
// path loads DefaultFile when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode merges YAML data into cfg. Keys absent from data keep their value.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis, StoreBolt:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ARBOR_HOST":           &c.Host,
		"ARBOR_LOG_LEVEL":      &c.LogLevel,
		"ARBOR_STORE":          &c.Store.Backend,
		"ARBOR_STORE_DIR":      &c.Store.Dir,
		"ARBOR_BOLT_PATH":      &c.Store.Path,
		"ARBOR_REDIS_URL":      &c.Store.URL,
		"ARBOR_REDIS_PREFIX":   &c.Store.Prefix,
		"ARBOR_ENCRYPTION_KEY": &c.Store.EncryptionKey,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("ARBOR_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARBOR_PORT: %w", err)
		}
		c.Port = port
	}
	for name, dst := range map[string]*time.Duration{
		"ARBOR_TIMEOUT":   &c.Timeout,
		"ARBOR_REDIS_TTL": &c.Store.TTL,
	} {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}
	if v, ok := lookup("ARBOR_PII"); ok {
		c.Store.PII = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Store.PII = append(c.Store.PII, p)
			}
		}
	}
	if v, ok := lookup("ARBOR_SERIALIZE"); ok {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARBOR_SERIALIZE: %w", err)
		}
		c.Serialize = on
	}
	return nil
}
