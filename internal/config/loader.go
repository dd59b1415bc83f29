package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("5s", "10m") in every supported format.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config holds runtime parameters for the service.
type Config struct {
	Addr         string      `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string      `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string      `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes int64       `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	AdminSecret  string      `json:"admin_secret" yaml:"admin_secret" toml:"admin_secret"`
	CORS         CORSConfig  `json:"cors" yaml:"cors" toml:"cors"`
	Provider     Provider    `json:"provider" yaml:"provider" toml:"provider"`
	Cache        CacheConfig `json:"cache" yaml:"cache" toml:"cache"`
	Suggest      SuggestCfg  `json:"suggest" yaml:"suggest" toml:"suggest"`
	Audit        AuditConfig `json:"audit" yaml:"audit" toml:"audit"`
}

// CORSConfig is opt-in; when disabled no CORS middleware is installed.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Provider configures the upstream completion endpoint.
type Provider struct {
	BaseURL          string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey           string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model            string   `json:"model" yaml:"model" toml:"model"`
	Timeout          Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	ConnectTimeout   Duration `json:"connect_timeout" yaml:"connect_timeout" toml:"connect_timeout"`
	MaxRetries       int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	TopP             float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	PresencePenalty  float64  `json:"presence_penalty" yaml:"presence_penalty" toml:"presence_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty" yaml:"frequency_penalty" toml:"frequency_penalty"`
	Stream           bool     `json:"stream" yaml:"stream" toml:"stream"`
	AllowAnonymous   bool     `json:"allow_anonymous" yaml:"allow_anonymous" toml:"allow_anonymous"`
}

// CacheConfig sizes the suggestion cache.
type CacheConfig struct {
	MaxSize      int      `json:"max_size" yaml:"max_size" toml:"max_size"`
	TTL          Duration `json:"ttl" yaml:"ttl" toml:"ttl"`
	KeyChars     int      `json:"key_chars" yaml:"key_chars" toml:"key_chars"`
	Fuzzy        bool     `json:"fuzzy" yaml:"fuzzy" toml:"fuzzy"`
	Threshold    float64  `json:"threshold" yaml:"threshold" toml:"threshold"`
	FuzzyWords   int      `json:"fuzzy_words" yaml:"fuzzy_words" toml:"fuzzy_words"`
	SnapshotPath string   `json:"snapshot_path" yaml:"snapshot_path" toml:"snapshot_path"`
}

// SuggestCfg bounds the orchestrator.
type SuggestCfg struct {
	ContextChars int      `json:"context_chars" yaml:"context_chars" toml:"context_chars"`
	Budget       Duration `json:"budget" yaml:"budget" toml:"budget"`
	MaxInflight  int      `json:"max_inflight" yaml:"max_inflight" toml:"max_inflight"`
}

// AuditConfig configures the SQLite audit log.
type AuditConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Path            string `json:"path" yaml:"path" toml:"path"`
	RetentionDays   int    `json:"retention_days" yaml:"retention_days" toml:"retention_days"`
	QueueSize       int    `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
	StoreSuggestion bool   `json:"store_suggestion" yaml:"store_suggestion" toml:"store_suggestion"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "json",
		MaxBodyBytes: 1 << 20,
		Provider: Provider{
			BaseURL:          "https://api.openai.com",
			Model:            "gpt-4o-mini",
			Timeout:          Duration(5 * time.Second),
			ConnectTimeout:   Duration(2 * time.Second),
			MaxRetries:       1,
			TopP:             0.9,
			PresencePenalty:  0.1,
			FrequencyPenalty: 0.1,
		},
		Cache: CacheConfig{
			MaxSize:    500,
			TTL:        Duration(10 * time.Minute),
			KeyChars:   50,
			Fuzzy:      true,
			Threshold:  0.8,
			FuzzyWords: 5,
		},
		Suggest: SuggestCfg{
			ContextChars: 1000,
			Budget:       Duration(6 * time.Second),
			MaxInflight:  16,
		},
		Audit: AuditConfig{
			Path:          "~/.cache/suggestd/audit.db",
			RetentionDays: 30,
			QueueSize:     256,
		},
	}
}

// Load reads a configuration file based on its extension, on top of
// Default(). Supports: .yaml/.yml, .json, .jsonc, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(b), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
