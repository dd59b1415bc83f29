package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyEnv overlays SUGGESTD_* variables (and OPENAI_API_KEY when no key is
// set) onto cfg. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SUGGESTD_ADDR", &c.Addr)
	str("SUGGESTD_LOG_LEVEL", &c.LogLevel)
	str("SUGGESTD_LOG_FORMAT", &c.LogFormat)
	str("SUGGESTD_ADMIN_SECRET", &c.AdminSecret)
	str("SUGGESTD_PROVIDER_BASE_URL", &c.Provider.BaseURL)
	str("SUGGESTD_PROVIDER_MODEL", &c.Provider.Model)
	str("SUGGESTD_PROVIDER_API_KEY", &c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		str("OPENAI_API_KEY", &c.Provider.APIKey)
	}
	str("SUGGESTD_CACHE_SNAPSHOT", &c.Cache.SnapshotPath)
	str("SUGGESTD_AUDIT_PATH", &c.Audit.Path)

	if v := strings.TrimSpace(getenv("SUGGESTD_PROVIDER_TIMEOUT")); v != "" {
		if err := c.Provider.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("SUGGESTD_PROVIDER_TIMEOUT: %w", err)
		}
	}
	if v := strings.TrimSpace(getenv("SUGGESTD_CACHE_MAX_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUGGESTD_CACHE_MAX_SIZE: %w", err)
		}
		c.Cache.MaxSize = n
	}
	if v := strings.TrimSpace(getenv("SUGGESTD_AUDIT_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SUGGESTD_AUDIT_ENABLED: %w", err)
		}
		c.Audit.Enabled = b
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty")
	case c.LogFormat != "json" && c.LogFormat != "console":
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	case c.Provider.Timeout <= 0:
		return fmt.Errorf("provider.timeout must be positive")
	case c.Provider.MaxRetries < 0 || c.Provider.MaxRetries > 1:
		return fmt.Errorf("provider.max_retries must be 0 or 1")
	case c.Suggest.Budget.D() <= c.Provider.Timeout.D():
		return fmt.Errorf("suggest.budget (%s) must exceed provider.timeout (%s)", c.Suggest.Budget.D(), c.Provider.Timeout.D())
	case c.Cache.MaxSize <= 0:
		return fmt.Errorf("cache.max_size must be positive")
	case c.Cache.TTL <= 0:
		return fmt.Errorf("cache.ttl must be positive")
	case c.Cache.Threshold <= 0 || c.Cache.Threshold > 1:
		return fmt.Errorf("cache.threshold must be in (0,1]")
	case c.Suggest.ContextChars <= 0:
		return fmt.Errorf("suggest.context_chars must be positive")
	case c.Audit.Enabled && strings.TrimSpace(c.Audit.Path) == "":
		return fmt.Errorf("audit.path is required when audit is enabled")
	}
	return nil
}
