package suggest

import (
	"time"

	"github.com/rs/zerolog"

	"suggestd/internal/audit"
	"suggestd/internal/cache"
	"suggestd/internal/provider"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultContextChars = 1000
	DefaultMaxTokens    = provider.MaxTokensCeiling
	DefaultTemperature  = 0.3
	DefaultBudget       = 6 * time.Second
	DefaultMaxInflight  = 16
)

// Config encapsulates all tunables for Service construction.
type Config struct {
	Cache    *cache.Cache
	Provider provider.Completer
	// Audit is optional; nil disables recording.
	Audit *audit.Log
	// Events is optional; nil installs a no-op publisher.
	Events       EventPublisher
	ContextChars int
	// Budget bounds the whole provider attempt. It should exceed the
	// provider timeout.
	Budget      time.Duration
	MaxInflight int
	Logger      zerolog.Logger
	Now         func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Cache == nil {
		c.Cache = cache.NewDefault()
	}
	if c.Events == nil {
		c.Events = noopPublisher{}
	}
	if c.ContextChars <= 0 {
		c.ContextChars = DefaultContextChars
	}
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.MaxInflight <= 0 {
		c.MaxInflight = DefaultMaxInflight
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
