package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"suggestd/internal/audit"
	"suggestd/internal/cache"
	"suggestd/internal/common/fsutil"
	"suggestd/internal/config"
	"suggestd/internal/provider"
	"suggestd/internal/suggest"
)

// app owns the long-lived pieces behind a Service.
type app struct {
	cfg          config.Config
	log          zerolog.Logger
	cache        *cache.Cache
	audit        *audit.Log
	svc          *suggest.Service
	snapshotPath string
}

// buildApp wires cache, provider, audit log and orchestrator from cfg. The
// audit log is opened only when enabled and withAudit is set.
func buildApp(cfg config.Config, log zerolog.Logger, withAudit bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	a.cache = cache.New(cache.Config{
		MaxSize:      cfg.Cache.MaxSize,
		TTL:          cfg.Cache.TTL.D(),
		KeyChars:     cfg.Cache.KeyChars,
		FuzzyEnabled: cfg.Cache.Fuzzy,
		Threshold:    cfg.Cache.Threshold,
		FuzzyWords:   cfg.Cache.FuzzyWords,
		Logger:       log.With().Str("component", "cache").Logger(),
	})
	if cfg.Cache.SnapshotPath != "" {
		p, err := fsutil.ExpandHome(cfg.Cache.SnapshotPath)
		if err != nil {
			return nil, err
		}
		a.snapshotPath = p
		if !fsutil.PathExists(p) {
			log.Info().Str("path", p).Msg("no cache snapshot yet; starting empty")
		} else if n, err := a.cache.LoadFile(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("cache snapshot not loaded")
		} else {
			log.Info().Int("entries", n).Str("path", p).Msg("cache snapshot loaded")
		}
	}

	prov := provider.New(provider.Config{
		BaseURL:          cfg.Provider.BaseURL,
		APIKey:           cfg.Provider.APIKey,
		Model:            cfg.Provider.Model,
		Timeout:          cfg.Provider.Timeout.D(),
		ConnectTimeout:   cfg.Provider.ConnectTimeout.D(),
		MaxRetries:       cfg.Provider.MaxRetries,
		TopP:             cfg.Provider.TopP,
		PresencePenalty:  cfg.Provider.PresencePenalty,
		FrequencyPenalty: cfg.Provider.FrequencyPenalty,
		Stream:           cfg.Provider.Stream,
		AllowAnonymous:   cfg.Provider.AllowAnonymous,
		Logger:           log.With().Str("component", "provider").Logger(),
	})
	if !prov.Configured() {
		log.Warn().Msg("provider not configured; serving local fallbacks only")
	}

	if withAudit && cfg.Audit.Enabled {
		l, err := openAudit(cfg, log)
		if err != nil {
			return nil, err
		}
		a.audit = l
	}

	a.svc = suggest.New(suggest.Config{
		Cache:        a.cache,
		Provider:     prov,
		Audit:        a.audit,
		ContextChars: cfg.Suggest.ContextChars,
		Budget:       cfg.Suggest.Budget.D(),
		MaxInflight:  cfg.Suggest.MaxInflight,
		Logger:       log.With().Str("component", "suggest").Logger(),
	})
	return a, nil
}

func openAudit(cfg config.Config, log zerolog.Logger) (*audit.Log, error) {
	p, err := fsutil.ExpandHome(cfg.Audit.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("audit dir: %w", err)
	}
	l, err := audit.Open(audit.Config{
		Path:            p,
		QueueSize:       cfg.Audit.QueueSize,
		RetentionDays:   cfg.Audit.RetentionDays,
		StoreSuggestion: cfg.Audit.StoreSuggestion,
		Logger:          log.With().Str("component", "audit").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return l, nil
}

// Close saves the cache snapshot when configured and flushes the audit log.
func (a *app) Close() error {
	var firstErr error
	if a.snapshotPath != "" {
		n, err := a.cache.SaveFile(a.snapshotPath)
		if err != nil {
			firstErr = err
		} else {
			a.log.Info().Int("entries", n).Str("path", a.snapshotPath).Msg("cache snapshot saved")
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
