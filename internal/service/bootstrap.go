package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"budgetmirror/internal/cache"
	"budgetmirror/internal/config"
	"budgetmirror/internal/remote"
	"budgetmirror/internal/repository/sqlite"
)

// Open wires a Gateway from configuration: the SQLite mirror, the response
// cache and the HTTP client behind it. The token is not checked here so the
// read-only commands work without one; call cfg.Validate before syncing.
func Open(cfg *config.Config, logger zerolog.Logger, eventBus *EventBus) (*Gateway, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	store, err := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger.With().Str("component", "store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}

	responses := cache.New(cfg.Cache.Path, cfg.Cache.Refresh.Duration(),
		cache.WithMaxAge(cfg.Cache.MaxAge.Duration()),
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
	)
	responses.SetForceRefresh(cfg.Cache.ForceRefresh)

	client := remote.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout.Duration(), logger)
	api := remote.NewAPI(responses, client, logger)

	return NewGateway(api, store, responses, eventBus, logger, GatewayOptions{
		Incremental: cfg.Sync.Incremental,
	}), nil
}
