package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/credgen/internal/config"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openStore returns the layout store selected by the configuration: the
// PostgreSQL table when a database URL is set, the layout file otherwise.
// The returned close function releases the connection pool.
func openStore(ctx context.Context, cfg config.StorageConfig) (layout.Store, func(), error) {
	if !cfg.UsesDatabase() {
		slog.Debug("using layout file", "path", cfg.LayoutFile)
		return layout.NewFileStore(cfg.LayoutFile), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"), "layout", cfg.LayoutName)
	}

	store := layout.NewPGStore(pool, cfg.LayoutName)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
