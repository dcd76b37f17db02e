package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"wikifacts/internal/config"
	"wikifacts/internal/store"
	"wikifacts/internal/store/postgres"
	"wikifacts/internal/store/sqlite"
)

// env is what every command needs once the project config is loaded.
type env struct {
	cfg    *config.ProjectConfig
	tables *config.Tables
	logger *slog.Logger
	db     store.Store
}

func (e *env) Close(ctx context.Context) {
	if e.db != nil {
		if err := e.db.Close(ctx); err != nil {
			e.logger.Warn("closing store", "error", err)
		}
	}
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	tables, err := config.LoadTables(cfg.Tables)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, tables: tables, logger: logger, db: db}, nil
}

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.Database.Driver() {
	case "sqlite":
		db, err = sqlite.New(ctx, cfg.Database.DSN)
	default:
		db, err = postgres.New(ctx, cfg.Database.DSN)
	}
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return db, nil
}

// newLogger writes to stderr so stdout stays clean for command output.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
