package main

import (
	"fmt"
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage/memory"
	pgstorage "github.com/SUSTechPOINTS/boxeditor/internal/storage/postgres"
	sqlitestorage "github.com/SUSTechPOINTS/boxeditor/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

type storageDeps struct {
	logger   *slog.Logger
	dbLogger *zerolog.Logger
	version  string
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(storageCfg.Postgres, pgstorage.Dependencies{
			Logger:       deps.logger,
			DBLogger:     deps.dbLogger,
			BuildVersion: deps.version,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, sqlitestorage.Dependencies{
			Logger:       deps.logger,
			DBLogger:     deps.dbLogger,
			BuildVersion: deps.version,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "memory", "":
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownType, storageCfg.Type)
	}
}
