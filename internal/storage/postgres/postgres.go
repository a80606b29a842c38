// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// Queries are shared with the GORM backend; this package owns the connection pool.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/database"
	gormstorage "github.com/SUSTechPOINTS/boxeditor/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// maxOpenConns bounds the pool; frame loads of one session run in parallel.
const maxOpenConns = 10

// Dependencies holds all dependencies for the postgres storage backend.
type Dependencies struct {
	// DB is optional; Init connects with the configured credentials when nil.
	DB           *gorm.DB
	Logger       *slog.Logger
	DBLogger     *zerolog.Logger
	BuildVersion string
}

// Backend implements storage.Backend on a postgres connection pool.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
}

// New creates a new postgres storage backend. No connection is made until Init.
func New(cfg config.PostgresConfig, deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:           deps.DB,
			Logger:       deps.Logger,
			DBLogger:     deps.DBLogger,
			BuildVersion: deps.BuildVersion,
		}),
		cfg: cfg,
	}
}

// Init connects if no DB was injected via Dependencies, validates the connection,
// and runs schema migration.
func (b *Backend) Init() error {
	if b.Backend.DB() == nil {
		db, err := database.OpenPostgres(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		b.Backend.SetDB(db)
	}

	return b.Backend.Init()
}
