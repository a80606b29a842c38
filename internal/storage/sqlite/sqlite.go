// Package sqlitestorage implements the storage.Backend interface using SQLite.
// It wraps the GORM backend via composition. The SQLite-specific concerns are
// (a) opening a file or in-memory DB and (b) periodically dumping an in-memory DB
// to disk via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/database"
	gormstorage "github.com/SUSTechPOINTS/boxeditor/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds the loggers handed to the embedded GORM backend.
type Dependencies struct {
	Logger       *slog.Logger
	DBLogger     *zerolog.Logger
	BuildVersion string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	done     sync.WaitGroup
	stopOnce sync.Once
}

// New opens the SQLite database. An empty cfg.Path opens an in-memory database.
func New(cfg config.SQLiteConfig, deps Dependencies) (*Backend, error) {
	db, err := database.OpenSqlite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	return newWithDB(db, cfg, deps), nil
}

func newWithDB(db *gorm.DB, cfg config.SQLiteConfig, deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:           db,
		Logger:       logger,
		DBLogger:     deps.DBLogger,
		BuildVersion: deps.BuildVersion,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}
}

// Init initializes the embedded GORM backend and starts the dump goroutine
// for in-memory databases.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.dumps() {
		b.done.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump, and closes the embedded GORM backend.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.done.Wait()

	if b.dumps() {
		if err := database.VacuumInto(b.db, b.cfg.DumpPath); err != nil {
			b.log.Error("final dump failed", "path", b.cfg.DumpPath, "error", err)
		}
	}
	return b.Backend.Close()
}

func (b *Backend) dumps() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.done.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.VacuumInto(b.db, b.cfg.DumpPath); err != nil {
				b.log.Error("error dumping to disk", "path", b.cfg.DumpPath, "error", err)
			} else {
				b.log.Debug("dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
			}
		}
	}
}
