// Package database opens the gorm connections behind the SQL storage backends.
package database

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion is bumped whenever model.DatabaseModels change incompatibly.
const SchemaVersion = 1

// ErrNoDumpPath is returned by VacuumInto without a target file.
var ErrNoDumpPath = errors.New("sqlite dump path not set")

const memoryDSN = "file::memory:?cache=shared"

// sqlitePragmas trade durability for speed; durable copies come from VacuumInto.
var sqlitePragmas = []string{
	"PRAGMA user_version = 1",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA synchronous = OFF",
	"PRAGMA cache_size = -32000",
	"PRAGMA temp_store = MEMORY",
}

func gormConfig(batch int) *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batch,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// PostgresDSN builds the keyword/value connection string for cfg.
func PostgresDSN(cfg config.PostgresConfig) string {
	parts := []string{
		"host=" + cfg.Host,
		"port=" + cfg.Port,
		"user=" + cfg.Username,
		"password=" + cfg.Password,
		"dbname=" + cfg.Database,
		"sslmode=disable",
	}
	return strings.Join(parts, " ")
}

// OpenPostgres connects to the database described by cfg.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	dialector := postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	})
	db, err := gorm.Open(dialector, gormConfig(1000))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}
	return db, nil
}

// OpenSqlite opens the database file at path, or a shared in-memory database when
// path is empty.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	}

	cfg := gormConfig(500)
	cfg.PrepareStmt = true
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Migrate creates or updates the annotation schema and stamps it with SchemaVersion.
// The first build to migrate a given version is the one recorded.
func Migrate(db *gorm.DB, buildVersion string, log zerolog.Logger) error {
	dialect := db.Dialector.Name()
	log.Info().Str("dialect", dialect).Msg("Migrating schema")

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate %s schema: %w", dialect, err)
	}

	info := model.EditorInfo{SchemaVersion: SchemaVersion}
	err := db.Where(&info).
		Attrs(model.EditorInfo{BuildVersion: buildVersion}).
		FirstOrCreate(&info).Error
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	log.Info().
		Int("schemaVersion", info.SchemaVersion).
		Str("build", info.BuildVersion).
		Msg("Schema ready")
	return nil
}

// VacuumInto writes a compacted copy of db to path, replacing any existing file.
func VacuumInto(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoDumpPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove previous dump: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", "file:"+path).Error; err != nil {
		return fmt.Errorf("failed to vacuum into %s: %w", path, err)
	}
	return nil
}
