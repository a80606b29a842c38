// Package config reads the editor settings through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the name of the JSON config file looked up in the config directory.
const ConfigFileName = "boxeditor.cfg.json"

// EditorConfig holds editor pool settings
type EditorConfig struct {
	EnableAutoSave   bool    `json:"enableAutoSave" mapstructure:"enableAutoSave"`
	ViewCount        int     `json:"viewCount" mapstructure:"viewCount"`
	DefaultZoomRatio float64 `json:"defaultZoomRatio" mapstructure:"defaultZoomRatio"`
	CreateMissing    bool    `json:"createMissing" mapstructure:"createMissing"`
}

// SQLiteConfig holds sqlite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	ExportPath string `json:"exportPath" mapstructure:"exportPath"`
}

// PostgresConfig holds postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the annotation store
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"-" mapstructure:"-"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// EnvPrefix prefixes environment overrides: BOXEDITOR_EDITOR_VIEWCOUNT sets
// editor.viewCount.
const EnvPrefix = "BOXEDITOR"

const (
	defaultViewCount = 3
	defaultZoomRatio = 1.0
)

var defaults = map[string]any{
	"logLevel": "info",
	"logsDir":  "./logs",

	"editor.enableAutoSave":   false,
	"editor.viewCount":        defaultViewCount,
	"editor.defaultZoomRatio": defaultZoomRatio,
	"editor.createMissing":    true,

	"storage.type":                "memory",
	"storage.memory.exportPath":   "",
	"storage.sqlite.path":         "",
	"storage.sqlite.dumpInterval": "3m",
	"storage.sqlite.dumpPath":     "./boxeditor.db",

	"db.host":     "localhost",
	"db.port":     "5432",
	"db.username": "postgres",
	"db.password": "postgres",
	"db.database": "boxeditor",

	"otel.enabled":      false,
	"otel.serviceName":  "boxeditor",
	"otel.batchTimeout": "5s",
	"otel.endpoint":     "",
	"otel.insecure":     true,
}

// SetDefaults registers every default value and the environment overrides.
// Load calls it; tests that skip the config file can call it directly.
func SetDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load registers the defaults, then reads ConfigFileName from configDir. The
// defaults stay in effect when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetEditorConfig returns the editor pool settings. Non-positive view counts and
// zoom ratios fall back to the defaults.
func GetEditorConfig() EditorConfig {
	cfg := EditorConfig{
		EnableAutoSave:   viper.GetBool("editor.enableAutoSave"),
		ViewCount:        viper.GetInt("editor.viewCount"),
		DefaultZoomRatio: viper.GetFloat64("editor.defaultZoomRatio"),
		CreateMissing:    viper.GetBool("editor.createMissing"),
	}
	if cfg.ViewCount <= 0 {
		cfg.ViewCount = defaultViewCount
	}
	if cfg.DefaultZoomRatio <= 0 {
		cfg.DefaultZoomRatio = defaultZoomRatio
	}
	return cfg
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			ExportPath: viper.GetString("storage.memory.exportPath"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
