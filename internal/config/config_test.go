package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// load writes body as the config file of a fresh directory and loads it.
func load(t *testing.T, body string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o644))
	require.NoError(t, Load(dir))
}

func TestLoad_Defaults(t *testing.T) {
	load(t, `{}`)

	for key, want := range defaults {
		assert.Equal(t, want, viper.Get(key), key)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	load(t, `{
		"logLevel": "debug",
		"editor": { "enableAutoSave": true },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.True(t, viper.GetBool("editor.enableAutoSave"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"), "untouched keys keep their default")
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	var notFound viper.ConfigFileNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "memory", GetStorageConfig().Type)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("BOXEDITOR_EDITOR_VIEWCOUNT", "5")
	t.Setenv("BOXEDITOR_STORAGE_TYPE", "sqlite")
	load(t, `{ "editor": { "viewCount": 4 } }`)

	assert.Equal(t, 5, GetEditorConfig().ViewCount)
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
}

func TestGetEditorConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want EditorConfig
	}{
		{
			name: "defaults",
			body: `{}`,
			want: EditorConfig{ViewCount: 3, DefaultZoomRatio: 1, CreateMissing: true},
		},
		{
			name: "explicit",
			body: `{"editor": {"enableAutoSave": true, "viewCount": 4, "defaultZoomRatio": 2.5, "createMissing": false}}`,
			want: EditorConfig{EnableAutoSave: true, ViewCount: 4, DefaultZoomRatio: 2.5},
		},
		{
			name: "invalid values fall back",
			body: `{"editor": {"viewCount": 0, "defaultZoomRatio": -1}}`,
			want: EditorConfig{ViewCount: 3, DefaultZoomRatio: 1, CreateMissing: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load(t, tt.body)
			assert.Equal(t, tt.want, GetEditorConfig())
		})
	}
}

func TestGetStorageConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		load(t, `{}`)

		assert.Equal(t, StorageConfig{
			Type:   "memory",
			SQLite: SQLiteConfig{DumpInterval: 3 * time.Minute, DumpPath: "./boxeditor.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     "5432",
				Username: "postgres",
				Password: "postgres",
				Database: "boxeditor",
			},
		}, GetStorageConfig())
	})

	t.Run("sqlite", func(t *testing.T) {
		load(t, `{
			"storage": {
				"type": "sqlite",
				"memory": { "exportPath": "/tmp/out.json" },
				"sqlite": { "path": "/tmp/boxes.db", "dumpInterval": "10m" }
			}
		}`)

		sc := GetStorageConfig()
		assert.Equal(t, "sqlite", sc.Type)
		assert.Equal(t, "/tmp/out.json", sc.Memory.ExportPath)
		assert.Equal(t, SQLiteConfig{Path: "/tmp/boxes.db", DumpInterval: 10 * time.Minute, DumpPath: "./boxeditor.db"}, sc.SQLite)
	})
}

func TestGetOTelConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want OTelConfig
	}{
		{
			name: "defaults",
			body: `{}`,
			want: OTelConfig{ServiceName: "boxeditor", BatchTimeout: 5 * time.Second, Insecure: true},
		},
		{
			name: "collector",
			body: `{"otel": {"enabled": true, "serviceName": "annotator", "batchTimeout": "30s", "endpoint": "localhost:4318", "insecure": false}}`,
			want: OTelConfig{Enabled: true, ServiceName: "annotator", BatchTimeout: 30 * time.Second, Endpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load(t, tt.body)
			assert.Equal(t, tt.want, GetOTelConfig())
		})
	}
}
