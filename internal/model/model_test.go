package model

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"EditorInfo", &EditorInfo{}, "editor_infos"},
		{"Scene", &Scene{}, "scenes"},
		{"Annotation", &Annotation{}, "annotations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestSceneGetOrInsert(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(DatabaseModels...))

	s := &Scene{Name: "example", Frames: datatypes.JSON(`["000","001"]`)}
	created, err := s.GetOrInsert(db)
	require.NoError(t, err)
	assert.True(t, created)

	again := &Scene{Name: "example"}
	created, err = again.GetOrInsert(db)
	require.NoError(t, err)
	assert.False(t, created)
	assert.JSONEq(t, `["000","001"]`, string(again.Frames))
}
