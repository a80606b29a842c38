// Package gormstorage implements the storage.Backend interface on top of any GORM dialect.
// The sqlite and postgres backends embed it and only add connection handling.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/internal/database"
	"github.com/SUSTechPOINTS/boxeditor/internal/model"
	"github.com/SUSTechPOINTS/boxeditor/internal/model/convert"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchSize bounds the rows per INSERT statement.
const batchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB           *gorm.DB
	Logger       *slog.Logger
	DBLogger     *zerolog.Logger
	BuildVersion string
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
	log  *slog.Logger
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.DBLogger == nil {
		nop := zerolog.Nop()
		deps.DBLogger = &nop
	}
	return &Backend{deps: deps, log: logger}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// SetDB injects a connection opened after construction.
func (b *Backend) SetDB(db *gorm.DB) { b.deps.DB = db }

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database connection")
	}
	if err := database.Migrate(b.deps.DB, b.deps.BuildVersion, *b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveScene inserts or replaces a scene's frame list.
func (b *Backend) SaveScene(ctx context.Context, meta core.SceneMeta) error {
	row := convert.CoreToScene(meta)
	err := b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"frames", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save scene %s: %w", meta.Scene, err)
	}
	return nil
}

// LoadScene returns a stored scene.
func (b *Backend) LoadScene(ctx context.Context, scene string) (core.SceneMeta, error) {
	var row model.Scene
	err := b.deps.DB.WithContext(ctx).Where("name = ?", scene).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.SceneMeta{}, fmt.Errorf("%w: %s", storage.ErrSceneNotFound, scene)
	}
	if err != nil {
		return core.SceneMeta{}, fmt.Errorf("failed to load scene %s: %w", scene, err)
	}
	return convert.SceneToCore(row), nil
}

// LoadFrame returns every box of a frame in insertion order.
func (b *Backend) LoadFrame(ctx context.Context, scene, frame string) ([]core.Box, error) {
	var rows []model.Annotation
	err := b.deps.DB.WithContext(ctx).
		Where("scene = ? AND frame = ?", scene, frame).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s/%s: %w", scene, frame, err)
	}
	return toCore(rows), nil
}

// SaveFrame replaces the frame's boxes in one transaction.
func (b *Backend) SaveFrame(ctx context.Context, scene, frame string, boxes []core.Box) error {
	rows := make([]model.Annotation, 0, len(boxes))
	for _, box := range boxes {
		row := convert.CoreToAnnotation(box)
		row.Scene = scene
		row.Frame = frame
		rows = append(rows, row)
	}

	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scene = ? AND frame = ?", scene, frame).Delete(&model.Annotation{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save frame %s/%s: %w", scene, frame, err)
	}

	b.log.Debug("saved frame", "scene", scene, "frame", frame, "boxes", len(rows))
	return nil
}

// LoadTrack returns every box of trackID in the scene, ordered by frame.
func (b *Backend) LoadTrack(ctx context.Context, scene, trackID string) ([]core.Box, error) {
	var rows []model.Annotation
	err := b.deps.DB.WithContext(ctx).
		Where("scene = ? AND track_id = ?", scene, trackID).
		Order("frame").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load track %s/%s: %w", scene, trackID, err)
	}
	return toCore(rows), nil
}

// UpsertBoxes inserts boxes or replaces the stored rows with the same box ID.
func (b *Backend) UpsertBoxes(ctx context.Context, boxes []core.Box) error {
	if len(boxes) == 0 {
		return nil
	}
	rows := make([]model.Annotation, 0, len(boxes))
	for _, box := range boxes {
		rows = append(rows, convert.CoreToAnnotation(box))
	}

	err := b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "box_id"}},
		UpdateAll: true,
	}).CreateInBatches(&rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d boxes: %w", len(rows), err)
	}
	return nil
}

func toCore(rows []model.Annotation) []core.Box {
	if len(rows) == 0 {
		return nil
	}
	out := make([]core.Box, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.AnnotationToCore(r))
	}
	return out
}
