package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SUSTechPOINTS/boxeditor/internal/cache"
	"github.com/SUSTechPOINTS/boxeditor/internal/editor"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotActivated is returned when saving a frame that was never loaded.
	// Saving it would overwrite the stored frame with an empty one.
	ErrNotActivated = errors.New("world not activated")

	// ErrForeignWorld is returned for worlds created by another store.
	ErrForeignWorld = errors.New("world does not belong to this store")
)

const defaultParallelism = 8

// Poster schedules a function on the loop goroutine.
type Poster interface {
	Post(fn func())
}

// Dependencies holds the store's collaborators.
type Dependencies struct {
	Backend storage.Backend
	Loop    Poster
	Logger  *slog.Logger
	// Parallelism bounds concurrent storage calls of one batch. Zero means 8.
	Parallelism int
}

// Store creates worlds, loads them and writes them back.
// Its methods must be called on the loop goroutine; completions are posted to the loop.
type Store struct {
	deps    Dependencies
	log     *slog.Logger
	ctx     context.Context
	worlds  *cache.Cache[core.FrameInfo, *World]
	pending cache.Counter
}

// NewStore creates a store. ctx bounds every storage call it makes.
func NewStore(ctx context.Context, deps Dependencies) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Parallelism <= 0 {
		deps.Parallelism = defaultParallelism
	}
	return &Store{
		deps:   deps,
		log:    logger,
		ctx:    ctx,
		worlds: cache.New[core.FrameInfo, *World](),
	}
}

// World returns the world of (scene, frame), creating an unloaded one on first use.
// The same frame always yields the same *World.
func (s *Store) World(scene, frame string) *World {
	info := core.FrameInfo{Scene: scene, Frame: frame}
	return s.worlds.GetOrCreate(info, func() *World {
		return &World{info: info, store: s}
	})
}

// GetWorld implements session.DataSource.
func (s *Store) GetWorld(scene, frame string) editor.World {
	return s.World(scene, frame)
}

// Pending returns the number of storage batches whose completion has not run yet.
func (s *Store) Pending() int {
	return s.pending.Value()
}

// ActivateWorld loads the world from storage unless it is loaded already.
func (s *Store) ActivateWorld(w editor.World, done func(error)) {
	world, err := s.own(w)
	if err != nil {
		s.deps.Loop.Post(func() { done(err) })
		return
	}
	if world.activated {
		s.deps.Loop.Post(func() { done(nil) })
		return
	}
	s.load([]*World{world}, done)
}

// SaveWorldList writes every world to storage in parallel. The boxes are captured
// before returning, so edits made while the save runs are not part of it.
func (s *Store) SaveWorldList(worlds []editor.World, done func(error)) {
	type job struct {
		info  core.FrameInfo
		boxes []core.Box
	}

	jobs := make([]job, 0, len(worlds))
	for _, w := range worlds {
		world, err := s.own(w)
		if err == nil && !world.activated {
			err = fmt.Errorf("%w: %s/%s", ErrNotActivated, world.info.Scene, world.info.Frame)
		}
		if err != nil {
			s.deps.Loop.Post(func() { done(err) })
			return
		}
		jobs = append(jobs, job{info: world.info, boxes: world.snapshot()})
	}

	s.run(func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(s.deps.Parallelism)
		for _, j := range jobs {
			g.Go(func() error {
				return s.deps.Backend.SaveFrame(ctx, j.info.Scene, j.info.Frame, j.boxes)
			})
		}
		return g.Wait()
	}, func(err error) {
		if err == nil {
			s.log.Debug("saved worlds", "count", len(jobs))
		}
		done(err)
	})
}

// ReloadWorldList replaces the boxes of every world with the stored ones.
func (s *Store) ReloadWorldList(worlds []editor.World, done func(error)) {
	own := make([]*World, 0, len(worlds))
	for _, w := range worlds {
		world, err := s.own(w)
		if err != nil {
			s.deps.Loop.Post(func() { done(err) })
			return
		}
		own = append(own, world)
	}
	s.load(own, done)
}

// load fetches the worlds in parallel and installs the results on the loop.
// A world with a newer load request in flight keeps waiting for that one.
func (s *Store) load(worlds []*World, done func(error)) {
	seqs := make([]uint64, len(worlds))
	for i, w := range worlds {
		w.loadSeq++
		seqs[i] = w.loadSeq
	}
	results := make([][]core.Box, len(worlds))

	s.run(func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(s.deps.Parallelism)
		for i, w := range worlds {
			info := w.info
			g.Go(func() error {
				boxes, err := s.deps.Backend.LoadFrame(ctx, info.Scene, info.Frame)
				if err != nil {
					return err
				}
				results[i] = boxes
				return nil
			})
		}
		return g.Wait()
	}, func(err error) {
		if err == nil {
			for i, w := range worlds {
				if w.loadSeq != seqs[i] {
					s.log.Debug("skipping superseded load", "scene", w.info.Scene, "frame", w.info.Frame)
					continue
				}
				w.install(results[i])
			}
		}
		done(err)
	})
}

// run executes work off the loop and posts finish back with its error.
func (s *Store) run(work func(ctx context.Context) error, finish func(error)) {
	s.pending.Inc()
	go func() {
		err := work(s.ctx)
		s.deps.Loop.Post(func() {
			s.pending.Dec()
			finish(err)
		})
	}()
}

func (s *Store) own(w editor.World) (*World, error) {
	world, ok := w.(*World)
	if !ok || world == nil || world.store != s {
		return nil, ErrForeignWorld
	}
	return world, nil
}
