package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/SUSTechPOINTS/boxeditor/internal/boxop"
	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/SUSTechPOINTS/boxeditor/internal/dispatcher"
	"github.com/SUSTechPOINTS/boxeditor/internal/editing"
	"github.com/SUSTechPOINTS/boxeditor/internal/handlers"
	"github.com/SUSTechPOINTS/boxeditor/internal/logging"
	"github.com/SUSTechPOINTS/boxeditor/internal/loop"
	intOtel "github.com/SUSTechPOINTS/boxeditor/internal/otel"
	"github.com/SUSTechPOINTS/boxeditor/internal/parser"
	"github.com/SUSTechPOINTS/boxeditor/internal/render"
	"github.com/SUSTechPOINTS/boxeditor/internal/session"
	"github.com/SUSTechPOINTS/boxeditor/internal/storage"
	"github.com/SUSTechPOINTS/boxeditor/internal/world"
	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app owns everything started for one run of the editor.
type app struct {
	start       time.Time
	slogManager *logging.SlogManager
	logger      *slog.Logger
	logFilePath string
	logFile     *os.File
	otel        *intOtel.Provider
	backend     storage.Backend
	loop        *loop.Loop
	dispatcher  *dispatcher.Dispatcher
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{start: time.Now()}
	level := viper.GetString("logLevel")
	editingCtx := editing.NewContext()

	// stdout until the log file is open
	a.slogManager = logging.NewSlogManager()
	a.slogManager.SetContextProvider(editingCtx.LogAttrs)
	a.slogManager.Setup(nil, level, nil)
	a.logger = a.slogManager.Logger()

	a.openLogFile()
	// a nil *os.File must not become a non-nil io.Writer
	var logOut io.Writer
	if a.logFile != nil {
		logOut = a.logFile
	}

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(otelCfg, logOut, a.logger)
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		provider, _ = intOtel.New(config.OTelConfig{}, nil, nil)
	} else if provider.Enabled() {
		a.logger.Info("OTel provider initialized", "file", a.logFilePath, "endpoint", otelCfg.Endpoint)
	}
	a.otel = provider

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if provider.Enabled() {
		otelLogProvider = provider.LoggerProvider()
	}
	a.slogManager.Setup(logOut, level, otelLogProvider)
	a.logger = a.slogManager.Logger()

	zlogOut := logOut
	if zlogOut == nil {
		zlogOut = os.Stderr
	}
	dbLogger := logging.NewZerolog(zlogOut, level)

	storageCfg := config.GetStorageConfig()
	a.backend, err = createStorageBackend(storageCfg, storageDeps{
		logger:   a.logger,
		dbLogger: &dbLogger,
		version:  CurrentVersion,
	})
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		a.close()
		return nil, err
	}
	if err := a.backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		a.backend = nil
		a.close()
		return nil, err
	}
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)

	a.loop = loop.New(a.logger)
	go func() {
		if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("Editor loop stopped", "error", err)
		}
	}()

	editorCfg := config.GetEditorConfig()
	transfer := core.TransferOptions{CreateMissing: editorCfg.CreateMissing}

	store := world.NewStore(ctx, world.Dependencies{
		Backend: a.backend,
		Loop:    a.loop,
		Logger:  a.logger,
	})
	op := boxop.New(ctx, boxop.Dependencies{
		Backend: a.backend,
		Loop:    a.loop,
		Logger:  a.logger,
		Preview: transfer,
	})
	renderer := render.NewRenderer(a.logger)

	pool, err := session.NewManager(session.Config{
		EnableAutoSave: editorCfg.EnableAutoSave,
		Transfer:       transfer,
	}, session.Dependencies{
		Persistence: store,
		Transfer:    op,
		Renderer:    renderer,
		Highlighter: boxop.NewHighlighter(),
		NewViews:    renderer.NewViews(editorCfg),
		Context:     editingCtx,
		Logger:      a.logger,
		OnError: func(err error) {
			a.logger.Error("Editor action failed", "error", err)
		},
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create editor pool: %w", err)
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(dbLogger))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.registerLifecycleHandlers(a.dispatcher)

	scenes, ok := a.backend.(handlers.Scenes)
	if !ok {
		a.close()
		return nil, fmt.Errorf("storage backend %T cannot store scenes", a.backend)
	}
	handlers.NewService(handlers.Dependencies{
		Pool:   pool,
		Data:   store,
		Scenes: scenes,
		Parser: parser.NewParser(a.logger),
		Loop:   a.loop,
		Logger: a.logger,
	}).RegisterHandlers(a.dispatcher)
	a.logger.Debug("Handlers registered", "commands", a.dispatcher.Commands())

	return a, nil
}

// openLogFile switches to the session log in logsDir. Failures leave logging on stdout.
func (a *app) openLogFile() {
	f, path, err := logging.OpenLogFile(viper.GetString("logsDir"), AppName, a.start)
	if err != nil {
		a.logger.Error("Failed to create/open log file!", "error", err, "path", path)
		return
	}
	a.logFile = f
	a.logFilePath = path
	a.logger.Info("Begin logging in logs directory", "path", path)
}

// registerLifecycleHandlers registers commands that do not touch the editor pool.
func (a *app) registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		if a.logFilePath == "" {
			return "", nil
		}
		return filepath.Abs(a.logFilePath)
	})

	d.Register(":FLUSH:", func(e dispatcher.Event) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.slogManager.Flush(ctx); err != nil {
			return nil, err
		}
		return "ok", nil
	}, dispatcher.Logged())
}

// run reads commands from in until it is exhausted or ctx is done.
func (a *app) run(ctx context.Context, in io.Reader, out io.Writer) error {
	a.logger.Info("Ready", "version", CurrentVersion, "startup", time.Since(a.start))

	done := make(chan error, 1)
	go func() {
		done <- runConsole(ctx, a.dispatcher, in, out)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		return nil
	}
}

// close releases everything newApp acquired. It is safe on a partially built app.
func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
		a.backend = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
		a.otel = nil
	}

	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
