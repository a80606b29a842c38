package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope of OTel log records.
const ServiceName = "boxeditor"

// replaced in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

var levels = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// ParseLevel converts a level name to slog.Level. Unknown names are Info.
func ParseLevel(level string) slog.Level {
	if lvl, ok := levels[strings.ToUpper(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// SlogManager owns the process logger. Setup may run more than once, e.g. to move
// output from stdout to the session log file once that is open.
type SlogManager struct {
	logger      *slog.Logger
	scope       ContextProvider
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a manager whose Logger is slog.Default until Setup runs.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// SetContextProvider makes every record carry the editing scope returned by p.
// It takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.scope = p
}

// Setup replaces the logger. Records go to file, or to stdout when file is nil, and
// also to OTel when provider is non-nil.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.logProvider = provider
	m.logger = slog.New(m.handler(file, ParseLevel(level), provider))
	m.logger.Info("Logging initialized", "level", level)
}

func (m *SlogManager) handler(file io.Writer, lvl slog.Level, provider *sdklog.LoggerProvider) slog.Handler {
	out := file
	if out == nil {
		out = osStdout
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcTime}),
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.scope != nil {
		h = NewContextHandler(h, m.scope)
	}
	return h
}

// utcTime writes the record time as RFC3339 UTC.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush exports records buffered for OTel.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
