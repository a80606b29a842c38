package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// badKey names a value whose key is missing or not a string, as slog does.
const badKey = "!BADKEY"

// NewZerolog builds the zerolog logger of the database layer and the dispatcher.
// level takes the names ParseLevel accepts; anything else means info.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// DispatcherLogger lets the dispatcher write slog-style key/value pairs to zerolog.
type DispatcherLogger struct {
	zl zerolog.Logger
}

func NewDispatcherLogger(zl zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{zl: zl}
}

func (l *DispatcherLogger) Debug(msg string, kv ...any) { emit(l.zl.Debug(), msg, kv) }

func (l *DispatcherLogger) Info(msg string, kv ...any) { emit(l.zl.Info(), msg, kv) }

func (l *DispatcherLogger) Error(msg string, kv ...any) { emit(l.zl.Error(), msg, kv) }

// emit adds kv to ev and sends it. ev is nil when the level is disabled.
func emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for len(kv) > 0 {
		key, ok := kv[0].(string)
		if !ok || len(kv) == 1 {
			ev = ev.Interface(badKey, kv[0])
			kv = kv[1:]
			continue
		}
		switch v := kv[1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
		kv = kv[2:]
	}
	ev.Msg(msg)
}
