package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace is one tier more verbose than slog.LevelDebug, reached at
// verbosity 3 ("-vvv") — the original's "trace" tier.
const LevelTrace = slog.Level(-8)

// Log defaults to slog's own default logger so packages that log before
// (or without) Init ever running — tests, for instance — don't panic on a
// nil logger.
var Log = slog.Default()

// Init initializes the global logger from the CLI's repeated -v count:
// 0 -> info, 1-2 -> debug, 3 or more -> trace. The original suppresses its
// SSH library's own debug noise at verbosity 1 ("debug,thrussh=info");
// golang.org/x/crypto/ssh has no logging of its own to suppress, so every
// tier above 0 here simply widens what our own code logs.
func Init(verbosity int, logFile string) error {
	var logLevel slog.Level
	switch {
	case verbosity <= 0:
		logLevel = slog.LevelInfo
	case verbosity <= 2:
		logLevel = slog.LevelDebug
	default:
		logLevel = LevelTrace
	}

	// Set up multi-writer (stdout + file)
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	multiWriter := io.MultiWriter(writers...)

	// Create handler with custom options
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Shorten time format
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)

	return nil
}

// Connection returns a logger with the given connection's id and peer
// address bound, so every log line for one SSH connection carries them
// without repeating them at each call site.
func Connection(connectionID, peer string) *slog.Logger {
	return Log.With("connection_id", connectionID, "peer", peer)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Trace logs below debug level, reached only at -vvv.
func Trace(msg string, args ...any) {
	Log.Log(context.Background(), LevelTrace, msg, args...)
}
