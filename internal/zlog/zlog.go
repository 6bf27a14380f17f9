// Package zlog provides the ambient structured logger for changewatch.
//
// It replaces the teacher's FSNOTIFY_DEBUG-env-gated fmt.Fprintf dumper
// (see fsnotify's internal/debug_linux.go and internal/debug_windows.go)
// with a structured zerolog.Logger, gated by the same idiom: debug-level
// output appears only when an environment variable is set.
package zlog

import (
	"os"

	"github.com/rs/zerolog"
)

// DebugEnvVar is the environment variable that enables debug-level
// logging, mirroring the teacher's FSNOTIFY_DEBUG.
const DebugEnvVar = "CHANGEWATCH_DEBUG"

// Default returns a console-writer logger at InfoLevel, or DebugLevel if
// CHANGEWATCH_DEBUG is set in the environment. Callers that want JSON
// output, a different sink, or a different level should build their own
// zerolog.Logger and pass it via changewatch.WithLogger.
func Default() zerolog.Logger {
	level := zerolog.InfoLevel
	if os.Getenv(DebugEnvVar) != "" {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000000000"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
