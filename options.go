package changewatch

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/changewatch/changewatch/internal/zlog"
)

// defaultBufferSize is the default size of the per-directory overlapped
// read buffer on Windows (16 KiB per watched directory); no-op on other
// platforms.
const defaultBufferSize = 16 * 1024

// config holds everything createWatcher's (sink, latencyMs) pair expands
// into once latency, buffering, and logging all need their own knobs.
type config struct {
	latency    time.Duration
	bufferSize uint32
	logger     zerolog.Logger
}

func newConfig() config {
	return config{
		latency:    0,
		bufferSize: defaultBufferSize,
		logger:     zlog.Default(),
	}
}

// Option configures a Watcher at construction time.
type Option func(*config)

// WithLatency sets the coalescing latency passed to the underlying OS
// mechanism (FSEvents' Latency field on macOS; advisory only on Linux and
// Windows, which have no equivalent knob). Negative values are clamped to
// zero. This replaces spec.md's flat latencyMs argument to createWatcher.
func WithLatency(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			d = 0
		}
		c.latency = d
	}
}

// WithBufferSize sets the per-directory overlapped-read buffer size used
// by the Windows backend. It's a no-op on macOS and Linux, mirroring the
// teacher's own WithBufferSize option.
func WithBufferSize(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithLogger injects a structured logger for run-loop lifecycle events
// and suppressed callback failures. The default (zlog.Default) writes
// info-level and higher events to stderr, and debug-level events only when
// the CHANGEWATCH_DEBUG environment variable is set, mirroring the
// teacher's FSNOTIFY_DEBUG-gated internal.Debug().
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}
