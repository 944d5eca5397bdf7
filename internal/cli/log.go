// Package cli implements the traitforge command-line interface.
//
// This package provides commands for generating trait-layer collections,
// previewing them without writing files, and managing the asset cache. The
// CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - generate: Render every requested combination to images and metadata
//   - plan: Show layer counts, the first combinations, or a Graphviz view
//   - serve: Render combinations on demand over HTTP
//   - cache: Manage the asset cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/traitforge/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Generated 42 artifacts (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Hooks
// =============================================================================

// progressHooks logs "Progress: n/total" as artifacts complete. With several
// workers artifacts finish out of index order, so n counts completions.
type progressHooks struct {
	observability.NoopRunHooks
	logger *log.Logger
	done   atomic.Uint64
}

func newProgressHooks(l *log.Logger) *progressHooks {
	return &progressHooks{logger: l}
}

func (h *progressHooks) OnRunStart(_ context.Context, runID string, total, count uint64) {
	h.done.Store(0)
	h.logger.Debug("run started", "run_id", runID, "total", total, "count", count)
}

func (h *progressHooks) OnArtifactComplete(_ context.Context, index, count uint64, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("artifact failed", "number", index+1, "error", err)
		return
	}
	h.logger.Infof("Progress: %d/%d", h.done.Add(1), count)
	h.logger.Debug("artifact timing", "number", index+1, "duration", d)
}

// cacheLogHooks reports asset cache activity at debug level.
type cacheLogHooks struct {
	logger *log.Logger
}

func (h *cacheLogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *cacheLogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *cacheLogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ observability.RunHooks   = (*progressHooks)(nil)
	_ observability.CacheHooks = (*cacheLogHooks)(nil)
)
