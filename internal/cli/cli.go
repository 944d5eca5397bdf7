package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/traitforge/pkg/buildinfo"
	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/observability"
	"github.com/matzehuels/traitforge/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "traitforge"

	// memoryCleanup is how often the in-process cache tier drops expired entries.
	memoryCleanup = 10 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	buildinfo.Resolve()

	root := &cobra.Command{
		Use:   appName,
		Short: "traitforge stacks trait layers into generative image collections",
		Long: `traitforge enumerates every combination of a set of trait layers, paints each
combination over a randomly drawn background and writes the image together with
JSON metadata describing the selected traits.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheOpts selects the asset cache backing a runner.
type cacheOpts struct {
	enabled bool   // --cache
	url     string // --cache-url, implies enabled
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts cacheOpts) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, c.Logger), nil
}

// newCache builds the asset cache: none by default, an in-process tier in
// front of the XDG file cache with --cache, or in front of Redis with
// --cache-url.
func newCache(ctx context.Context, opts cacheOpts) (cache.Cache, error) {
	if opts.url != "" {
		remote, err := cache.NewRedisCache(ctx, opts.url)
		if err != nil {
			return nil, err
		}
		return cache.NewTiered(cache.NewMemoryCache(memoryCleanup), remote), nil
	}
	if !opts.enabled {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewMemoryCache(memoryCleanup), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.NewTiered(cache.NewMemoryCache(memoryCleanup), fc), nil
}

// installHooks routes run and cache events to the logger.
func installHooks(l *log.Logger) {
	observability.SetRunHooks(newProgressHooks(l))
	observability.SetCacheHooks(&cacheLogHooks{logger: l})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/traitforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
