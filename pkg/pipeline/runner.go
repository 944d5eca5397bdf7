package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/traitforge/pkg/artifact"
	"github.com/matzehuels/traitforge/pkg/background"
	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/compose"
	"github.com/matzehuels/traitforge/pkg/observability"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// Runner executes generation runs.
//
// The Runner is stateless except for the loader, cache and logger - it
// doesn't store run results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Loader compose.Loader
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner that loads images from disk.
// If cache is nil, a NullCache is used (asset caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Loader: compose.FileLoader{},
		Cache:  c,
		Logger: logger,
	}
}

// Prepare lists layers and backgrounds and resolves the requested count.
// Nothing is rendered or written.
func (r *Runner) Prepare(ctx context.Context, opts Options) (*Plan, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	layers, err := traits.ListLayers(ctx, opts.Source, opts.Layers)
	if err != nil {
		return nil, err
	}
	backgrounds, err := background.List(ctx, opts.BackgroundDir)
	if err != nil {
		return nil, err
	}
	enum, err := combo.New(layers)
	if err != nil {
		return nil, err
	}
	n, capped, err := enum.Resolve(opts.Count, opts.Overflow)
	if err != nil {
		return nil, err
	}

	for _, l := range layers {
		opts.Logger.Debug("listed layer", "layer", l.Name, "variants", l.Len())
	}
	opts.Logger.Debug("listed backgrounds", "count", len(backgrounds))

	return &Plan{
		Layers:      layers,
		Backgrounds: backgrounds,
		Enumerator:  enum,
		Requested:   opts.Count,
		Count:       n,
		Capped:      capped,
		Policy:      opts.Overflow,
	}, nil
}

// Execute prepares the run, creates the output tree and renders every
// artifact. On a render failure the returned Result still reports how many
// artifacts were written before the error.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)
	logger := opts.Logger

	runStart := time.Now()
	plan, err := r.Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{
		RunID:  uuid.NewString(),
		Output: opts.Output,
		Total:  plan.Total(),
		Capped: plan.Capped,
	}
	result.Stats.PrepareTime = time.Since(runStart)

	logger.Info("prepared run",
		"layers", len(plan.Layers),
		"backgrounds", len(plan.Backgrounds),
		"total", plan.Total(),
		"count", plan.Count)
	if plan.Capped {
		logger.Warn("requested count exceeds distinct combinations, capping",
			"requested", plan.Requested,
			"total", plan.Total())
	}
	if opts.Overflow == combo.OverflowWrap && plan.Count > plan.Total() {
		logger.Warn("requested count exceeds distinct combinations, combinations will repeat",
			"requested", plan.Requested,
			"total", plan.Total())
	}

	if err := artifact.PrepareOutput(opts.Output, opts.Clean); err != nil {
		return nil, err
	}

	rs := &render{
		plan:     plan,
		loader:   r.loaderFor(opts),
		writer:   artifact.NewDirWriter(opts.Output, opts.MetadataOptions()),
		selector: background.NewSelector(opts.Seed),
		width:    opts.Width,
		height:   opts.Height,
		logger:   logger,
	}

	hooks := observability.Run()
	hooks.OnRunStart(ctx, result.RunID, plan.Total(), plan.Count)

	renderStart := time.Now()
	if opts.Workers > 1 {
		err = rs.parallel(ctx, opts.Workers)
	} else {
		err = rs.sequential(ctx)
	}
	result.Produced = rs.produced.Load()
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRunComplete(ctx, result.RunID, result.Produced, time.Since(runStart), err)
	if err != nil {
		return result, err
	}

	manifest := artifact.Manifest{
		RunID:       result.RunID,
		CreatedAt:   runStart.UTC(),
		Seed:        opts.Seed,
		Width:       opts.Width,
		Height:      opts.Height,
		Backgrounds: len(plan.Backgrounds),
		Total:       plan.Total(),
		Requested:   plan.Requested,
		Produced:    result.Produced,
		Overflow:    string(plan.Policy),
		Capped:      plan.Capped,
	}
	for _, l := range plan.Layers {
		manifest.Layers = append(manifest.Layers, artifact.ManifestLayer{Name: l.Name, Variants: l.Len()})
	}
	if err := artifact.WriteManifest(opts.Output, manifest); err != nil {
		return result, err
	}

	logger.Info("generated artifacts",
		"produced", result.Produced,
		"output", opts.Output,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// LoaderFor returns the loader used for a width x height surface: the runner's
// loader, wrapped with the asset cache unless caching is disabled.
func (r *Runner) LoaderFor(width, height int) compose.Loader {
	base := r.Loader
	if base == nil {
		base = compose.FileLoader{}
	}
	if r.Cache == nil {
		return base
	}
	if _, ok := r.Cache.(cache.NullCache); ok {
		return base
	}
	return compose.NewCachedLoader(base, r.Cache, width, height)
}

func (r *Runner) loaderFor(opts Options) compose.Loader {
	return r.LoaderFor(opts.Width, opts.Height)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// =============================================================================
// Rendering
// =============================================================================

// render holds the per-run state shared by the sequential and parallel paths.
type render struct {
	plan     *Plan
	loader   compose.Loader
	writer   artifact.Writer
	selector *background.Selector
	width    int
	height   int
	logger   *log.Logger

	produced atomic.Uint64
}

// job is one artifact handed from the producer to a worker.
type job struct {
	index uint64
	combo combo.Combination
	bg    background.Background
}

// sequential renders every artifact on a single surface. Artifact i+1 starts
// only after artifact i is fully written.
func (rs *render) sequential(ctx context.Context) error {
	surface, err := compose.NewSurface(rs.width, rs.height)
	if err != nil {
		return err
	}
	for i, c := range rs.plan.Combinations() {
		if err := ctx.Err(); err != nil {
			return err
		}
		bg, err := rs.selector.Pick(rs.plan.Backgrounds)
		if err != nil {
			return err
		}
		if err := rs.one(ctx, surface, job{index: i, combo: c, bg: bg}); err != nil {
			return err
		}
	}
	return nil
}

// parallel renders with workers goroutines, each owning a surface. A single
// producer draws backgrounds in index order; the first error cancels the rest.
func (rs *render) parallel(ctx context.Context, workers int) error {
	surfaces := make([]*compose.Surface, workers)
	for w := range surfaces {
		s, err := compose.NewSurface(rs.width, rs.height)
		if err != nil {
			return err
		}
		surfaces[w] = s
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job)

	g.Go(func() error {
		defer close(jobs)
		for i, c := range rs.plan.Combinations() {
			bg, err := rs.selector.Pick(rs.plan.Backgrounds)
			if err != nil {
				return err
			}
			select {
			case jobs <- job{index: i, combo: c, bg: bg}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for _, s := range surfaces {
		g.Go(func() error {
			for j := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := rs.one(gctx, s, j); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// one paints and writes a single artifact.
func (rs *render) one(ctx context.Context, s *compose.Surface, j job) error {
	start := time.Now()
	img, err := s.Paint(ctx, rs.loader, j.bg, j.combo)
	if err == nil {
		err = rs.writer.Write(ctx, j.index, j.combo, img)
	}
	observability.Run().OnArtifactComplete(ctx, j.index, rs.plan.Count, time.Since(start), err)
	if err != nil {
		return err
	}
	rs.produced.Add(1)
	rs.logger.Debug("wrote artifact",
		"number", artifact.Number(j.index),
		"background", j.bg.Name,
		"combination", j.combo.String())
	return nil
}
