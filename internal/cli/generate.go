package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/traitforge/internal/config"
	"github.com/matzehuels/traitforge/pkg/artifact"
	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/pipeline"
)

// runFlags holds the flags shared by generate, plan and serve.
type runFlags struct {
	configPath  string
	background  string
	traits      string
	layers      []string
	count       uint64
	width       int
	height      int
	seed        uint64
	overflow    string
	interactive bool

	cache    bool
	cacheURL string
}

// metadataFlags controls metadata labels for generate and serve.
type metadataFlags struct {
	namePrefix string
	trimExt    bool
	zeroBased  bool
}

func (f *metadataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.namePrefix, "name-prefix", artifact.DefaultNamePrefix, "metadata name prefix")
	cmd.Flags().BoolVar(&f.trimExt, "trim-ext", false, "report trait values without file extension")
	cmd.Flags().BoolVar(&f.zeroBased, "zero-based-names", false, `name artifact 1 "<prefix> 0" as earlier releases did`)
}

// apply fills unset metadata flags from the run file.
func (f *metadataFlags) apply(cmd *cobra.Command, file *config.File) {
	changed := cmd.Flags().Changed
	if !changed("name-prefix") && file.NamePrefix != "" {
		f.namePrefix = file.NamePrefix
	}
	if !changed("trim-ext") && file.TrimExt {
		f.trimExt = true
	}
	if !changed("zero-based-names") && file.ZeroBased {
		f.zeroBased = true
	}
}

func (f metadataFlags) options() artifact.MetadataOptions {
	return artifact.MetadataOptions{NamePrefix: f.namePrefix, TrimExt: f.trimExt, ZeroBased: f.zeroBased}
}

// generateFlags adds the output flags of generate.
type generateFlags struct {
	runFlags
	metadataFlags
	output  string
	clean   bool
	workers int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "TOML run file; explicit flags override its values")
	cmd.Flags().StringVarP(&f.background, "background", "b", "", "directory of background images")
	cmd.Flags().StringVarP(&f.traits, "traits", "t", "", "directory holding one subdirectory per layer")
	cmd.Flags().StringSliceVarP(&f.layers, "layers", "l", nil, "layer priority order, first drawn first (repeat or comma-separate)")
	cmd.Flags().Uint64VarP(&f.count, "count", "n", 0, "number of artifacts (0 = every combination)")
	cmd.Flags().IntVar(&f.width, "width", pipeline.DefaultWidth, "image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", pipeline.DefaultHeight, "image height in pixels")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed for background draws (0 = unseeded)")
	cmd.Flags().StringVar(&f.overflow, "overflow", string(combo.DefaultOverflow), "when count exceeds the combinations: error, cap, wrap")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "pick the layer order interactively")
	cmd.Flags().BoolVar(&f.cache, "cache", false, "cache decoded assets under the user cache directory")
	cmd.Flags().StringVar(&f.cacheURL, "cache-url", "", "cache decoded assets in Redis (redis://host:port/db)")
	f.registerCompletions(cmd)
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [layer...]",
		Short: "Render trait combinations to images and metadata",
		Long: `Render trait combinations to images and metadata.

Layers are drawn in the given order over a background drawn at random for
each artifact. Every layer also has an implicit "absent" variant, so a
combination may leave any layer out. Artifact n is written as
<output>/images/n.png and <output>/metadata/n.json.

Layer names may follow the flags as arguments, so "-l hat eyes" and
"-l hat -l eyes" are equivalent.`,
		Example: `  traitforge generate -b backgrounds -t traits -l skin,hat,eyes -n 100
  traitforge generate --config run.toml --seed 7 --workers 4
  traitforge generate -b backgrounds -t traits --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.layers = append(flags.layers, args...)
			if err := flags.apply(cmd); err != nil {
				return err
			}
			opts, err := flags.options(cmd.Context())
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), flags, opts)
		},
	}

	flags.runFlags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", pipeline.DefaultOutput, "output directory")
	flags.metadataFlags.register(cmd)
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "remove the output directory before generating")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", pipeline.DefaultWorkers, "artifacts rendered concurrently")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, flags generateFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner, err := c.newRunner(ctx, cacheOpts{enabled: flags.cache, url: flags.cacheURL})
	if err != nil {
		return err
	}
	defer runner.Close()

	installHooks(logger)
	prog := newProgress(logger)

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if result != nil && result.Produced > 0 {
			noticeWarn.printf("Stopped after %d of %d artifacts", result.Produced, result.Total)
		}
		return err
	}
	prog.done(fmt.Sprintf("Generated %d artifacts", result.Produced))

	noticeDone.printf("Generated %s artifacts", styleCount.Render(formatUint(result.Produced)))
	printRunStats(result)
	printPath(result.Output)
	printOverflowNotice(opts.Count, result.Total, opts.Overflow, result.Capped)
	return nil
}

// apply fills unset flags from the run file, if any.
func (f *generateFlags) apply(cmd *cobra.Command) error {
	file, err := f.runFlags.apply(cmd)
	if err != nil || file == nil {
		return err
	}
	f.metadataFlags.apply(cmd, file)
	changed := cmd.Flags().Changed
	if !changed("output") && file.Output != "" {
		f.output = file.Output
	}
	if !changed("clean") && file.Clean {
		f.clean = true
	}
	if !changed("workers") && file.Workers != 0 {
		f.workers = file.Workers
	}
	return nil
}

// apply loads the run file, if one was given, into flags the user did not
// set explicitly.
func (f *runFlags) apply(cmd *cobra.Command) (*config.File, error) {
	if f.configPath == "" {
		return nil, nil
	}
	file, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if !changed("background") && file.Background != "" {
		f.background = file.Background
	}
	if !changed("traits") && file.Traits != "" {
		f.traits = file.Traits
	}
	if len(f.layers) == 0 && len(file.Layers) > 0 {
		f.layers = file.Layers
	}
	if !changed("count") && file.Count != 0 {
		f.count = file.Count
	}
	if !changed("width") && file.Width != 0 {
		f.width = file.Width
	}
	if !changed("height") && file.Height != 0 {
		f.height = file.Height
	}
	if !changed("seed") && file.Seed != 0 {
		f.seed = file.Seed
	}
	if !changed("overflow") && file.Overflow != "" {
		f.overflow = file.Overflow
	}
	if !changed("cache") && file.Cache {
		f.cache = true
	}
	if !changed("cache-url") && file.CacheURL != "" {
		f.cacheURL = file.CacheURL
	}
	return &file, nil
}

// options converts flags into pipeline options, asking for the layer order
// interactively when requested.
func (f *runFlags) options(ctx context.Context) (pipeline.Options, error) {
	if f.background == "" {
		return pipeline.Options{}, errors.New(errors.ErrCodeConfig, "--background is required")
	}
	if f.traits == "" {
		return pipeline.Options{}, errors.New(errors.ErrCodeConfig, "--traits is required")
	}
	if f.interactive {
		layers, err := pickLayerOrder(ctx, f.traits, f.layers)
		if err != nil {
			return pipeline.Options{}, err
		}
		f.layers = layers
	}
	return pipeline.Options{
		BackgroundDir: f.background,
		TraitsDir:     f.traits,
		Layers:        f.layers,
		Count:         f.count,
		Width:         f.width,
		Height:        f.height,
		Seed:          f.seed,
		Overflow:      combo.OverflowPolicy(f.overflow),
	}, nil
}

// options adds the output settings to the shared options.
func (f *generateFlags) options(ctx context.Context) (pipeline.Options, error) {
	opts, err := f.runFlags.options(ctx)
	if err != nil {
		return opts, err
	}
	opts.Output = f.output
	opts.NamePrefix = f.namePrefix
	opts.TrimExt = f.trimExt
	opts.ZeroBased = f.zeroBased
	opts.Clean = f.clean
	opts.Workers = f.workers
	return opts, nil
}
