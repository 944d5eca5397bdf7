package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/observability"
	"github.com/matzehuels/traitforge/pkg/pipeline"
	"github.com/matzehuels/traitforge/pkg/preview"
)

// serveFlags holds the flags of the serve command.
type serveFlags struct {
	runFlags
	metadataFlags
	addr string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve [layer...]",
		Short: "Preview combinations over HTTP",
		Long: `Preview combinations over HTTP without writing any files.

  GET /combinations            plan summary and metadata (?offset=&limit=)
  GET /combinations/{n}.json   metadata of artifact n
  GET /combinations/{n}.png    image of artifact n (?background=name)`,
		Example: `  traitforge serve -b backgrounds -t traits -l skin,hat,eyes --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.layers = append(flags.layers, args...)
			file, err := flags.runFlags.apply(cmd)
			if err != nil {
				return err
			}
			if file != nil {
				flags.metadataFlags.apply(cmd, file)
			}
			opts, err := flags.runFlags.options(cmd.Context())
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), flags, opts)
		},
	}

	flags.runFlags.register(cmd)
	cmd.Flags().StringVar(&flags.addr, "addr", "127.0.0.1:8080", "listen address")
	flags.metadataFlags.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, flags serveFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner, err := c.newRunner(ctx, cacheOpts{enabled: flags.cache, url: flags.cacheURL})
	if err != nil {
		return err
	}
	defer runner.Close()

	p, err := runner.Prepare(ctx, opts)
	if err != nil {
		return err
	}

	// Rendered previews always get an in-process cache; assets follow --cache.
	srv, err := preview.New(p, runner.LoaderFor(flags.width, flags.height), preview.Options{
		Width:    flags.width,
		Height:   flags.height,
		Seed:     flags.seed,
		Metadata: flags.metadataFlags.options(),
		Cache:    cache.NewMemoryCache(memoryCleanup),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	installHooks(logger)
	observability.SetHTTPHooks(&httpLogHooks{logger: logger})

	noticeDone.printf("Serving %s combinations", styleCount.Render(formatUint(p.Count)))
	printField("Address", styleURL.Render("http://"+flags.addr+"/combinations"))
	printOverflowNotice(p.Requested, p.Total(), p.Policy, p.Capped)
	printIndented("Press Ctrl+C to stop")

	return srv.ListenAndServe(ctx, flags.addr)
}

// httpLogHooks logs completed preview requests.
type httpLogHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

func (h *httpLogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("served", "method", method, "path", path, "status", status, "duration", d.Round(time.Microsecond))
}

var _ observability.HTTPHooks = (*httpLogHooks)(nil)
