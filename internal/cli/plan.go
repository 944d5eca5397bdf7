package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/pipeline"
	"github.com/matzehuels/traitforge/pkg/plan"
)

const formatTable = "table"

// planFlags holds the flags of the plan command.
type planFlags struct {
	runFlags
	format      string
	output      string
	limit       uint64
	detailed    bool
	maxVariants int
}

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "plan [layer...]",
		Short: "Show what a generate run would produce",
		Long: `Show what a generate run would produce without rendering anything.

The default table format lists each layer with its variant count and the first
combinations in enumeration order. The dot, svg and png formats draw the
layer and variant structure with Graphviz.`,
		Example: `  traitforge plan -b backgrounds -t traits -l skin,hat,eyes
  traitforge plan --config run.toml --format svg -o plan.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.layers = append(flags.layers, args...)
			if _, err := flags.runFlags.apply(cmd); err != nil {
				return err
			}
			opts, err := flags.runFlags.options(cmd.Context())
			if err != nil {
				return err
			}
			return c.runPlan(cmd.Context(), flags, opts)
		},
	}

	flags.runFlags.register(cmd)
	cmd.Flags().StringVarP(&flags.format, "format", "f", formatTable, "output format: table, dot, svg, png")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write dot/svg/png output to a file instead of stdout")
	cmd.Flags().Uint64Var(&flags.limit, "limit", 10, "combinations to list in table format")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "show mixed-radix divisors")
	cmd.Flags().IntVar(&flags.maxVariants, "max-variants", 12, "variants drawn per layer in graph formats (0 = all)")
	registerFormatCompletion(cmd)

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, flags planFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner := pipeline.NewRunner(nil, logger)
	p, err := runner.Prepare(ctx, opts)
	if err != nil {
		return err
	}

	switch flags.format {
	case formatTable:
		printPlan(p, flags.limit, flags.detailed)
		fmt.Println()
		printCommandHint("Generate", "traitforge generate "+generateHint(opts))
		return nil
	case plan.FormatDOT, plan.FormatSVG, plan.FormatPNG:
		return writeGraph(ctx, p, flags)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: table, dot, svg, png)", flags.format)
	}
}

func writeGraph(ctx context.Context, p *pipeline.Plan, flags planFlags) error {
	if flags.format == plan.FormatPNG && flags.output == "" {
		return errors.New(errors.ErrCodeInvalidInput, "png output needs --output")
	}
	dot := plan.ToDOT(p, plan.Options{Detailed: flags.detailed, MaxVariants: flags.maxVariants})

	var data []byte
	var err error
	if flags.format == plan.FormatDOT {
		data = []byte(dot)
	} else {
		spinner := newSpinnerWithContext(ctx, "Rendering plan graph...")
		spinner.Start()
		data, err = plan.Render(ctx, dot, flags.format)
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return err
		}
		spinner.Stop()
	}

	if flags.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(flags.output, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", flags.output)
	}
	noticeDone.printf("Wrote plan graph")
	printPath(flags.output)
	return nil
}

// printPlan prints the layer table and the first limit combinations.
func printPlan(p *pipeline.Plan, limit uint64, detailed bool) {
	var divisors []uint64
	if detailed {
		divisors = p.Enumerator.Divisors()
	}
	fmt.Println(styleHeading.Render("Layers"))
	fmt.Println(layerTable(p.Layers, divisors).Render())

	printField("Total", formatUint(p.Total()))
	printField("Count", formatUint(p.Count))
	printField("Backgrounds", strconv.Itoa(len(p.Backgrounds)))
	printField("Overflow", string(p.Policy))
	printOverflowNotice(p.Requested, p.Total(), p.Policy, p.Capped)

	if limit == 0 || p.Count == 0 {
		return
	}
	var combos []combo.Combination
	for _, c := range p.Enumerator.All(min(limit, p.Count)) {
		combos = append(combos, c)
	}
	fmt.Println()
	fmt.Println(styleHeading.Render("Combinations"))
	fmt.Println(combinationTable(p.Layers, combos).Render())
	if p.Count > limit {
		printIndented("... %d more", p.Count-limit)
	}
}

// generateHint rebuilds the input flags of a plan as a generate command line.
func generateHint(opts pipeline.Options) string {
	s := fmt.Sprintf("-b %s -t %s", opts.BackgroundDir, opts.TraitsDir)
	for _, l := range opts.Layers {
		s += " -l " + l
	}
	if opts.Count > 0 {
		s += fmt.Sprintf(" -n %d", opts.Count)
	}
	return s
}
