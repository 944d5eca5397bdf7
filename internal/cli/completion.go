package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/plan"
	"github.com/matzehuels/traitforge/pkg/traits"
)

var shells = []string{"bash", "zsh", "fish", "powershell"}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for traitforge.

Completions cover subcommands, flag values such as --overflow and --format,
and layer names: once --traits is on the command line, --layers and the
positional layer arguments complete to the subdirectories of that directory.

  $ source <(traitforge completion bash)
  $ traitforge completion zsh > "${fpath[1]}/_traitforge"
  $ traitforge completion fish > ~/.config/fish/completions/traitforge.fish
  PS> traitforge completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions wires value completion for the shared run flags.
func (f *runFlags) registerCompletions(cmd *cobra.Command) {
	dirs := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	}
	_ = cmd.RegisterFlagCompletionFunc("background", dirs)
	_ = cmd.RegisterFlagCompletionFunc("traits", dirs)
	_ = cmd.RegisterFlagCompletionFunc("config", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	_ = cmd.RegisterFlagCompletionFunc("overflow", cobra.FixedCompletions(
		[]string{string(combo.OverflowError), string(combo.OverflowCap), string(combo.OverflowWrap)},
		cobra.ShellCompDirectiveNoFileComp,
	))
	_ = cmd.RegisterFlagCompletionFunc("layers", func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		// --layers takes a comma-separated list; complete the last element.
		done, prefix := "", toComplete
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			done, prefix = toComplete[:i+1], toComplete[i+1:]
		}
		chosen := append(slices.Clone(args), strings.Split(done, ",")...)
		names, directive := f.completeLayers(chosen, prefix)
		for i := range names {
			names[i] = done + names[i]
		}
		return names, directive
	})
	cmd.ValidArgsFunction = func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return f.completeLayers(args, toComplete)
	}
}

// completeLayers lists layer directories under --traits that start with
// prefix and are not yet chosen.
func (f *runFlags) completeLayers(chosen []string, prefix string) ([]string, cobra.ShellCompDirective) {
	if f.traits == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := traits.DiscoverLayerNames(f.traits)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	chosen = append(chosen, f.layers...)
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && !slices.Contains(chosen, name) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// registerFormatCompletion completes the plan --format flag.
func registerFormatCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{formatTable, plan.FormatDOT, plan.FormatSVG, plan.FormatPNG},
		cobra.ShellCompDirectiveNoFileComp,
	))
}
