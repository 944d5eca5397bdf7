package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/pipeline"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// Command output goes to stdout; log lines go to the logger's writer.

var (
	inkAccent  = lipgloss.Color("36")
	inkGood    = lipgloss.Color("35")
	inkCaution = lipgloss.Color("220")
	inkBad     = lipgloss.Color("167")
	inkLink    = lipgloss.Color("75")
	inkBright  = lipgloss.Color("255")
	inkMuted   = lipgloss.Color("245")
	inkFaint   = lipgloss.Color("240")
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true).Foreground(inkAccent)
	styleCount   = lipgloss.NewStyle().Foreground(inkAccent)
	styleText    = lipgloss.NewStyle().Foreground(inkBright)
	styleFaint   = lipgloss.NewStyle().Foreground(inkFaint)
	styleURL     = lipgloss.NewStyle().Foreground(inkLink).Underline(true)
	styleCommand = lipgloss.NewStyle().Foreground(inkLink)

	// Absent selections are dimmed wherever combinations are listed.
	styleAbsent = lipgloss.NewStyle().Foreground(inkFaint).Italic(true)

	styleTableHeader = lipgloss.NewStyle().Foreground(inkMuted).Bold(true)
	styleTableBorder = lipgloss.NewStyle().Foreground(inkFaint)
)

// =============================================================================
// Notices
// =============================================================================

// notice is a one-line status message behind a colored mark.
type notice struct {
	mark string
	ink  lipgloss.Color
	tint bool // color the message too
}

var (
	noticeDone = notice{mark: "✓", ink: inkGood}
	noticeFail = notice{mark: "✗", ink: inkBad}
	noticeWarn = notice{mark: "!", ink: inkCaution, tint: true}
	noticeNote = notice{mark: "›", ink: inkMuted}
)

func (n notice) printf(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(n.ink)
	msg := fmt.Sprintf(format, args...)
	if n.tint {
		msg = style.Render(msg)
	}
	fmt.Println(style.Render(n.mark) + " " + msg)
}

// printIndented prints a faint line under the previous notice.
func printIndented(format string, args ...any) {
	fmt.Println("  " + styleFaint.Render(fmt.Sprintf(format, args...)))
}

// printPath points at a file or directory that was written.
func printPath(path string) {
	fmt.Println("  " + styleFaint.Render("→") + " " + styleText.Render(path))
}

// printField prints one aligned "label value" line.
func printField(label, value string) {
	fmt.Println(lipgloss.NewStyle().Foreground(inkMuted).Width(12).Render(label) + " " + styleText.Render(value))
}

// printCommandHint suggests the command to run next.
func printCommandHint(label, command string) {
	fmt.Println(styleFaint.Render(label+":") + " " + styleCommand.Render(command))
}

// =============================================================================
// Runs and plans
// =============================================================================

// printOverflowNotice explains what happens to a count above the number of
// distinct combinations. Nothing is printed when the count fits.
func printOverflowNotice(requested, total uint64, policy combo.OverflowPolicy, capped bool) {
	if msg := overflowMessage(requested, total, policy, capped); msg != "" {
		noticeWarn.printf("%s", msg)
	}
}

func overflowMessage(requested, total uint64, policy combo.OverflowPolicy, capped bool) string {
	switch {
	case capped:
		return fmt.Sprintf("Requested %d, capped at %d distinct combinations", requested, total)
	case policy == combo.OverflowWrap && requested > total:
		return fmt.Sprintf("Requested %d, combinations repeat every %d artifacts", requested, total)
	default:
		return ""
	}
}

// printRunStats prints how much of the combination space a run covered and
// where the time went.
func printRunStats(r *pipeline.Result) {
	coverage := styleCount.Render("distinct")
	if r.Produced > r.Total {
		coverage = lipgloss.NewStyle().Foreground(inkCaution).Render("repeating")
	}
	parts := []string{
		styleFaint.Render(fmt.Sprintf("%d of %d combinations", r.Produced, r.Total)),
		coverage,
		styleFaint.Render("prepared in " + r.Stats.PrepareTime.Round(time.Millisecond).String()),
		styleFaint.Render("rendered in " + r.Stats.RenderTime.Round(time.Millisecond).String()),
	}
	fmt.Println("  " + strings.Join(parts, styleFaint.Render(" · ")))
}

// layerTable lists each layer in priority order with its variant count, the
// absent variant included. Divisors are shown when given.
func layerTable(layers []traits.Layer, divisors []uint64) *table.Table {
	headers := []string{"#", "Layer", "Variants"}
	if divisors != nil {
		headers = append(headers, "Divisor")
	}
	t := newTable(headers...).StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == -1:
			return styleTableHeader
		case col >= 2:
			return styleCount
		default:
			return lipgloss.NewStyle()
		}
	})
	for i, l := range layers {
		row := []string{strconv.Itoa(i + 1), l.Name, strconv.Itoa(l.Len())}
		if divisors != nil {
			row = append(row, formatUint(divisors[i]))
		}
		t.Row(row...)
	}
	return t
}

// combinationTable lists combinations by artifact number, one column per
// layer, with absent selections dimmed.
func combinationTable(layers []traits.Layer, combos []combo.Combination) *table.Table {
	headers := []string{"#"}
	for _, l := range layers {
		headers = append(headers, l.Name)
	}
	t := newTable(headers...).StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == -1:
			return styleTableHeader
		case col == 0:
			return styleCount
		default:
			return lipgloss.NewStyle()
		}
	})
	for _, c := range combos {
		row := []string{formatUint(c.Index + 1)}
		for _, v := range c.Variants {
			row = append(row, variantCell(v))
		}
		t.Row(row...)
	}
	return t
}

// variantCell renders one selection for a table cell.
func variantCell(v traits.Variant) string {
	if v.IsAbsent() {
		return styleAbsent.Render(v.Name)
	}
	return styleText.Render(v.Name)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers(headers...)
}

// formatUint renders n in decimal.
func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}
