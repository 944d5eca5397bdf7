package plan

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/pipeline"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// Output formats accepted by Render.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Options configures graph rendering.
type Options struct {
	// Detailed adds the mixed-radix divisor to layer labels.
	Detailed bool

	// MaxVariants collapses layers with more variants into "+N more".
	// Zero shows every variant.
	MaxVariants int
}

// ToDOT converts a plan to Graphviz DOT format.
func ToDOT(p *pipeline.Plan, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph plan {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	root := fmt.Sprintf("%d combinations\\n%d backgrounds", p.Total(), len(p.Backgrounds))
	fmt.Fprintf(&buf, "  \"run\" [label=\"%s\", shape=ellipse];\n", root)

	divisors := p.Enumerator.Divisors()
	for i, l := range p.Layers {
		id := layerID(l)
		label := fmt.Sprintf("%d. %s\\n%d variants", i+1, escape(l.Name), l.Len())
		if opts.Detailed {
			label += fmt.Sprintf("\\ndivisor %d", divisors[i])
		}
		fmt.Fprintf(&buf, "  %q [label=\"%s\", fillcolor=lightblue];\n", id, label)
		fmt.Fprintf(&buf, "  \"run\" -> %q;\n", id)

		shown, hidden := visible(l, opts.MaxVariants)
		for _, v := range shown {
			vid := id + "/" + v.Name
			fmt.Fprintf(&buf, "  %q [%s];\n", vid, strings.Join(variantAttrs(v), ", "))
			fmt.Fprintf(&buf, "  %q -> %q;\n", id, vid)
		}
		if hidden > 0 {
			more := id + "/+more"
			fmt.Fprintf(&buf, "  %q [label=\"+%d more\", style=dotted];\n", more, hidden)
			fmt.Fprintf(&buf, "  %q -> %q;\n", id, more)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func layerID(l traits.Layer) string { return "layer:" + l.Name }

// visible returns the variants to draw, always keeping the absent sentinel,
// and how many were left out.
func visible(l traits.Layer, limit int) ([]traits.Variant, int) {
	if limit <= 0 || l.Len() <= limit {
		return l.Variants, 0
	}
	present := l.Variants[:l.Len()-1]
	keep := max(limit-1, 0)
	shown := append(append([]traits.Variant(nil), present[:keep]...), l.Variants[l.Len()-1])
	return shown, len(present) - keep
}

func variantAttrs(v traits.Variant) []string {
	attrs := []string{fmt.Sprintf("label=\"%s\"", escape(v.Name))}
	if v.IsAbsent() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}

// Render renders DOT text in format. FormatDOT returns the text unchanged.
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatDOT, "":
		return []byte(dot), nil
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg, png)", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}
	if gvFormat == graphviz.SVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag so the SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
