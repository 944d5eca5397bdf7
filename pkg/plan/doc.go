// Package plan renders the layer structure of a prepared run as a Graphviz
// graph: the run at the root, one node per layer in priority order, and the
// variants of each layer beneath it. Absent variants are drawn dashed.
//
// [ToDOT] produces DOT text; [Render] turns it into SVG or PNG with the
// embedded Graphviz build, so no system installation is needed.
package plan
