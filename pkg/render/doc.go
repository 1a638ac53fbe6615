// Package render draws dependency graphs as node-link diagrams.
//
// [ToDOT] walks the graph in preorder and emits Graphviz DOT with one node
// per package and one edge per dependency. [RenderSVG] and [RenderPNG] lay
// the DOT out with the embedded Graphviz from github.com/goccy/go-graphviz,
// so no external binaries are needed:
//
//	dot, err := render.ToDOT(root, render.Options{Missing: missing})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Packages named in Options.Missing are drawn highlighted, which makes the
// output of "fsm check" easy to read at a glance.
package render
