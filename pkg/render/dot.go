package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/graph"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed adds version, kind and url lines to node labels.
	Detailed bool
	// Missing names packages to highlight as unavailable.
	Missing []string
	// MaxDepth bounds the traversal; see graph.Options.
	MaxDepth int
}

type entry struct {
	pkg  *deps.Package
	deps []string
}

// ToDOT converts the graph reachable from root to Graphviz DOT. Nodes are
// emitted in preorder; edges follow each node's outgoing order.
func ToDOT(root *graph.Node[*deps.Package], opts Options) (string, error) {
	order, err := graph.Preorder(root, deps.Key, func(p *deps.Package) *deps.Package { return p },
		graph.Options{MaxDepth: opts.MaxDepth})
	if err != nil {
		return "", err
	}
	nodes := index(root)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, p := range order {
		if p == nil {
			continue
		}
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(p, opts.Detailed))}
		if slices.Contains(opts.Missing, p.Name) {
			attrs = append(attrs, `fillcolor="#f8d7da"`, `color="#c0392b"`, `fontcolor="#c0392b"`)
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", p.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range order {
		if p == nil {
			continue
		}
		for _, to := range nodes[p.Name].Outgoing() {
			if to.Payload != nil {
				fmt.Fprintf(&buf, "  %q -> %q;\n", p.Name, to.Payload.Name)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// index maps every reachable package name to the first node carrying it.
func index(root *graph.Node[*deps.Package]) map[string]*graph.Node[*deps.Package] {
	nodes := map[string]*graph.Node[*deps.Package]{}
	if root == nil {
		return nodes
	}
	queue := []*graph.Node[*deps.Package]{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		name := deps.Key(n.Payload)
		if _, ok := nodes[name]; ok {
			continue
		}
		nodes[name] = n
		queue = append(queue, n.Outgoing()...)
	}
	return nodes
}

func fmtLabel(p *deps.Package, detailed bool) string {
	if !detailed {
		return p.String()
	}
	parts := []string{p.Name}
	if v := p.Version; !v.IsAbsent() {
		parts = append(parts, "version: "+v.String())
	}
	parts = append(parts, "kind: "+p.Kind.String())
	if p.URL != nil && p.URL.String() != "" {
		parts = append(parts, "url: "+p.URL.String())
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	svg, err := renderDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

// RenderPNG renders a DOT graph to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales cleanly when embedded.
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

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
