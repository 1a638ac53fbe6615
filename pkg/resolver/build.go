package resolver

import (
	"errors"
	"fmt"

	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/graph"
)

// ErrUnknownRoot is returned by BuildGraph when no package has the root name.
var ErrUnknownRoot = errors.New("root package not found")

// BuildGraph links pkgs into a dependency graph by name and returns the
// node for root. Each name gets one node; the first listed package of a
// name wins. Dependencies that are not listed get a node for the
// dependency package itself.
func BuildGraph(pkgs []*deps.Package, root string) (*graph.Node[*deps.Package], error) {
	b := newGraphBuilder()
	for _, p := range pkgs {
		if p != nil {
			b.node(p)
		}
	}
	for _, p := range pkgs {
		if p != nil {
			b.link(p)
		}
	}
	n, ok := b.nodes[root]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, root)
	}
	return n, nil
}

// FromPackage builds the graph reachable through root's Dependencies
// pointers. Packages sharing a name share a node.
func FromPackage(root *deps.Package) *graph.Node[*deps.Package] {
	if root == nil {
		return nil
	}
	b := newGraphBuilder()
	n := b.node(root)
	queue := []*deps.Package{root}
	linked := map[string]bool{}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if linked[p.Name] {
			continue
		}
		linked[p.Name] = true
		b.link(p)
		for _, d := range p.Dependencies {
			if d != nil && !linked[d.Name] {
				queue = append(queue, d)
			}
		}
	}
	return n
}

type graphBuilder struct {
	nodes map[string]*graph.Node[*deps.Package]
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{nodes: make(map[string]*graph.Node[*deps.Package])}
}

func (b *graphBuilder) node(p *deps.Package) *graph.Node[*deps.Package] {
	if n, ok := b.nodes[p.Name]; ok {
		return n
	}
	n := graph.NewNode(p)
	b.nodes[p.Name] = n
	return n
}

// link adds edges from p's node to its dependencies, unless p lost its name
// to an earlier package.
func (b *graphBuilder) link(p *deps.Package) {
	from := b.node(p)
	if from.Payload != p {
		return
	}
	for _, d := range p.Dependencies {
		if d != nil {
			from.Link(b.node(d))
		}
	}
}
