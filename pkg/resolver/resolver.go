package resolver

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/graph"
	"github.com/matzehuels/fsm/pkg/observability"
)

const DefaultConcurrency = 8 // Default parallel resolutions in ResolveAll

// Options configures a Resolver.
type Options struct {
	CheckVersions bool        // Compare versions against the repository (default: names only)
	MaxDepth      int         // Traversal depth bound; 0 for graph.DefaultMaxDepth, negative for none
	Match         MatchFunc   // Version matcher used when CheckVersions is set (default: ExactMatch)
	Concurrency   int         // Parallel resolutions in ResolveAll (default: 8)
	Logger        *log.Logger // Optional
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Match == nil {
		opts.Match = ExactMatch
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Resolver produces dependency-first installation orders. It holds no
// per-call state and is safe for concurrent use.
type Resolver struct {
	opts Options
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	return &Resolver{opts: opts.WithDefaults()}
}

// Options returns the resolver's effective options.
func (r *Resolver) Options() Options { return r.opts }

func (r *Resolver) graphOptions() graph.Options {
	return graph.Options{MaxDepth: r.opts.MaxDepth}
}

func identity(p *deps.Package) *deps.Package { return p }

// Resolve returns every package reachable from root, each after all of its
// dependencies. A nil root resolves to an empty order.
func (r *Resolver) Resolve(ctx context.Context, root *graph.Node[*deps.Package]) ([]*deps.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := rootName(root)
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, name)
	start := time.Now()

	order, err := graph.Postorder(root, deps.Key, identity, r.graphOptions())
	hooks.OnResolveComplete(ctx, name, len(order), time.Since(start), err)
	if err != nil {
		return nil, wrapTraversal(err, name)
	}
	r.opts.Logger.Debug("resolved", "root", name, "packages", len(order))
	return order, nil
}

// Walk lazily yields the same order as Resolve. Each range over the
// returned sequence is a fresh traversal, reported to the resolve hooks
// like a call to Resolve; a range stopped early reports the packages
// yielded so far. ctx is checked between packages. On failure the final
// pair carries a nil package and the error.
func (r *Resolver) Walk(ctx context.Context, root *graph.Node[*deps.Package]) iter.Seq2[*deps.Package, error] {
	return func(yield func(*deps.Package, error) bool) {
		name := rootName(root)
		hooks := observability.Resolve()
		hooks.OnResolveStart(ctx, name)
		start := time.Now()

		var (
			n   int
			err error
		)
		defer func() {
			hooks.OnResolveComplete(ctx, name, n, time.Since(start), err)
		}()

		for p, walkErr := range graph.PostorderSeq(root, deps.Key, r.graphOptions()) {
			if walkErr != nil {
				err = wrapTraversal(walkErr, name)
			} else {
				err = ctx.Err()
			}
			if err != nil {
				yield(nil, err)
				return
			}
			n++
			if !yield(p, nil) {
				return
			}
		}
		r.opts.Logger.Debug("resolved", "root", name, "packages", n)
	}
}

// ResolveAll resolves independent roots in parallel, returning orders in
// root order. The first failure or a cancelled context stops the rest.
func (r *Resolver) ResolveAll(ctx context.Context, roots []*graph.Node[*deps.Package]) ([][]*deps.Package, error) {
	orders := make([][]*deps.Package, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, root := range roots {
		g.Go(func() error {
			order, err := r.Resolve(ctx, root)
			if err != nil {
				return err
			}
			orders[i] = order
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orders, nil
}

func rootName(root *graph.Node[*deps.Package]) string {
	if root == nil {
		return ""
	}
	return deps.Key(root.Payload)
}

func wrapTraversal(err error, root string) error {
	if errors.Is(err, graph.ErrDepthExceeded) {
		return fsmerrors.Wrap(fsmerrors.ErrCodeDepthExceeded, err, "resolve %q", root)
	}
	return fsmerrors.Wrap(fsmerrors.ErrCodeInternal, err, "resolve %q", root)
}
