package graph

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// DefaultMaxDepth is the active-path limit used when [Options.MaxDepth] is zero.
const DefaultMaxDepth = 10000

var (
	// ErrDepthExceeded is returned when a traversal's active path grows past
	// [Options.MaxDepth]. The traversal is abandoned; no partial result is
	// returned, since a truncated order would not be dependency-first.
	ErrDepthExceeded = errors.New("traversal depth exceeded")

	// ErrMalformed is returned by [CheckWellFormed] when an edge is not
	// mirrored between the outgoing and incoming sets of its endpoints.
	ErrMalformed = errors.New("graph is not well-formed")
)

// KeyFunc derives the identity used for seen-tracking from a payload.
type KeyFunc[T any] func(T) string

// Options configures a single traversal call.
type Options struct {
	// MaxDepth bounds the number of nodes on the active path (root included).
	// Zero selects DefaultMaxDepth; a negative value removes the bound.
	MaxDepth int
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	switch {
	case opts.MaxDepth == 0:
		opts.MaxDepth = DefaultMaxDepth
	case opts.MaxDepth < 0:
		opts.MaxDepth = math.MaxInt
	}
	return opts
}

// Preorder applies visit to each unseen payload reachable from root before
// descending into its outgoing neighbours, and returns the results in visit
// order.
func Preorder[T, R any](root *Node[T], key KeyFunc[T], visit func(T) R, opts Options) ([]R, error) {
	var results []R
	err := walk(root, key, opts, func(n *Node[T]) bool {
		results = append(results, visit(n.Payload))
		return true
	}, nil)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Postorder applies visit to each unseen payload reachable from root after
// all of its outgoing neighbours, and returns the results in visit order.
// For a well-formed graph every payload appears after everything it points
// to, except along edges that close a cycle.
func Postorder[T, R any](root *Node[T], key KeyFunc[T], visit func(T) R, opts Options) ([]R, error) {
	var results []R
	err := walk(root, key, opts, nil, func(n *Node[T]) bool {
		results = append(results, visit(n.Payload))
		return true
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PostorderSeq is the lazy form of [Postorder]. Every range over the
// returned sequence runs a fresh traversal; breaking out of the range ends
// it for good. If the depth limit is hit, the sequence yields a final zero
// payload with the error, after the payloads already produced.
func PostorderSeq[T any](root *Node[T], key KeyFunc[T], opts Options) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		stopped := false
		err := walk(root, key, opts, nil, func(n *Node[T]) bool {
			if !yield(n.Payload, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			var zero T
			yield(zero, err)
		}
	}
}

// Size returns the number of distinct payloads reachable from root,
// including root itself. A nil root has size 0.
func Size[T any](root *Node[T], key KeyFunc[T]) int {
	count := 0
	_ = walk(root, key, Options{MaxDepth: -1}, func(*Node[T]) bool {
		count++
		return true
	}, nil)
	return count
}

// CheckWellFormed verifies that every edge touching a node reachable from
// root is present on both of its endpoints. The first violation is returned
// wrapped with [ErrMalformed].
func CheckWellFormed[T any](root *Node[T], key KeyFunc[T]) error {
	var bad error
	err := walk(root, key, Options{MaxDepth: -1}, func(n *Node[T]) bool {
		for _, out := range n.outgoing.order {
			if !out.incoming.has(n) {
				bad = fmt.Errorf("%w: %s -> %s missing from incoming set of %s", ErrMalformed, key(n.Payload), key(out.Payload), key(out.Payload))
				return false
			}
		}
		for _, in := range n.incoming.order {
			if !in.outgoing.has(n) {
				bad = fmt.Errorf("%w: %s -> %s missing from outgoing set of %s", ErrMalformed, key(in.Payload), key(n.Payload), key(in.Payload))
				return false
			}
		}
		return true
	}, nil)
	if err != nil {
		return err
	}
	return bad
}

type frame[T any] struct {
	node *Node[T]
	next int // index of the next outgoing edge to follow
}

// walk runs an iterative depth-first traversal from root. enter is called
// when a node is first seen and leave once all of its outgoing neighbours
// are done; either may be nil. Returning false from a callback stops the
// walk without error.
func walk[T any](root *Node[T], key KeyFunc[T], opts Options, enter, leave func(*Node[T]) bool) error {
	if root == nil {
		return nil
	}
	opts = opts.WithDefaults()

	seen := map[string]struct{}{key(root.Payload): {}}
	if enter != nil && !enter(root) {
		return nil
	}
	stack := []frame[T]{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.outgoing.order) {
			child := top.node.outgoing.order[top.next]
			top.next++

			k := key(child.Payload)
			if _, ok := seen[k]; ok {
				continue
			}
			if len(stack) >= opts.MaxDepth {
				return fmt.Errorf("%w: more than %d nodes on path at %s", ErrDepthExceeded, opts.MaxDepth, k)
			}
			seen[k] = struct{}{}
			if enter != nil && !enter(child) {
				return nil
			}
			stack = append(stack, frame[T]{node: child})
			continue
		}

		n := top.node
		stack = stack[:len(stack)-1]
		if leave != nil && !leave(n) {
			return nil
		}
	}
	return nil
}
