package graph

import "slices"

// Node is a vertex carrying a payload and its incoming and outgoing edges.
//
// The zero value is a usable leaf with a zero payload.
type Node[T any] struct {
	Payload T

	incoming edgeSet[T]
	outgoing edgeSet[T]
}

// NewNode returns a node with no edges.
func NewNode[T any](payload T) *Node[T] {
	return &Node[T]{Payload: payload}
}

// Link adds the edge n → to, recording it in n's outgoing set and in to's
// incoming set. Linking an existing edge is a no-op.
func (n *Node[T]) Link(to *Node[T]) {
	n.outgoing.add(to)
	to.incoming.add(n)
}

// Unlink removes the edge n → to from both sides, if present.
func (n *Node[T]) Unlink(to *Node[T]) {
	n.outgoing.remove(to)
	to.incoming.remove(n)
}

// AddOutgoing adds to to n's outgoing set without touching to's incoming
// set. Callers that use it are responsible for keeping the graph well-formed.
func (n *Node[T]) AddOutgoing(to *Node[T]) { n.outgoing.add(to) }

// AddIncoming adds from to n's incoming set without touching from's
// outgoing set.
func (n *Node[T]) AddIncoming(from *Node[T]) { n.incoming.add(from) }

// Outgoing returns a copy of the nodes n points to, in insertion order.
func (n *Node[T]) Outgoing() []*Node[T] { return slices.Clone(n.outgoing.order) }

// Incoming returns a copy of the nodes pointing to n, in insertion order.
func (n *Node[T]) Incoming() []*Node[T] { return slices.Clone(n.incoming.order) }

// OutDegree returns the number of outgoing edges.
func (n *Node[T]) OutDegree() int { return len(n.outgoing.order) }

// InDegree returns the number of incoming edges.
func (n *Node[T]) InDegree() int { return len(n.incoming.order) }

// IsLeaf reports whether n has no outgoing edges.
func (n *Node[T]) IsLeaf() bool { return len(n.outgoing.order) == 0 }

// edgeSet is an insertion-ordered set of node identities.
type edgeSet[T any] struct {
	order []*Node[T]
	index map[*Node[T]]struct{}
}

func (s *edgeSet[T]) add(n *Node[T]) bool {
	if s.has(n) {
		return false
	}
	if s.index == nil {
		s.index = make(map[*Node[T]]struct{})
	}
	s.index[n] = struct{}{}
	s.order = append(s.order, n)
	return true
}

func (s *edgeSet[T]) remove(n *Node[T]) bool {
	if !s.has(n) {
		return false
	}
	delete(s.index, n)
	s.order = slices.DeleteFunc(s.order, func(o *Node[T]) bool { return o == n })
	return true
}

func (s *edgeSet[T]) has(n *Node[T]) bool {
	_, ok := s.index[n]
	return ok
}
