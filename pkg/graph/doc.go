// Package graph provides a possibly cyclic directed graph of payload-carrying
// nodes and the cycle-safe traversals that dependency resolution is built on.
//
// # Overview
//
// A [Node] holds a payload (typically a *deps.Package) plus two edge sets:
// outgoing (what this node depends on) and incoming (what depends on it).
// Edge sets are insertion-ordered and free of duplicates, so traversals are
// deterministic for a given construction order.
//
//	core := graph.NewNode("emacs-core")
//	lisp := graph.NewNode("emacs-lisp")
//	lisp.Link(core) // lisp → core, mirrored into core's incoming set
//
// # Well-formedness
//
// A graph is well-formed when every outgoing edge A → B is mirrored by A in
// B's incoming set. [Node.Link] keeps the mirror; [Node.AddOutgoing] and
// [Node.AddIncoming] do not. Traversals assume a well-formed graph and do not
// check it. Use [CheckWellFormed] as a separate pass when the graph comes
// from an untrusted builder.
//
// # Traversal
//
// [Preorder] visits a payload before its outgoing neighbours; [Postorder]
// visits it after them, which yields dependency-first order. [PostorderSeq]
// is the lazy form of [Postorder]. [Size] counts distinct reachable payloads.
//
// Cycle safety comes from a per-call seen-set keyed by a caller-supplied
// [KeyFunc]. A node whose key was already seen is skipped together with its
// subtree, so every traversal terminates. Two distinct nodes with equal keys
// collapse into one; the key must therefore match the intended identity of a
// payload (package name, for packages).
//
// Traversals run on an explicit frame stack rather than the goroutine stack.
// [Options.MaxDepth] bounds the active path for one call only; exceeding it
// fails the call with [ErrDepthExceeded] and no partial result.
//
// # Concurrency
//
// Traversals never mutate nodes, so concurrent traversals of the same graph
// are safe as long as no goroutine adds or removes edges meanwhile. Edge
// mutation is not synchronized.
package graph
