// Package resolver computes installation orders and checks them against a
// target repository.
//
// # Resolution
//
// [Resolver.Resolve] walks a dependency graph in postorder, producing every
// reachable package exactly once with each package after all of its
// dependencies:
//
//	root, _ := resolver.BuildGraph(pkgs, "emacs")
//	order, err := resolver.New(resolver.Options{}).Resolve(ctx, root)
//	// order: emacs-core, emacs-lisp, emacs-gtk, emacs
//
// Cycles are not errors. A package reached again through a cycle is
// skipped, so resolution always terminates; the order within a cycle is
// the discovery order.
//
// # Availability
//
// [Resolver.Shortfalls] checks every package in the order against a
// [repo.Repository] and reports each one the repository cannot satisfy.
// Missing packages are results, not errors. [Resolver.Available] returns
// just their names.
//
// # Depth
//
// Traversal depth is bounded per call by Options.MaxDepth. Exceeding it
// fails the resolution with an error wrapping [graph.ErrDepthExceeded] and
// returns no partial order.
package resolver
