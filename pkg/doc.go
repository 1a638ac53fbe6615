// Package pkg holds the libraries behind fsm, a dependency-graph resolver
// that turns a package and its transitive dependencies into an install
// order.
//
// # Overview
//
//  1. [version] - semantic versions, with a distinguished versionless value
//  2. [deps] - the package model and its strict or permissive validation
//  3. [graph] - generic iterative depth-first traversal with cycle and
//     depth guards
//  4. [resolver] - install orders, availability checks and graph building
//  5. [manifest], [repo] - JSON, YAML and TOML manifests and repository
//     listings, fetched over HTTP and cached
//  6. [install], [store] - transactional installation with rollback, and
//     the SQLite journal behind it
//  7. [render] - Graphviz output of a dependency graph
//
// Supporting packages: [errors] for coded errors, [cache] for listing
// caches, [observability] for hooks and Prometheus metrics, [httputil] for
// retries and [buildinfo] for version stamps.
//
// # Data flow
//
//	manifest file ──► manifest.Load ──► []*deps.Package
//	                                          │
//	                          resolver.BuildGraph (root)
//	                                          │
//	                                          ▼
//	                                resolver.Resolve ──► install order
//	                                          │
//	repo.FetchAll ──► *repo.Repository ──► resolver.Check / Available
//	                                          │
//	                                          ▼
//	                              install.Transaction.Apply ──► store
//
// # Quick start
//
//	pkgs, _ := manifest.Load("emacs.yaml", deps.Strict())
//	root, _ := resolver.BuildGraph(pkgs, "emacs")
//	order, _ := resolver.New(resolver.Options{}).Resolve(ctx, root)
//	for _, p := range order {
//	    fmt.Println(p)
//	}
//
// [version]: github.com/matzehuels/fsm/pkg/version
// [deps]: github.com/matzehuels/fsm/pkg/deps
// [graph]: github.com/matzehuels/fsm/pkg/graph
// [resolver]: github.com/matzehuels/fsm/pkg/resolver
// [manifest]: github.com/matzehuels/fsm/pkg/manifest
// [repo]: github.com/matzehuels/fsm/pkg/repo
// [install]: github.com/matzehuels/fsm/pkg/install
// [store]: github.com/matzehuels/fsm/pkg/store
// [render]: github.com/matzehuels/fsm/pkg/render
// [errors]: github.com/matzehuels/fsm/pkg/errors
// [cache]: github.com/matzehuels/fsm/pkg/cache
// [observability]: github.com/matzehuels/fsm/pkg/observability
// [httputil]: github.com/matzehuels/fsm/pkg/httputil
// [buildinfo]: github.com/matzehuels/fsm/pkg/buildinfo
package pkg
