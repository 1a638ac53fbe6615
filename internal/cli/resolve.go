package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/graph"
	"github.com/matzehuels/fsm/pkg/manifest"
	"github.com/matzehuels/fsm/pkg/resolver"
	"github.com/matzehuels/fsm/pkg/version"
)

// loadGraphs reads a manifest and builds one graph per root. With no roots
// the first package in the manifest is the root.
func (c *CLI) loadGraphs(path string, roots []string) ([]*graph.Node[*deps.Package], error) {
	pkgs, err := manifest.Load(path, c.mode())
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		if len(pkgs) == 0 {
			return nil, fsmerrors.New(fsmerrors.ErrCodeInvalidManifest, "%s lists no packages", path)
		}
		roots = []string{pkgs[0].Name}
	}

	nodes := make([]*graph.Node[*deps.Package], len(roots))
	for i, name := range roots {
		n, err := resolver.BuildGraph(pkgs, name)
		if err != nil {
			if errors.Is(err, resolver.ErrUnknownRoot) {
				return nil, fsmerrors.Wrap(fsmerrors.ErrCodePackageNotFound, err, "%s", path)
			}
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func (c *CLI) loadGraph(path, root string) (*graph.Node[*deps.Package], error) {
	var roots []string
	if root != "" {
		roots = []string{root}
	}
	nodes, err := c.loadGraphs(path, roots)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		roots  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <manifest>",
		Short: "Print the install order of a manifest",
		Long: `Resolve prints every package reachable from the root, each after all of
its dependencies. Pass --root more than once to resolve several roots in parallel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			nodes, err := c.loadGraphs(args[0], roots)
			if err != nil {
				return err
			}
			r := c.newResolver(false, false)

			if len(nodes) == 1 && !asJSON {
				i := 0
				for p, err := range r.Walk(ctx, nodes[0]) {
					if err != nil {
						return err
					}
					i++
					printStep(out, i, p.String())
				}
				return nil
			}

			prog := newProgress(c.Logger)
			orders, err := r.ResolveAll(ctx, nodes)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d roots", len(orders)))

			if asJSON {
				result := make(map[string][]string, len(orders))
				for i, order := range orders {
					result[deps.Key(nodes[i].Payload)] = packageNames(order)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			for i, order := range orders {
				fmt.Fprintln(out, StyleTitle.Render(deps.Key(nodes[i].Payload)))
				for j, p := range order {
					printStep(out, j+1, p.String())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&roots, "root", "r", nil, "root package (default: first in manifest)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print orders as JSON keyed by root")
	return cmd
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		root          string
		repos         []string
		checkVersions bool
		compatible    bool
		noCache       bool
		refresh       bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "check <manifest>",
		Short: "Check that every required package is available",
		Long: `Check resolves the manifest and looks up every package in the merged
repository listings given by --repo (or the configured repositories). It exits
non-zero when anything is missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			node, err := c.loadGraph(args[0], root)
			if err != nil {
				return err
			}
			available, err := c.fetchRepos(ctx, repos, noCache, refresh)
			if err != nil {
				return err
			}

			r := c.newResolver(checkVersions, compatible)
			order, err := r.Resolve(ctx, node)
			if err != nil {
				return err
			}
			shortfalls := r.Check(ctx, order, available)

			if asJSON {
				if shortfalls == nil {
					shortfalls = []resolver.Shortfall{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(shortfalls); err != nil {
					return err
				}
			} else {
				printShortfalls(out, order, shortfalls)
			}

			if len(shortfalls) > 0 {
				return fmt.Errorf("%d of %d packages unavailable", len(shortfalls), len(order))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "root package (default: first in manifest)")
	cmd.Flags().StringSliceVar(&repos, "repo", nil, "repository listing URL or path (repeatable)")
	cmd.Flags().BoolVar(&checkVersions, "check-versions", false, "also require matching versions")
	cmd.Flags().BoolVar(&compatible, "compatible", false, "accept any version with the same major")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the listing cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch listings even when cached")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print shortfalls as JSON")
	return cmd
}

func printShortfalls(w io.Writer, order []*deps.Package, shortfalls []resolver.Shortfall) {
	byName := make(map[string]resolver.Shortfall, len(shortfalls))
	for _, s := range shortfalls {
		byName[s.Name] = s
	}

	t := newTable(w, "#", "PACKAGE", "VERSION", "STATUS")
	for i, p := range order {
		status := styleIconSuccess.Render(iconSuccess + " available")
		name, ver := deps.Key(p), "-"
		if p != nil {
			ver = versionLabel(p.Version)
		}
		if s, ok := byName[name]; ok {
			switch s.Reason {
			case resolver.ReasonMissing:
				status = styleIconError.Render(iconError + " missing")
			case resolver.ReasonVersion:
				status = styleIconWarning.Render(iconWarning + " have " + s.Have.String())
			}
		}
		t.AppendRow([]any{i + 1, name, ver, status})
	}
	t.Render()

	if len(shortfalls) == 0 {
		printSuccess(w, "All %d packages available", len(order))
		return
	}
	printWarning(w, "%d of %d packages unavailable", len(shortfalls), len(order))
}

func versionLabel(v version.Version) string {
	if v.IsAbsent() || v.IsVersionless() {
		return "-"
	}
	return v.String()
}

func packageNames(pkgs []*deps.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = deps.Key(p)
	}
	return out
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Validate package manifests",
		Long: `Validate decodes each manifest, checks every package and resolves every
package within --max-depth. With --strict the first package problem fails the
file; otherwise package problems are logged as warnings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var errs []error
			for _, path := range args {
				pkgs, err := manifest.Load(path, c.mode())
				if err == nil {
					err = c.checkResolvable(cmd.Context(), pkgs)
				}
				if err != nil {
					printError(out, "%s: %s", path, fsmerrors.UserMessage(err))
					errs = append(errs, err)
					continue
				}
				printSuccess(out, "%s: %d packages", path, len(pkgs))
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d manifests invalid", len(errs), len(args))
			}
			return nil
		},
	}
}

// checkResolvable resolves every package of the manifest, so that a
// dependency chain longer than the depth limit fails validation rather
// than a later resolve or install.
func (c *CLI) checkResolvable(ctx context.Context, pkgs []*deps.Package) error {
	r := c.newResolver(false, false)
	for _, p := range pkgs {
		root, err := resolver.BuildGraph(pkgs, deps.Key(p))
		if err != nil {
			return err
		}
		if _, err := r.Resolve(ctx, root); err != nil {
			return fmt.Errorf("package %q: %w", deps.Key(p), err)
		}
	}
	return nil
}
