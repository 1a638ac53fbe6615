package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/pkg/render"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		root     string
		output   string
		detailed bool
		repos    []string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "graph <manifest>",
		Short: "Draw the dependency graph",
		Long: `Graph writes the dependency graph as Graphviz DOT. The output format follows
the extension of --output: .dot, .svg or .png. With --repo, packages missing
from the listings are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			node, err := c.loadGraph(args[0], root)
			if err != nil {
				return err
			}

			opts := render.Options{Detailed: detailed, MaxDepth: c.Config.MaxDepth}
			if len(repos) > 0 {
				available, err := c.fetchRepos(ctx, repos, noCache, false)
				if err != nil {
					return err
				}
				if opts.Missing, err = c.newResolver(false, false).Available(ctx, node, available); err != nil {
					return err
				}
			}

			dot, err := render.ToDOT(node, opts)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}

			var data []byte
			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".dot", ".gv", "":
				data = []byte(dot)
			case ".svg":
				data, err = render.RenderSVG(ctx, dot)
			case ".png":
				data, err = render.RenderPNG(ctx, dot)
			default:
				return fmt.Errorf("unsupported output format %q (want .dot, .svg or .png)", ext)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Rendered graph")
			printFile(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "root package (default: first in manifest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: DOT on stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show version, kind and url in nodes")
	cmd.Flags().StringSliceVar(&repos, "repo", nil, "highlight packages missing from these listings")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the listing cache")
	return cmd
}
