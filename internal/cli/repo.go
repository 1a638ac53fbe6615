package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/pkg/manifest"
)

// repoCommand creates the repository listing command.
func (c *CLI) repoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Inspect repository listings",
	}

	cmd.AddCommand(c.repoListCommand())
	cmd.AddCommand(c.repoExportCommand())

	return cmd
}

// repoListCommand creates the "repo list" subcommand.
func (c *CLI) repoListCommand() *cobra.Command {
	var noCache, refresh bool

	cmd := &cobra.Command{
		Use:   "list [source]...",
		Short: "List the packages in merged listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r, err := c.fetchRepos(cmd.Context(), args, noCache, refresh)
			if err != nil {
				return err
			}
			if r.Len() == 0 {
				printInfo(out, "No packages")
				return nil
			}
			t := newTable(out, "PACKAGE", "VERSION", "KIND")
			for _, p := range r.Packages() {
				t.AppendRow([]any{p.Name, versionLabel(p.Version), p.Kind.String()})
			}
			t.Render()
			printDetail(out, "%d packages", r.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the listing cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch listings even when cached")
	return cmd
}

// repoExportCommand creates the "repo export" subcommand.
func (c *CLI) repoExportCommand() *cobra.Command {
	var (
		format  string
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "export [source]...",
		Short: "Write merged listings as one manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := manifest.ParseFormat(format)
			if err != nil {
				return err
			}
			r, err := c.fetchRepos(cmd.Context(), args, noCache, false)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return manifest.Encode(w, r.Packages(), f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (json, toml, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the listing cache")
	return cmd
}
