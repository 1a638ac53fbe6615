package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/pkg/install"
	"github.com/matzehuels/fsm/pkg/store"
)

// openStore opens the install journal at the configured path.
func (c *CLI) openStore() (*store.Store, error) {
	path := c.Config.Store.Path
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		path = filepath.Join(dir, "fsm.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	c.Logger.Debug("opening journal", "path", path)
	return store.Open(path)
}

// journal opens the store, or a no-op journal for dry runs.
func (c *CLI) journal(dryRun bool) (install.Journal, func() error, error) {
	if dryRun {
		return install.NopJournal{}, func() error { return nil }, nil
	}
	st, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	return st, st.Close, nil
}

func (c *CLI) newTransaction(j install.Journal, dryRun bool) *install.Transaction {
	var runner install.Runner = install.ExecRunner{Logger: c.Logger}
	if dryRun {
		runner = install.DryRunRunner{Logger: c.Logger}
	}
	return install.NewTransaction(install.Options{
		Backends: install.DefaultBackends(runner),
		Journal:  j,
		Logger:   c.Logger,
	})
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var (
		root    string
		dryRun  bool
		repos   []string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "install <manifest>",
		Short: "Install a manifest's packages in dependency order",
		Long: `Install resolves the manifest and installs each package with the backend for
its kind. A failure removes everything installed so far in reverse order.
With --repo, the order is checked for availability first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			node, err := c.loadGraph(args[0], root)
			if err != nil {
				return err
			}
			r := c.newResolver(false, false)
			order, err := r.Resolve(ctx, node)
			if err != nil {
				return err
			}

			if len(repos) > 0 {
				available, err := c.fetchRepos(ctx, repos, noCache, false)
				if err != nil {
					return err
				}
				if shortfalls := r.Check(ctx, order, available); len(shortfalls) > 0 {
					printShortfalls(out, order, shortfalls)
					return fmt.Errorf("%d of %d packages unavailable", len(shortfalls), len(order))
				}
			}

			journal, closeJournal, err := c.journal(dryRun)
			if err != nil {
				return err
			}
			defer closeJournal()

			txn := c.newTransaction(journal, dryRun)
			res, err := txn.Apply(ctx, order)
			if err != nil {
				if res != nil && len(res.RolledBack) > 0 {
					printWarning(out, "Rolled back %d packages", len(res.RolledBack))
				}
				return err
			}

			printSuccess(out, "Installed %d packages", len(res.Installed))
			if len(res.Skipped) > 0 {
				printDetail(out, "%d already installed", len(res.Skipped))
			}
			printDetail(out, "Transaction: %s", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "root package (default: first in manifest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log commands instead of running them")
	cmd.Flags().StringSliceVar(&repos, "repo", nil, "check availability against these listings first")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the listing cache")
	return cmd
}

// uninstallCommand creates the uninstall command.
func (c *CLI) uninstallCommand() *cobra.Command {
	var (
		root   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall <manifest>",
		Short: "Remove a manifest's packages, dependents first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			node, err := c.loadGraph(args[0], root)
			if err != nil {
				return err
			}
			order, err := c.newResolver(false, false).Resolve(ctx, node)
			if err != nil {
				return err
			}

			journal, closeJournal, err := c.journal(dryRun)
			if err != nil {
				return err
			}
			defer closeJournal()

			if err := c.newTransaction(journal, dryRun).Remove(ctx, order); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Removed %d packages", len(order))
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "root package (default: first in manifest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log commands instead of running them")
	return cmd
}

// installedCommand creates the installed command.
func (c *CLI) installedCommand() *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "installed",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if history {
				txns, err := st.Transactions(ctx)
				if err != nil {
					return err
				}
				if len(txns) == 0 {
					printInfo(out, "No transactions")
					return nil
				}
				t := newTable(out, "TRANSACTION", "STARTED", "FINISHED", "STATUS")
				for _, txn := range txns {
					finished := "-"
					if !txn.FinishedAt.IsZero() {
						finished = txn.FinishedAt.Local().Format(time.DateTime)
					}
					t.AppendRow([]any{txn.ID, txn.StartedAt.Local().Format(time.DateTime), finished, string(txn.Status)})
				}
				t.Render()
				return nil
			}

			recs, err := st.Installed(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo(out, "Nothing installed")
				return nil
			}
			t := newTable(out, "PACKAGE", "VERSION", "KIND", "INSTALLED")
			for _, r := range recs {
				t.AppendRow([]any{r.Name, versionLabel(r.Version), r.Kind.String(), r.InstalledAt.Local().Format(time.DateTime)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "list transactions instead of packages")
	return cmd
}
