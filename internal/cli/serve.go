package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/internal/server"
	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/observability"
	"github.com/matzehuels/fsm/pkg/repo"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API over HTTP",
		Long: `Serve exposes POST /v1/resolve and POST /v1/available, plus /healthz and
Prometheus metrics on /metrics. Configured repositories are loaded once at
startup and used for availability requests that carry no repository.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			observability.NewPrometheus(reg).Register()
			defer observability.Reset()

			var target *repo.Repository
			if len(c.Config.Repositories) > 0 {
				r, err := c.fetchRepos(ctx, nil, noCache, false)
				if err != nil {
					return err
				}
				target = r
				c.Logger.Info("loaded repositories", "packages", r.Len())
			}

			var cc cache.Cache = cache.NewNullCache()
			if !noCache {
				var err error
				if cc, err = c.newCache(ctx, false); err != nil {
					return err
				}
			}
			defer cc.Close()

			srv := server.New(server.Config{
				Addr:          addr,
				Strict:        c.Config.Strict,
				CheckVersions: c.Config.CheckVersions,
				MaxDepth:      c.Config.MaxDepth,
				Repository:    target,
				Cache:         cc,
				Gatherer:      reg,
				Logger:        loggerFromContext(ctx),
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+server.DefaultAddr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable response and listing caches")
	return cmd
}
