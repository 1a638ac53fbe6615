// Package cli implements the fsm command-line interface.
//
// Commands are registered explicitly on the cobra root in RootCommand:
//
//   - resolve: print the install order of a manifest
//   - check: compare the order against repository listings
//   - validate: validate manifests
//   - graph: draw the dependency graph as DOT, SVG or PNG
//   - install, uninstall, installed: apply orders and inspect the journal
//   - repo: list and export repository listings
//   - serve: run the HTTP API
//   - cache: manage the listing cache
//
// Settings come from flags, then the TOML config file, then defaults.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fsm/pkg/buildinfo"
	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/repo"
	"github.com/matzehuels/fsm/pkg/resolver"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "fsm"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
	verbose    bool
	strict     bool
	maxDepth   int
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), Config: DefaultConfig()}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "fsm resolves package dependency graphs into install orders",
		Long:          `fsm computes dependency-first install orders for package graphs, checks them against repository listings, and applies them transactionally.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/fsm/config.toml)")
	flags.BoolVar(&c.strict, "strict", false, "fail on invalid packages instead of warning")
	flags.IntVar(&c.maxDepth, "max-depth", 0, "maximum dependency chain length (0 = default, <0 = unbounded)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.uninstallCommand())
	root.AddCommand(c.installedCommand())
	root.AddCommand(c.repoCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadConfig reads the config file and lets explicitly set flags win.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	path, explicit := c.configPath, c.configPath != ""
	if !explicit {
		path, _ = configPath()
	}
	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("strict") {
		cfg.Strict = c.strict
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = c.maxDepth
	}
	c.Config = cfg
	c.Logger.Debug("config loaded", "path", path, "strict", cfg.Strict, "max_depth", cfg.MaxDepth)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// mode returns the validation mode selected by --strict.
func (c *CLI) mode() deps.Mode {
	if c.Config.Strict {
		return deps.Strict()
	}
	logger := c.Logger
	return deps.Permissive(func(msg string, args ...any) { logger.Warn(msg, args...) })
}

func (c *CLI) newResolver(checkVersions, compatible bool) *resolver.Resolver {
	opts := resolver.Options{
		CheckVersions: checkVersions || c.Config.CheckVersions,
		MaxDepth:      c.Config.MaxDepth,
		Logger:        c.Logger,
	}
	if compatible {
		opts.Match = resolver.CompatibleMatch
	}
	return resolver.New(opts)
}

// newCache opens the configured listing cache: redis when an address is set,
// otherwise the file cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.RedisAddr; addr != "" {
		return cache.DialRedis(ctx, addr)
	}
	dir := c.Config.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// fetchRepos loads and merges the given listings, falling back to the
// configured repositories.
func (c *CLI) fetchRepos(ctx context.Context, srcs []string, noCache, refresh bool) (*repo.Repository, error) {
	if len(srcs) == 0 {
		srcs = c.Config.Repositories
	}
	if len(srcs) == 0 {
		return repo.New(nil)
	}

	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	defer cc.Close()

	prog := newProgress(c.Logger)
	r, err := repo.FetchAll(ctx, srcs, repo.FetchOptions{
		Mode:    c.mode(),
		Cache:   cc,
		TTL:     time.Duration(c.Config.Cache.TTL),
		Refresh: refresh,
		Logger:  c.Logger,
	})
	if err != nil {
		return nil, err
	}
	prog.done("Loaded repositories")
	return r, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/fsm/).
func cacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// configPath returns the default config file (~/.config/fsm/config.toml).
func configPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// dataDir holds the install journal (~/.local/share/fsm/).
func dataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
