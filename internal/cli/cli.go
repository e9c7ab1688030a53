// Package cli implements the schemaplot command-line interface.
//
// # Commands
//
//   - layout: lay out one dataset of key files and write the diagram
//   - batch: lay out every dataset under the data folder concurrently
//   - introspect: read keys from PostgreSQL or MySQL into a dataset
//   - verify: check an existing SQL Designer file for overlaps
//   - datasets: list the datasets under the data folder
//   - serve: run the HTTP API
//   - cache: inspect or clear the local cache
//
// Settings come from schemaplot.toml, then a .env file and SCHEMAPLOT_*
// environment variables, then command flags.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaplot/pkg/buildinfo"
	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/pipeline"
)

const appName = "schemaplot"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
	verbose    bool
}

// New returns a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand returns the root command with every subcommand registered.
// Configuration is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "schemaplot lays out ER diagrams from primary and foreign keys",
		Long: `schemaplot reads the primary and foreign keys of a database, from CSV key
files or a live PostgreSQL/MySQL connection, places every table on a canvas
without overlaps and writes the diagram as WWW SQL Designer XML, JSON, DOT,
SVG or PNG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := LoadConfig(c.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			c.Config = cfg
			c.Logger.Debug("loaded config", "path", c.configPath, "layout", cfg.Layout.String())
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", DefaultConfigFile, "path to the configuration file")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.introspectCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.datasetsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner returns a pipeline runner over the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

// newCache opens Redis when an address is configured and the file cache
// otherwise. An unreachable Redis falls back to the file cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.Redis; addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr})
		if err == nil {
			return rc, nil
		}
		c.Logger.Warn("redis cache unavailable, using file cache", "addr", addr, "error", err)
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Debug("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
