package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaplot/internal/server"
	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/observability"
)

// apiKeyPrefix keeps API entries apart from CLI entries in a shared cache.
const apiKeyPrefix = "api:"

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the layout pipeline over HTTP.

  POST /v1/layout           JSON keys in, diagram JSON out
  POST /v1/render/{format}  JSON keys in, xml, json, dot, svg or png out
  GET  /healthz
  GET  /metrics             Prometheus metrics

The server stops gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()
			runner.Keyer = cache.NewScopedKeyer(runner.Keyer, apiKeyPrefix)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.NewPrometheus(reg)
			observability.SetPipelineHooks(metrics)
			observability.SetCacheHooks(metrics)
			observability.SetHTTPHooks(metrics)
			defer observability.Reset()

			srv := server.New(runner, server.Config{
				Defaults: c.Config.pipelineOptions(),
				Gatherer: reg,
				Logger:   c.Logger,
			})
			printInfo("Serving on %s", StyleHighlight.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}
