package cmd

import (
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/spf13/cobra"
    "go.uber.org/zap"

    "orderdash/internal/config"
    "orderdash/internal/observability"
    "orderdash/internal/server"
)

type serveOptions struct {
    source  sourceOptions
    addr    string
    preload bool
}

func newServeCmd(a *app) *cobra.Command {
    opts := &serveOptions{}

    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Serve the orders dashboard API",
        Long: `Serve the filtered orders over HTTP. Each browser session keeps its own
filters; the loaded orders table is shared and refreshed on the cache schedule.

Endpoints:
  GET  /api/orders          filtered rows
  GET  /api/summary         totals for the applied filters
  GET  /api/charts          per-day and per-warehouse aggregates
  POST /api/filters         stage or apply a date range and warehouse set
  POST /api/filters/reset   restore the default filters (?refresh=true reloads)
  GET  /download            filtered rows as CSV (?format=xlsx)
  GET  /metrics             Prometheus metrics
  GET  /healthz             liveness`,
        Args: cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            return a.runServe(cmd, opts)
        },
    }

    opts.source.register(cmd.Flags())
    cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default: server.addr)")
    cmd.Flags().BoolVar(&opts.preload, "preload", false, "Load the orders table before accepting requests")
    return cmd
}

func (a *app) runServe(cmd *cobra.Command, opts *serveOptions) error {
    registry := prometheus.NewRegistry()
    registry.MustRegister(
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
    metrics := observability.NewMetrics(registry)

    p, closeFn, err := a.openPipeline(metrics)
    if err != nil {
        return err
    }
    defer closeFn()

    ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if opts.preload {
        ds, err := p.Load(ctx)
        if err != nil {
            return err
        }
        a.logger.Info("orders preloaded", zap.Int("rows", len(ds.Rows)), zap.Int("synthesized", ds.Synthesized))
    }

    shutdown, err := config.ParseDuration(a.config.Server.ShutdownTimeout, 10*time.Second)
    if err != nil {
        return err
    }

    srv := server.New(p,
        server.WithLogger(a.logger),
        server.WithMetrics(metrics, registry),
        server.WithFileName(a.config.Export.FileName),
    )

    a.ui.Printf("Serving on %s\n", a.config.Server.Addr)
    return srv.Run(ctx, a.config.Server.Addr, shutdown)
}
