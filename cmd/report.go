package cmd

import (
    "fmt"
    "time"

    "github.com/spf13/cobra"
    "go.uber.org/zap"

    "orderdash/internal/orders"
    "orderdash/internal/pipeline"
    "orderdash/internal/ui"
    "orderdash/pkg/errors"
)

type reportOptions struct {
    filters     filterOptions
    source      sourceOptions
    interactive bool
    limit       int
    daily       bool
    density     bool
}

func newReportCmd(a *app) *cobra.Command {
    opts := &reportOptions{}

    cmd := &cobra.Command{
        Use:   "report",
        Short: "Print order totals for a date range and set of warehouses",
        Long: `Load the orders table, add zero rows for days a warehouse had no orders,
filter it and print the summary, per-warehouse totals and the matching rows.

Without filter flags the report covers every date and every warehouse.`,
        Example: `  orderdash report
  orderdash report --start 2024-01-01 --end 2024-01-31 -w WH-EAST -w WH-WEST
  orderdash report --path orders.csv --daily --density
  orderdash report --interactive`,
        Args: cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            return a.runReport(cmd, opts)
        },
    }

    opts.filters.register(cmd.Flags())
    opts.source.register(cmd.Flags())
    cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Choose the date range and warehouses interactively")
    cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "Maximum rows to print (0 prints all)")
    cmd.Flags().BoolVar(&opts.daily, "daily", false, "Also print orders per day and warehouse")
    cmd.Flags().BoolVar(&opts.density, "density", false, "Also print the date by warehouse order grid")
    return cmd
}

func (a *app) runReport(cmd *cobra.Command, opts *reportOptions) error {
    if opts.limit < 0 {
        return errors.ValidationError("limit", opts.limit, "must not be negative")
    }

    p, closeFn, err := a.openPipeline(nil)
    if err != nil {
        return err
    }
    defer closeFn()

    a.ui.StartProgress("Loading orders")
    ds, err := p.Load(cmd.Context())
    if err != nil {
        a.ui.StopProgress(false, "Failed to load orders")
        return err
    }
    a.ui.StopProgress(true, fmt.Sprintf("Loaded %d rows (%d zero-order days added)", len(ds.Rows), ds.Synthesized))
    if expires, ok := p.ExpiresAt(); ok {
        a.ui.VerbosePrintf("Source: %s, loaded %s, cache valid until %s\n",
            a.config.Source.Kind, ds.LoadedAt.Format(time.RFC3339), expires.Format(time.RFC3339))
    }

    spec, err := opts.filters.spec(ds.Rows)
    if err != nil {
        return err
    }
    if opts.interactive {
        spec, err = ui.PromptFilters(ui.SurveyAsker{}, spec, orders.Warehouses(ds.Rows))
        if err != nil {
            return err
        }
    }

    res := pipeline.Evaluate(ds.Rows, spec)
    a.logger.Debug("report evaluated",
        zap.Int("rows", len(res.Rows)),
        zap.Int64("total_orders", res.Summary.TotalOrders))

    ui.RenderReport(cmd.OutOrStdout(), res, ui.ReportOptions{
        MaxRows: opts.limit,
        Daily:   opts.daily,
        Density: opts.density,
    })
    return nil
}
