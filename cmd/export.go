package cmd

import (
    "bytes"
    "fmt"

    "github.com/spf13/cobra"
    "go.uber.org/zap"

    "orderdash/internal/export"
    "orderdash/internal/pipeline"
)

type exportOptions struct {
    filters filterOptions
    source  sourceOptions
    format  string
    out     string
    s3      bool
}

func newExportCmd(a *app) *cobra.Command {
    opts := &exportOptions{}

    cmd := &cobra.Command{
        Use:   "export",
        Short: "Write the filtered orders to a CSV or XLSX file",
        Long: `Write the filtered orders table to a file, to stdout with --out -, or to
the S3 bucket configured under export.s3 with --s3.`,
        Example: `  orderdash export
  orderdash export --start 2024-03-01 --format xlsx --out march.xlsx
  orderdash export --out - | head
  orderdash export --s3`,
        Args: cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            return a.runExport(cmd, opts)
        },
    }

    opts.filters.register(cmd.Flags())
    opts.source.register(cmd.Flags())
    cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "Output format: csv or xlsx")
    cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file, or - for stdout (default: export.file_name)")
    cmd.Flags().BoolVar(&opts.s3, "s3", false, "Upload to the configured S3 bucket instead of writing a file")
    cmd.MarkFlagsMutuallyExclusive("out", "s3")
    return cmd
}

func (a *app) runExport(cmd *cobra.Command, opts *exportOptions) error {
    format, err := export.ParseFormat(opts.format)
    if err != nil {
        return err
    }

    p, closeFn, err := a.openPipeline(nil)
    if err != nil {
        return err
    }
    defer closeFn()

    ctx := cmd.Context()
    ds, err := p.Load(ctx)
    if err != nil {
        return err
    }
    spec, err := opts.filters.spec(ds.Rows)
    if err != nil {
        return err
    }
    rows := pipeline.Evaluate(ds.Rows, spec).Rows

    name := a.fileName(format)
    switch {
    case opts.s3:
        data, err := export.Encode(format, rows)
        if err != nil {
            return err
        }
        s3cfg := a.config.Export.S3
        uploader, err := export.NewS3Uploader(ctx, export.S3Config{
            Bucket:    s3cfg.Bucket,
            Region:    s3cfg.Region,
            Endpoint:  s3cfg.Endpoint,
            Prefix:    s3cfg.Prefix,
            PathStyle: s3cfg.PathStyle,
        })
        if err != nil {
            return err
        }
        location, err := uploader.Upload(ctx, name, bytes.NewReader(data), format.ContentType())
        if err != nil {
            return err
        }
        a.logger.Info("export uploaded", zap.String("location", location), zap.Int("rows", len(rows)))
        a.ui.Success(fmt.Sprintf("Uploaded %d rows to %s", len(rows), location))

    case opts.out == "-":
        data, err := export.Encode(format, rows)
        if err != nil {
            return err
        }
        if _, err := cmd.OutOrStdout().Write(data); err != nil {
            return err
        }

    default:
        path := opts.out
        if path == "" {
            path = name
        }
        written, err := export.WriteFile(path, format, rows)
        if err != nil {
            return err
        }
        a.logger.Info("export written", zap.String("path", written), zap.Int("rows", len(rows)))
        a.ui.Success(fmt.Sprintf("Wrote %d rows to %s", len(rows), written))
    }
    return nil
}

// fileName is export.file_name with the extension matching format
func (a *app) fileName(format export.Format) string {
    name := a.config.Export.FileName
    if name == "" || name == export.DefaultFileName {
        return format.FileName()
    }
    return name
}
