package cmd

import (
    "os"

    "github.com/spf13/cobra"
    "github.com/spf13/viper"
    "go.uber.org/zap"

    "orderdash/internal/config"
    "orderdash/internal/observability"
    "orderdash/internal/ui"
    "orderdash/pkg/models"
)

// skipConfigAnnotation marks commands that run without a loaded config
const skipConfigAnnotation = "orderdash/skip-config"

// rootOptions holds the persistent flags
type rootOptions struct {
    configFile string
    logLevel   string
    noColor    bool
    verbose    bool
    quiet      bool
}

// app is the state shared by every subcommand once the config is loaded
type app struct {
    flags  rootOptions
    viper  *viper.Viper
    config *models.Config
    logger *zap.Logger
    ui     *ui.UI
}

// configFlags maps command flags onto config keys. A flag only overrides the
// config when the user sets it.
var configFlags = map[string]string{
    "log-level": "logging.level",
    "source":    "source.kind",
    "path":      "source.path",
    "sheet":     "source.sheet",
    "addr":      "server.addr",
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
    a := &app{logger: zap.NewNop()}

    cmd := &cobra.Command{
        Use:   "orderdash",
        Short: "Report on daily orders per warehouse",
        Long: `orderdash - load daily warehouse orders from Snowflake or a CSV/XLSX export,
fill in the days a warehouse had no orders, then filter by date range and
warehouse and report totals, charts-ready aggregates and downloadable tables.`,
        SilenceUsage:  true,
        SilenceErrors: true,
        PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
            if a.flags.noColor {
                ui.SetColor(false)
            }
            a.ui = ui.NewUI(a.flags.verbose, a.flags.quiet)
            if cmd.Annotations[skipConfigAnnotation] == "true" {
                return nil
            }
            return a.init(cmd)
        },
        PersistentPostRun: func(cmd *cobra.Command, args []string) {
            _ = a.logger.Sync()
        },
    }

    flags := cmd.PersistentFlags()
    flags.StringVar(&a.flags.configFile, "config", "", "Config file (default ./config.yaml or ~/.orderdash/config.yaml)")
    flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
    flags.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")
    flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Verbose output")
    flags.BoolVarP(&a.flags.quiet, "quiet", "q", false, "Only print results")
    cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

    cmd.AddCommand(
        newReportCmd(a),
        newExportCmd(a),
        newServeCmd(a),
        newConfigCmd(a),
        newVersionCmd(),
    )
    return cmd
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
    if err := NewRootCmd().Execute(); err != nil {
        ui.ShowError(err)
        os.Exit(1)
    }
}

// init loads the config for cmd and builds the logger
func (a *app) init(cmd *cobra.Command) error {
    v := config.NewViper()
    if a.flags.configFile != "" {
        v.SetConfigFile(a.flags.configFile)
    }

    for name, key := range configFlags {
        if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
            if err := v.BindPFlag(key, flag); err != nil {
                return err
            }
        }
    }
    // A bare --path picks the source kind from the file extension
    if path := cmd.Flags().Lookup("path"); path != nil && path.Changed {
        if kind := cmd.Flags().Lookup("source"); kind == nil || !kind.Changed {
            v.Set("source.kind", "")
        }
    }

    cfg, err := config.Load(v)
    if err != nil {
        return err
    }

    level := cfg.Logging.Level
    if a.flags.verbose {
        level = "debug"
    }
    logCfg := observability.DefaultLoggerConfig()
    logCfg.Level = level
    logCfg.Encoding = cfg.Logging.Encoding
    logCfg.Version = Version
    logger, err := observability.NewLogger(logCfg)
    if err != nil {
        return err
    }

    a.viper = v
    a.config = cfg
    a.logger = logger
    a.logger.Debug("config loaded", zap.String("file", v.ConfigFileUsed()), zap.String("source", cfg.Source.Kind))
    return nil
}
