package cmd

import (
    "strings"
    "time"

    "github.com/spf13/pflag"
    "go.uber.org/zap"

    "orderdash/internal/config"
    "orderdash/internal/observability"
    "orderdash/internal/orders"
    "orderdash/internal/pipeline"
    "orderdash/internal/security"
    "orderdash/internal/snowflake"
    "orderdash/internal/source"
    "orderdash/pkg/errors"
    "orderdash/pkg/models"
)

// openPipeline builds the configured source behind a cached pipeline. The
// returned close func releases the Snowflake connection, if any.
func (a *app) openPipeline(metrics *observability.Metrics) (*pipeline.Pipeline, func(), error) {
    cfg := a.config
    closeFn := func() {}

    var db source.Querier
    if usesSnowflake(cfg.Source) {
        svc, err := a.snowflakeService()
        if err != nil {
            return nil, closeFn, err
        }
        db = svc
        closeFn = func() {
            if err := svc.Close(); err != nil {
                a.logger.Warn("closing snowflake connection", zap.Error(err))
            }
        }
    }

    src, err := source.New(cfg.Source, cfg.Snowflake, db, a.logger)
    if err != nil {
        closeFn()
        return nil, func() {}, err
    }

    policy, err := config.CachePolicy(cfg.Cache)
    if err != nil {
        closeFn()
        return nil, func() {}, err
    }

    opts := []pipeline.Option{pipeline.WithLogger(a.logger)}
    if metrics != nil {
        opts = append(opts, pipeline.WithMetrics(metrics))
    }
    return pipeline.New(src, policy, opts...), closeFn, nil
}

func usesSnowflake(src models.Source) bool {
    return strings.EqualFold(src.Kind, source.KindSnowflake)
}

// snowflakeService resolves the password and prepares a lazy connection
func (a *app) snowflakeService() (*snowflake.Service, error) {
    sf := a.config.Snowflake

    password, err := security.NewCredentialStore().ResolvePassword(sf.Account, sf.Username, sf.Password)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Failed to read the Snowflake password").
            WithSuggestions("Run 'orderdash config set-password' or set " + security.PasswordEnv)
    }

    timeout, err := config.ParseDuration(sf.Timeout, 30*time.Second)
    if err != nil {
        return nil, errors.ConfigError(err.Error(), "snowflake.timeout")
    }

    return snowflake.NewService(snowflake.Config{
        Account:   sf.Account,
        Username:  sf.Username,
        Password:  password,
        Database:  sf.Database,
        Schema:    sf.Schema,
        Warehouse: sf.Warehouse,
        Role:      sf.Role,
        Timeout:   timeout,
    }, a.logger), nil
}

// filterOptions are the --start/--end/--warehouse flags shared by report and export
type filterOptions struct {
    start      string
    end        string
    warehouses []string
}

func (f *filterOptions) register(flags *pflag.FlagSet) {
    flags.StringVar(&f.start, "start", "", "First order date to include, YYYY-MM-DD (default: earliest date)")
    flags.StringVar(&f.end, "end", "", "Last order date to include, YYYY-MM-DD (default: latest date)")
    flags.StringSliceVarP(&f.warehouses, "warehouse", "w", nil, "Warehouses to include, repeatable (default: all)")
}

// spec resolves the flags against the dense table. Unset bounds and an
// empty warehouse list fall back to the full range and every warehouse.
func (f *filterOptions) spec(dense []models.OrderRecord) (models.FilterSpec, error) {
    def := orders.DefaultSpec(dense)
    start, end, warehouses := def.StartDate, def.EndDate, def.Warehouses

    if f.start != "" {
        t, err := models.ParseDate(f.start)
        if err != nil {
            return models.FilterSpec{}, errors.ValidationError("start", f.start, "not a date")
        }
        start = t
    }
    if f.end != "" {
        t, err := models.ParseDate(f.end)
        if err != nil {
            return models.FilterSpec{}, errors.ValidationError("end", f.end, "not a date")
        }
        end = t
    }
    if len(f.warehouses) > 0 {
        warehouses = f.warehouses
    }
    return models.NewFilterSpec(start, end, warehouses), nil
}

// sourceOptions let a single run point at another source than the config
type sourceOptions struct {
    kind  string
    path  string
    sheet string
}

func (s *sourceOptions) register(flags *pflag.FlagSet) {
    flags.StringVar(&s.kind, "source", "", "Source kind: snowflake, csv or xlsx")
    flags.StringVar(&s.path, "path", "", "CSV/XLSX export to read instead of Snowflake")
    flags.StringVar(&s.sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
}
