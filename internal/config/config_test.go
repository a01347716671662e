package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gopkg.in/yaml.v3"

    "orderdash/internal/cache"
    "orderdash/pkg/errors"
    "orderdash/pkg/models"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
    t.Helper()
    prev, err := os.Getwd()
    require.NoError(t, err)
    require.NoError(t, os.Chdir(dir))
    t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}

func isolate(t *testing.T) string {
    t.Helper()
    home := t.TempDir()
    t.Setenv("HOME", home)
    t.Setenv(EnvConfigFile, "")
    return home
}

func TestGetConfigPath(t *testing.T) {
    home := isolate(t)
    assert.Equal(t, filepath.Join(home, ".orderdash"), GetConfigPath())
    assert.Equal(t, filepath.Join(home, ".orderdash", "config.yaml"), GetConfigFile())
}

func TestGetConfigFileFromEnv(t *testing.T) {
    dir := t.TempDir()
    t.Setenv(EnvConfigFile, filepath.Join(dir, "custom.yaml"))

    assert.Equal(t, filepath.Join(dir, "custom.yaml"), GetConfigFile())
    assert.Equal(t, dir, GetConfigPath())
}

func TestDefaultsAreValid(t *testing.T) {
    assert.NoError(t, Validate(Defaults()))
}

func TestLoadWithoutFile(t *testing.T) {
    isolate(t)
    chdir(t, t.TempDir())

    cfg, err := Load(NewViper())
    require.NoError(t, err)
    assert.Equal(t, Defaults(), cfg)
}

func TestLoadFromFile(t *testing.T) {
    isolate(t)
    path := filepath.Join(t.TempDir(), "config.yaml")
    content := `
source:
  kind: csv
  path: ./data/orders.csv
  columns:
    warehouse: site
cache:
  enabled: true
  ttl: 10m
logging:
  level: debug
`
    require.NoError(t, os.WriteFile(path, []byte(content), 0600))
    t.Setenv(EnvConfigFile, path)

    cfg, err := Load(NewViper())
    require.NoError(t, err)

    assert.Equal(t, "csv", cfg.Source.Kind)
    assert.Equal(t, "./data/orders.csv", cfg.Source.Path)
    assert.Equal(t, "site", cfg.Source.Columns.Warehouse)
    assert.Equal(t, "10m", cfg.Cache.TTL)
    assert.Equal(t, "debug", cfg.Logging.Level)
    // untouched keys keep their defaults
    assert.Equal(t, "CUSTOMER_ORDERS_2024", cfg.Snowflake.Table)
    assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
    isolate(t)
    chdir(t, t.TempDir())
    t.Setenv("ORDERDASH_SOURCE_KIND", "xlsx")
    t.Setenv("ORDERDASH_SOURCE_PATH", "orders.xlsx")
    t.Setenv("ORDERDASH_SNOWFLAKE_ACCOUNT", "xy12345")
    t.Setenv("ORDERDASH_SERVER_ADDR", ":9090")

    cfg, err := Load(NewViper())
    require.NoError(t, err)

    assert.Equal(t, "xlsx", cfg.Source.Kind)
    assert.Equal(t, "orders.xlsx", cfg.Source.Path)
    assert.Equal(t, "xy12345", cfg.Snowflake.Account)
    assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
    isolate(t)
    path := filepath.Join(t.TempDir(), "config.yaml")
    require.NoError(t, os.WriteFile(path, []byte("source: [unclosed"), 0600))
    t.Setenv(EnvConfigFile, path)

    _, err := Load(NewViper())
    require.Error(t, err)
    assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestValidate(t *testing.T) {
    tests := []struct {
        name   string
        mutate func(c *models.Config)
        field  string
    }{
        {"csv without path", func(c *models.Config) { c.Source.Kind = "csv" }, "source.path"},
        {"unknown kind", func(c *models.Config) { c.Source.Kind = "parquet" }, "source.kind"},
        {"no kind no path", func(c *models.Config) { c.Source.Kind = "" }, "source.kind"},
        {"snowflake without table", func(c *models.Config) { c.Snowflake.Table = "" }, "snowflake.table"},
        {"bad timeout", func(c *models.Config) { c.Snowflake.Timeout = "soon" }, "snowflake.timeout"},
        {"bad shutdown", func(c *models.Config) { c.Server.ShutdownTimeout = "-1s" }, "server.shutdown_timeout"},
        {"bad ttl", func(c *models.Config) { c.Cache.TTL = "forever" }, "cache.ttl"},
        {"bad refresh", func(c *models.Config) { c.Cache.RefreshAt = "8am" }, "cache.refresh_at"},
        {"bad level", func(c *models.Config) { c.Logging.Level = "loud" }, "logging.level"},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            cfg := Defaults()
            tt.mutate(cfg)

            err := Validate(cfg)
            require.Error(t, err)

            var appErr *errors.AppError
            require.True(t, errors.As(err, &appErr))
            assert.Equal(t, tt.field, appErr.Context["field"])
        })
    }
}

func TestCachePolicy(t *testing.T) {
    policy, err := CachePolicy(models.Cache{Enabled: false, TTL: "10m"})
    require.NoError(t, err)
    assert.Equal(t, cache.FixedTTL(0), policy)

    policy, err = CachePolicy(models.Cache{Enabled: true, TTL: "10m", RefreshAt: "08:10"})
    require.NoError(t, err)
    assert.Equal(t, cache.FixedTTL(10*time.Minute), policy)

    policy, err = CachePolicy(models.Cache{Enabled: true})
    require.NoError(t, err)
    assert.Equal(t, cache.Never{}, policy)

    policy, err = CachePolicy(Defaults().Cache)
    require.NoError(t, err)
    daily, ok := policy.(cache.DailyRefresh)
    require.True(t, ok)
    assert.Equal(t, 8, daily.Hour)
    assert.Equal(t, 10, daily.Minute)
    assert.Equal(t, "America/New_York", daily.Location.String())
}

func TestParseDuration(t *testing.T) {
    d, err := ParseDuration("", 5*time.Second)
    require.NoError(t, err)
    assert.Equal(t, 5*time.Second, d)

    d, err = ParseDuration("2m", 0)
    require.NoError(t, err)
    assert.Equal(t, 2*time.Minute, d)

    _, err = ParseDuration("-2m", 0)
    assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
    home := isolate(t)

    testConfig := Defaults()
    testConfig.Snowflake.Account = "test123.us-east-1"
    testConfig.Snowflake.Username = "testuser"
    testConfig.Snowflake.Warehouse = "TEST_WH"

    path, err := Save(testConfig, "")
    require.NoError(t, err)
    assert.Equal(t, filepath.Join(home, ".orderdash", "config.yaml"), path)
    assert.True(t, Exists())

    info, err := os.Stat(path)
    require.NoError(t, err)
    assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

    data, err := os.ReadFile(path)
    require.NoError(t, err)

    var loadedConfig models.Config
    require.NoError(t, yaml.Unmarshal(data, &loadedConfig))
    assert.Equal(t, *testConfig, loadedConfig)
}

func TestRedacted(t *testing.T) {
    cfg := Defaults()
    cfg.Snowflake.Password = "hunter2"

    out := Redacted(cfg)

    assert.Equal(t, "********", out.Snowflake.Password)
    assert.Equal(t, "hunter2", cfg.Snowflake.Password)
}
