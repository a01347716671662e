package config

import (
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/spf13/viper"
    "gopkg.in/yaml.v3"

    "orderdash/internal/cache"
    "orderdash/internal/common"
    "orderdash/internal/export"
    "orderdash/internal/observability"
    "orderdash/internal/source"
    "orderdash/pkg/errors"
    "orderdash/pkg/models"
)

const (
    // EnvPrefix namespaces environment overrides, e.g. ORDERDASH_SOURCE_KIND
    EnvPrefix = "ORDERDASH"
    // EnvConfigFile points at an explicit config file
    EnvConfigFile = "ORDERDASH_CONFIG"

    redacted = "********"
)

func GetConfigPath() string {
    // Check for environment variable first
    if configPath := os.Getenv(EnvConfigFile); configPath != "" {
        return filepath.Dir(configPath)
    }
    home, _ := os.UserHomeDir()
    return filepath.Join(home, ".orderdash")
}

func GetConfigFile() string {
    if configFile := os.Getenv(EnvConfigFile); configFile != "" {
        // Validate the path to prevent directory traversal
        cleaned, err := common.CleanPath(configFile)
        if err != nil {
            // Fall back to default if invalid
            return filepath.Join(GetConfigPath(), "config.yaml")
        }
        return cleaned
    }
    return filepath.Join(GetConfigPath(), "config.yaml")
}

// Defaults returns the configuration used when no file or override sets a key
func Defaults() *models.Config {
    return &models.Config{
        Source: models.Source{
            Kind: source.KindSnowflake,
        },
        Snowflake: models.Snowflake{
            Table:        "CUSTOMER_ORDERS_2024",
            OrdersColumn: "CUSTOMER_ORDERS",
            Timeout:      "30s",
        },
        Cache: models.Cache{
            Enabled:   true,
            RefreshAt: "08:10",
            Timezone:  "America/New_York",
        },
        Export: models.Export{
            FileName: export.DefaultFileName,
        },
        Server: models.Server{
            Addr:            ":8080",
            ShutdownTimeout: "10s",
        },
        Logging: models.Logging{
            Level:    "info",
            Encoding: "json",
        },
    }
}

// SetDefaults registers every key of Defaults with v so that environment
// variables can override keys no config file mentions.
func SetDefaults(v *viper.Viper) {
    d := Defaults()
    v.SetDefault("source.kind", d.Source.Kind)
    v.SetDefault("source.path", d.Source.Path)
    v.SetDefault("source.sheet", d.Source.Sheet)
    v.SetDefault("source.columns.date", "")
    v.SetDefault("source.columns.trade_name", "")
    v.SetDefault("source.columns.warehouse", "")
    v.SetDefault("source.columns.num_orders", "")

    v.SetDefault("snowflake.account", "")
    v.SetDefault("snowflake.username", "")
    v.SetDefault("snowflake.password", "")
    v.SetDefault("snowflake.role", "")
    v.SetDefault("snowflake.warehouse", "")
    v.SetDefault("snowflake.database", "")
    v.SetDefault("snowflake.schema", "")
    v.SetDefault("snowflake.table", d.Snowflake.Table)
    v.SetDefault("snowflake.orders_column", d.Snowflake.OrdersColumn)
    v.SetDefault("snowflake.timeout", d.Snowflake.Timeout)

    v.SetDefault("cache.enabled", d.Cache.Enabled)
    v.SetDefault("cache.ttl", d.Cache.TTL)
    v.SetDefault("cache.refresh_at", d.Cache.RefreshAt)
    v.SetDefault("cache.timezone", d.Cache.Timezone)

    v.SetDefault("export.file_name", d.Export.FileName)
    v.SetDefault("export.s3.bucket", "")
    v.SetDefault("export.s3.region", "")
    v.SetDefault("export.s3.endpoint", "")
    v.SetDefault("export.s3.prefix", "")
    v.SetDefault("export.s3.path_style", false)

    v.SetDefault("server.addr", d.Server.Addr)
    v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

    v.SetDefault("logging.level", d.Logging.Level)
    v.SetDefault("logging.encoding", d.Logging.Encoding)
}

// NewViper returns a viper instance that searches ./config.yaml and
// ~/.orderdash/config.yaml and reads ORDERDASH_* overrides.
func NewViper() *viper.Viper {
    v := viper.New()
    if configFile := os.Getenv(EnvConfigFile); configFile != "" {
        v.SetConfigFile(GetConfigFile())
    } else {
        v.SetConfigName("config")
        v.SetConfigType("yaml")
        v.AddConfigPath(".")
        v.AddConfigPath(GetConfigPath())
    }
    v.SetEnvPrefix(EnvPrefix)
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()
    SetDefaults(v)
    return v
}

// Load reads the config file if there is one and decodes v into a Config.
// A missing file is not an error; defaults and environment still apply.
func Load(v *viper.Viper) (*models.Config, error) {
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) && !os.IsNotExist(err) {
            return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read config file").
                WithContext("file", v.ConfigFileUsed())
        }
    }

    var config models.Config
    if err := v.Unmarshal(&config); err != nil {
        return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode config")
    }
    if err := Validate(&config); err != nil {
        return nil, err
    }
    return &config, nil
}

// Validate checks the values other packages parse later, so mistakes surface
// at startup.
func Validate(config *models.Config) error {
    switch strings.ToLower(config.Source.Kind) {
    case source.KindCSV, source.KindXLSX:
        if config.Source.Path == "" {
            return errors.ConfigError("File sources need a path", "source.path")
        }
    case source.KindSnowflake:
        if config.Snowflake.Table == "" || config.Snowflake.OrdersColumn == "" {
            return errors.ConfigError("Snowflake source needs a table and orders column", "snowflake.table")
        }
    case "":
        if config.Source.Path == "" {
            return errors.ConfigError("Set source.kind or source.path", "source.kind")
        }
    default:
        return errors.ConfigError(fmt.Sprintf("Unknown source kind %q", config.Source.Kind), "source.kind")
    }

    if _, err := ParseDuration(config.Snowflake.Timeout, 0); err != nil {
        return errors.ConfigError(err.Error(), "snowflake.timeout")
    }
    if _, err := ParseDuration(config.Server.ShutdownTimeout, 0); err != nil {
        return errors.ConfigError(err.Error(), "server.shutdown_timeout")
    }
    if _, err := CachePolicy(config.Cache); err != nil {
        return err
    }
    if _, err := observability.ParseLevel(config.Logging.Level); err != nil {
        return errors.ConfigError(err.Error(), "logging.level")
    }
    return nil
}

// ParseDuration parses s, returning fallback when s is empty
func ParseDuration(s string, fallback time.Duration) (time.Duration, error) {
    if strings.TrimSpace(s) == "" {
        return fallback, nil
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        return 0, fmt.Errorf("invalid duration %q", s)
    }
    if d < 0 {
        return 0, fmt.Errorf("negative duration %q", s)
    }
    return d, nil
}

// CachePolicy turns the cache section into an expiry policy. A fixed TTL wins
// over the daily refresh; a disabled cache expires immediately.
func CachePolicy(c models.Cache) (cache.ExpiryPolicy, error) {
    if !c.Enabled {
        return cache.FixedTTL(0), nil
    }
    if c.TTL != "" {
        ttl, err := ParseDuration(c.TTL, 0)
        if err != nil || ttl == 0 {
            return nil, errors.ConfigError(fmt.Sprintf("Invalid cache TTL %q", c.TTL), "cache.ttl")
        }
        return cache.FixedTTL(ttl), nil
    }
    if c.RefreshAt == "" {
        return cache.Never{}, nil
    }
    policy, err := cache.NewDailyRefresh(c.RefreshAt, c.Timezone)
    if err != nil {
        return nil, errors.ConfigError(err.Error(), "cache.refresh_at")
    }
    return policy, nil
}

// Redacted returns a copy of config that is safe to print
func Redacted(config *models.Config) *models.Config {
    out := *config
    if out.Snowflake.Password != "" {
        out.Snowflake.Password = redacted
    }
    return &out
}

// Save writes config as YAML to path, or to the default config file when path is empty
func Save(config *models.Config, path string) (string, error) {
    if path == "" {
        path = GetConfigFile()
    }
    cleaned, err := common.CleanPath(path)
    if err != nil {
        return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid config path")
    }
    if err := os.MkdirAll(filepath.Dir(cleaned), common.DirPermissionSecure); err != nil {
        return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create config directory")
    }

    data, err := yaml.Marshal(config)
    if err != nil {
        return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to marshal config")
    }

    if err := os.WriteFile(cleaned, data, common.FilePermissionSecure); err != nil {
        return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write config file")
    }
    return cleaned, nil
}

func Exists() bool {
    _, err := os.Stat(GetConfigFile())
    return err == nil
}
