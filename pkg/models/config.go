package models

type Config struct {
    Source    Source    `yaml:"source" mapstructure:"source"`
    Snowflake Snowflake `yaml:"snowflake" mapstructure:"snowflake"`
    Cache     Cache     `yaml:"cache" mapstructure:"cache"`
    Export    Export    `yaml:"export" mapstructure:"export"`
    Server    Server    `yaml:"server" mapstructure:"server"`
    Logging   Logging   `yaml:"logging" mapstructure:"logging"`
}

// Source selects where the orders table comes from.
type Source struct {
    Kind    string       `yaml:"kind" mapstructure:"kind"` // "csv", "xlsx" or "snowflake"
    Path    string       `yaml:"path" mapstructure:"path"` // File path for csv/xlsx
    Sheet   string       `yaml:"sheet" mapstructure:"sheet"`
    Columns ColumnConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnConfig overrides the column names read from the source
type ColumnConfig struct {
    Date      string `yaml:"date" mapstructure:"date"`
    TradeName string `yaml:"trade_name" mapstructure:"trade_name"`
    Warehouse string `yaml:"warehouse" mapstructure:"warehouse"`
    NumOrders string `yaml:"num_orders" mapstructure:"num_orders"`
}

type Snowflake struct {
    Account      string `yaml:"account" mapstructure:"account"`
    Username     string `yaml:"username" mapstructure:"username"`
    Password     string `yaml:"password" mapstructure:"password"`
    Role         string `yaml:"role" mapstructure:"role"`
    Warehouse    string `yaml:"warehouse" mapstructure:"warehouse"`
    Database     string `yaml:"database" mapstructure:"database"`
    Schema       string `yaml:"schema" mapstructure:"schema"`
    Table        string `yaml:"table" mapstructure:"table"`               // Table holding the nested orders column
    OrdersColumn string `yaml:"orders_column" mapstructure:"orders_column"` // Variant column with per-customer orders
    Timeout      string `yaml:"timeout" mapstructure:"timeout"`
}

// Cache configures the single cached copy of the source table
type Cache struct {
    Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
    TTL       string `yaml:"ttl" mapstructure:"ttl"`               // Fixed expiry, e.g. "10m"; wins over refresh_at
    RefreshAt string `yaml:"refresh_at" mapstructure:"refresh_at"` // Daily wall-clock refresh, e.g. "08:10"
    Timezone  string `yaml:"timezone" mapstructure:"timezone"`
}

// Export configures the downloadable artifact
type Export struct {
    FileName string   `yaml:"file_name" mapstructure:"file_name"`
    S3       S3Export `yaml:"s3" mapstructure:"s3"`
}

type S3Export struct {
    Bucket    string `yaml:"bucket" mapstructure:"bucket"`
    Region    string `yaml:"region" mapstructure:"region"`
    Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
    Prefix    string `yaml:"prefix" mapstructure:"prefix"`
    PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

type Server struct {
    Addr            string `yaml:"addr" mapstructure:"addr"`
    ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type Logging struct {
    Level    string `yaml:"level" mapstructure:"level"`
    Encoding string `yaml:"encoding" mapstructure:"encoding"` // "json" or "console"
}
