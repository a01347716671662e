package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Encoding    string // json or console
	Output      io.Writer
	Service     string
	Version     string
	Environment string
}

// DefaultLoggerConfig logs info and above as JSON to stderr
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:    "info",
		Encoding: "json",
		Output:   os.Stderr,
		Service:  "orderdash",
	}
}

// ParseLevel maps a level name onto a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// NewLogger creates a new logger instance
func NewLogger(config LoggerConfig) (*zap.Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	if config.Output == nil {
		config.Output = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(config.Encoding) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log encoding %q", config.Encoding)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(config.Output), level)

	var fields []zap.Field
	if config.Service != "" {
		fields = append(fields, zap.String("service", config.Service))
	}
	if config.Version != "" {
		fields = append(fields, zap.String("version", config.Version))
	}
	if config.Environment != "" {
		fields = append(fields, zap.String("environment", config.Environment))
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).With(fields...), nil
}
