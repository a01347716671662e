package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"orderdash/pkg/errors"
)

// Service provides read access to a Snowflake account
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
	logger    *zap.Logger
}

// Config holds Snowflake connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// NewService creates a new Snowflake service
func NewService(config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config: config,
		logger: logger.Named("snowflake"),
	}
}

// NewServiceWithDB wraps an already open connection, e.g. a sqlmock handle.
func NewServiceWithDB(db *sql.DB, config Config, logger *zap.Logger) *Service {
	s := NewService(config, logger)
	s.db = db
	s.connected = true
	return s
}

// DSN renders the driver connection string for config.
func DSN(config Config) (string, error) {
	return sf.DSN(&sf.Config{
		Account:      config.Account,
		User:         config.Username,
		Password:     config.Password,
		Database:     config.Database,
		Schema:       config.Schema,
		Warehouse:    config.Warehouse,
		Role:         config.Role,
		LoginTimeout: config.Timeout,
	})
}

// Connect establishes a connection to Snowflake
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	if err := ValidateConfig(s.config); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Invalid Snowflake configuration").
			WithSuggestions("Set the missing snowflake.* keys in config.yaml")
	}

	dsn, err := DSN(s.config)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to build Snowflake DSN")
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open Snowflake connection", err).
			WithContext("account", s.config.Account).
			WithContext("warehouse", s.config.Warehouse)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()

		if strings.Contains(strings.ToLower(err.Error()), "authentication") {
			return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", s.config.Username).
				WithSuggestions(
					"Verify your username and password",
					"Store the password with 'orderdash config set-password'",
				)
		}

		return errors.ConnectionError("Failed to connect to Snowflake", err).
			WithContext("account", s.config.Account)
	}

	s.db = db
	s.connected = true
	s.logger.Debug("connected",
		zap.String("account", s.config.Account),
		zap.String("warehouse", s.config.Warehouse))
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

// Connected reports whether Connect succeeded and Close has not been called.
func (s *Service) Connected() bool {
	return s.connected
}

// QueryContext runs a read query bounded by the configured timeout. The
// returned cancel func must be called once the rows are consumed.
func (s *Service) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, context.CancelFunc, error) {
	if !s.connected {
		return nil, nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before querying")
	}

	qctx, cancel := s.withTimeout(ctx)
	start := time.Now()
	rows, err := s.db.QueryContext(qctx, query, args...)
	if err != nil {
		cancel()
		return nil, nil, errors.SQLError("Failed to execute query", query, err)
	}

	s.logger.Debug("query started", zap.Duration("latency", time.Since(start)))
	return rows, cancel, nil
}

// Ping checks that the connection is alive
func (s *Service) Ping(ctx context.Context) error {
	if !s.connected {
		return fmt.Errorf("not connected to database")
	}

	pctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(pctx)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return fmt.Errorf("account is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Warehouse == "" {
		return fmt.Errorf("warehouse is required")
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// ValidIdentifier reports whether name is a plain, optionally qualified,
// Snowflake identifier that is safe to splice into a query.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
