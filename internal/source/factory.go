package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// Kinds accepted by source.kind.
const (
	KindCSV       = "csv"
	KindXLSX      = "xlsx"
	KindSnowflake = "snowflake"
)

// New builds the Source described by cfg. db is only consulted for the
// snowflake kind. An empty kind is inferred from the path extension.
func New(cfg models.Source, sfCfg models.Snowflake, db Querier, logger *zap.Logger) (Source, error) {
	kind := strings.ToLower(cfg.Kind)
	if kind == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".xlsx":
			kind = KindXLSX
		case ".csv":
			kind = KindCSV
		}
	}

	switch kind {
	case KindCSV:
		if cfg.Path == "" {
			return nil, errors.ConfigError("CSV source needs a path", "source.path")
		}
		return &CSVSource{Path: cfg.Path, Mapping: CSVMapping.Override(cfg.Columns)}, nil
	case KindXLSX:
		if cfg.Path == "" {
			return nil, errors.ConfigError("XLSX source needs a path", "source.path")
		}
		return &XLSXSource{Path: cfg.Path, Sheet: cfg.Sheet, Mapping: CSVMapping.Override(cfg.Columns)}, nil
	case KindSnowflake:
		if db == nil {
			return nil, errors.New(errors.ErrCodeInternal, "Snowflake source needs a connection")
		}
		return &SnowflakeSource{
			DB:           db,
			Table:        sfCfg.Table,
			OrdersColumn: sfCfg.OrdersColumn,
			Mapping:      SnowflakeMapping.Override(cfg.Columns),
			Logger:       logger,
		}, nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("Unknown source kind %q", cfg.Kind), "source.kind")
	}
}
