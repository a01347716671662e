package source

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"orderdash/internal/snowflake"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// Querier is the slice of snowflake.Service the source needs.
type Querier interface {
	Connect(ctx context.Context) error
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, context.CancelFunc, error)
}

var _ Querier = (*snowflake.Service)(nil)

// SnowflakeSource flattens a table holding one variant array of customer
// orders per order date into one row per customer order.
type SnowflakeSource struct {
	DB           Querier
	Table        string
	OrdersColumn string
	Mapping      FieldMapping
	Logger       *zap.Logger
}

// BuildQuery renders the flattening query. Every identifier is checked so
// configuration values cannot inject SQL.
func BuildQuery(table, ordersColumn string, m FieldMapping) (string, error) {
	for _, ident := range []string{table, ordersColumn, m.Date, m.TradeName, m.Warehouse, m.NumOrders} {
		if !snowflake.ValidIdentifier(ident) {
			return "", errors.ConfigError(fmt.Sprintf("Invalid Snowflake identifier %q", ident), "snowflake.table")
		}
	}

	return fmt.Sprintf(`SELECT
  t.%[3]s AS %[3]s,
  o.value:%[4]s::STRING AS %[4]s,
  o.value:%[5]s::STRING AS %[5]s,
  o.value:%[6]s::STRING AS %[6]s
FROM %[1]s t,
  LATERAL FLATTEN(input => t.%[2]s) o`,
		table, ordersColumn, m.Date, m.TradeName, m.Warehouse, m.NumOrders), nil
}

// Fetch implements Source
func (s *SnowflakeSource) Fetch(ctx context.Context) ([]models.OrderRecord, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	query, err := BuildQuery(s.Table, s.OrdersColumn, s.Mapping)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Connect(ctx); err != nil {
		return nil, errors.SourceError("Snowflake is unavailable", err)
	}

	rows, cancel, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SourceError("Orders query failed", err)
	}
	defer cancel()
	defer rows.Close()

	records := make([]models.OrderRecord, 0)
	line := 0
	for rows.Next() {
		line++
		var (
			date      sql.NullTime
			tradeName sql.NullString
			warehouse sql.NullString
			numOrders sql.NullString
		)
		if err := rows.Scan(&date, &tradeName, &warehouse, &numOrders); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultScan, "Failed to scan order row").
				WithContext("row", line)
		}

		if !date.Valid {
			return nil, errors.ValidationError(s.Mapping.Date, nil, "missing order date").
				WithContext("row", line)
		}
		count, err := parseCount(numOrders.String)
		if !numOrders.Valid || err != nil {
			return nil, errors.ValidationError(s.Mapping.NumOrders, numOrders.String, "not a non-negative integer").
				WithContext("row", line)
		}

		records = append(records, models.OrderRecord{
			OrderDate:   models.Day(date.Time),
			TradeName:   tradeName,
			WarehouseID: warehouse.String,
			NumOrders:   count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.SourceError("Orders query aborted", err)
	}

	logger.Debug("orders fetched", zap.Int("rows", len(records)))
	return records, nil
}
