// Package source loads the raw orders fact table from a Snowflake query or
// from a CSV/XLSX export.
package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// Source supplies the raw, possibly sparse, orders table.
type Source interface {
	Fetch(ctx context.Context) ([]models.OrderRecord, error)
}

// FieldMapping names the columns a source uses for each record field.
type FieldMapping struct {
	Date      string
	TradeName string // may be empty when the source carries no trade names
	Warehouse string
	NumOrders string
}

var (
	// SnowflakeMapping matches the flattened customer-orders query.
	SnowflakeMapping = FieldMapping{
		Date:      "ORDER_DATE",
		TradeName: "trade_name",
		Warehouse: "warehouse_address",
		NumOrders: "num_orders",
	}

	// CSVMapping matches the static dashboard export.
	CSVMapping = FieldMapping{
		Date:      "date",
		TradeName: "trade_name",
		Warehouse: "warehouse_name",
		NumOrders: "num_orders",
	}
)

// Override returns m with every non-empty field of cfg applied on top.
func (m FieldMapping) Override(cfg models.ColumnConfig) FieldMapping {
	if cfg.Date != "" {
		m.Date = cfg.Date
	}
	if cfg.TradeName != "" {
		m.TradeName = cfg.TradeName
	}
	if cfg.Warehouse != "" {
		m.Warehouse = cfg.Warehouse
	}
	if cfg.NumOrders != "" {
		m.NumOrders = cfg.NumOrders
	}
	return m
}

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006/01/02",
	"01/02/2006",
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.Day(t), nil
		}
	}
	return time.Time{}, strconv.ErrSyntax
}

// parseCount accepts a non-negative integer, tolerating an integral float
// rendering such as "5.0" that spreadsheet exports produce.
func parseCount(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, strconv.ErrSyntax
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// rowParser turns header-addressed string rows into records.
type rowParser struct {
	mapping   FieldMapping
	dateIdx   int
	tradeIdx  int
	whIdx     int
	ordersIdx int
}

func newRowParser(header []string, mapping FieldMapping) (*rowParser, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[strings.ToLower(name)] = i
	}

	lookup := func(column string, required bool) (int, error) {
		if column == "" {
			return -1, nil
		}
		i, ok := index[strings.ToLower(column)]
		if !ok {
			if !required {
				return -1, nil
			}
			return 0, errors.New(errors.ErrCodeMissingColumn, "Source is missing a required column").
				WithContext("column", column).
				WithSuggestions("Map the column name under source.columns in config.yaml")
		}
		return i, nil
	}

	p := &rowParser{mapping: mapping}
	var err error
	if p.dateIdx, err = lookup(mapping.Date, true); err != nil {
		return nil, err
	}
	if p.tradeIdx, err = lookup(mapping.TradeName, false); err != nil {
		return nil, err
	}
	if p.whIdx, err = lookup(mapping.Warehouse, true); err != nil {
		return nil, err
	}
	if p.ordersIdx, err = lookup(mapping.NumOrders, true); err != nil {
		return nil, err
	}
	return p, nil
}

// parse converts one data row; line is the 1-based source line for errors.
func (p *rowParser) parse(row []string, line int) (models.OrderRecord, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	date, err := parseDate(cell(p.dateIdx))
	if err != nil {
		return models.OrderRecord{}, errors.ValidationError(p.mapping.Date, cell(p.dateIdx), "not a date").
			WithContext("line", line)
	}

	count, err := parseCount(cell(p.ordersIdx))
	if err != nil {
		return models.OrderRecord{}, errors.ValidationError(p.mapping.NumOrders, cell(p.ordersIdx), "not a non-negative integer").
			WithContext("line", line)
	}

	rec := models.OrderRecord{
		OrderDate:   date,
		WarehouseID: strings.TrimSpace(cell(p.whIdx)),
		NumOrders:   count,
	}
	if p.tradeIdx < 0 {
		// no trade-name column: the label is unknown, not null
		rec.TradeName.Valid = true
	} else if name := strings.TrimSpace(cell(p.tradeIdx)); name != "" {
		rec.TradeName.String = name
		rec.TradeName.Valid = true
	}
	return rec, nil
}
