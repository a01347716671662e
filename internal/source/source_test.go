package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"orderdash/internal/snowflake"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

func TestParseCSV(t *testing.T) {
	input := "\ufeffdate,trade_name,warehouse_name,num_orders\n" +
		"2024-01-01,Acme,A,5\n" +
		"2024-01-02,,B,3\n" +
		"\n" +
		"2024-01-03,Initech,,0\n"

	records, err := ParseCSV(strings.NewReader(input), CSVMapping)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "2024-01-01", records[0].DateKey())
	assert.Equal(t, "Acme", records[0].TradeNameString())
	assert.Equal(t, "A", records[0].WarehouseID)
	assert.Equal(t, int64(5), records[0].NumOrders)

	assert.False(t, records[1].TradeName.Valid, "empty trade name cell is null")
	assert.Equal(t, "", records[2].WarehouseID)
}

func TestParseCSVWithoutTradeNameColumn(t *testing.T) {
	input := "date,warehouse_name,num_orders\n2024-01-01,A,5\n"

	records, err := ParseCSV(strings.NewReader(input), CSVMapping)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].TradeName.Valid)
	assert.Equal(t, "", records[0].TradeName.String)
}

func TestParseCSVColumnOverride(t *testing.T) {
	input := "Day,Site,Orders\n01/15/2024,North,7\n"
	mapping := CSVMapping.Override(models.ColumnConfig{Date: "Day", Warehouse: "Site", NumOrders: "Orders"})

	records, err := ParseCSV(strings.NewReader(input), mapping)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-15", records[0].DateKey())
	assert.Equal(t, "North", records[0].WarehouseID)
}

func TestParseCSVValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.ErrorCode
		field string
	}{
		{
			name:  "non numeric orders",
			input: "date,warehouse_name,num_orders\n2024-01-01,A,five\n",
			code:  errors.ErrCodeValidationFailed,
			field: "num_orders",
		},
		{
			name:  "negative orders",
			input: "date,warehouse_name,num_orders\n2024-01-01,A,-2\n",
			code:  errors.ErrCodeValidationFailed,
			field: "num_orders",
		},
		{
			name:  "fractional orders",
			input: "date,warehouse_name,num_orders\n2024-01-01,A,2.5\n",
			code:  errors.ErrCodeValidationFailed,
			field: "num_orders",
		},
		{
			name:  "empty orders",
			input: "date,warehouse_name,num_orders\n2024-01-01,A,\n",
			code:  errors.ErrCodeValidationFailed,
			field: "num_orders",
		},
		{
			name:  "bad date",
			input: "date,warehouse_name,num_orders\nyesterday,A,1\n",
			code:  errors.ErrCodeValidationFailed,
			field: "date",
		},
		{
			name:  "missing column",
			input: "date,warehouse,num_orders\n2024-01-01,A,1\n",
			code:  errors.ErrCodeMissingColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input), CSVMapping)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))

			if tt.field != "" {
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.field, appErr.Context["field"])
				assert.Equal(t, 2, appErr.Context["line"])
			}
		})
	}
}

func TestParseCSVAcceptsIntegralFloats(t *testing.T) {
	records, err := ParseCSV(strings.NewReader("date,warehouse_name,num_orders\n2024-01-01,A,4.0\n"), CSVMapping)
	require.NoError(t, err)
	assert.Equal(t, int64(4), records[0].NumOrders)
}

func TestParseCSVEmpty(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(""), CSVMapping)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,warehouse_name,num_orders\n2024-01-01,A,5\n"), 0600))

	src := &CSVSource{Path: path, Mapping: CSVMapping}
	records, err := src.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv"), Mapping: CSVMapping}

	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetErrorCode(err))
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXSourceFetch(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"date", "trade_name", "warehouse_name", "num_orders"},
		{"2024-01-01", "Acme", "A", 5},
		{"2024-01-02", "Globex", "B", 3},
	})

	src := &XLSXSource{Path: path, Mapping: CSVMapping}
	records, err := src.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Globex", records[1].TradeNameString())
	assert.Equal(t, int64(3), records[1].NumOrders)
}

func TestXLSXSourceUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{{"date", "warehouse_name", "num_orders"}})

	src := &XLSXSource{Path: path, Sheet: "Nope", Mapping: CSVMapping}
	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSourceFormat, errors.GetErrorCode(err))
}

func TestBuildQuery(t *testing.T) {
	query, err := BuildQuery("SALES.PUBLIC.CUSTOMER_ORDERS_2024", "CUSTOMER_ORDERS", SnowflakeMapping)
	require.NoError(t, err)

	assert.Contains(t, query, "FROM SALES.PUBLIC.CUSTOMER_ORDERS_2024 t")
	assert.Contains(t, query, "LATERAL FLATTEN(input => t.CUSTOMER_ORDERS) o")
	assert.Contains(t, query, "o.value:warehouse_address::STRING AS warehouse_address")

	_, err = BuildQuery("orders; DROP TABLE x", "CUSTOMER_ORDERS", SnowflakeMapping)
	assert.Error(t, err)
}

func newMockSource(t *testing.T) (*SnowflakeSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := snowflake.NewServiceWithDB(db, snowflake.Config{Timeout: 5 * time.Second}, nil)
	return &SnowflakeSource{
		DB:           svc,
		Table:        "CUSTOMER_ORDERS_2024",
		OrdersColumn: "CUSTOMER_ORDERS",
		Mapping:      SnowflakeMapping,
	}, mock
}

func TestSnowflakeSourceFetch(t *testing.T) {
	src, mock := newMockSource(t)
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"ORDER_DATE", "trade_name", "warehouse_address", "num_orders"}).
		AddRow(d1, "Acme", "A", "5").
		AddRow(d2, nil, "B", "3").
		AddRow(d2, "Initech", nil, "1")
	mock.ExpectQuery("LATERAL FLATTEN").WillReturnRows(rows)

	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.NewOrderRecord(d1, "Acme", "A", 5), records[0])
	assert.False(t, records[1].TradeName.Valid)
	assert.Equal(t, "", records[2].WarehouseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnowflakeSourceRejectsBadCount(t *testing.T) {
	src, mock := newMockSource(t)
	rows := sqlmock.NewRows([]string{"ORDER_DATE", "trade_name", "warehouse_address", "num_orders"}).
		AddRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "Acme", "A", "many")
	mock.ExpectQuery("LATERAL FLATTEN").WillReturnRows(rows)

	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
}

func TestSnowflakeSourceQueryFailure(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("LATERAL FLATTEN").WillReturnError(fmt.Errorf("warehouse suspended"))

	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSourceUnavailable, errors.GetErrorCode(err))
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     models.Source
		db      Querier
		want    interface{}
		wantErr bool
	}{
		{name: "csv", cfg: models.Source{Kind: "csv", Path: "orders.csv"}, want: &CSVSource{}},
		{name: "inferred xlsx", cfg: models.Source{Path: "orders.xlsx"}, want: &XLSXSource{}},
		{name: "snowflake", cfg: models.Source{Kind: "snowflake"}, db: snowflake.NewService(snowflake.Config{}, nil), want: &SnowflakeSource{}},
		{name: "snowflake without db", cfg: models.Source{Kind: "snowflake"}, wantErr: true},
		{name: "csv without path", cfg: models.Source{Kind: "csv"}, wantErr: true},
		{name: "unknown", cfg: models.Source{Kind: "parquet"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg, models.Snowflake{}, tt.db, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}
}
