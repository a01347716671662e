package testutil

import (
	"context"
	"sync"
	"time"

	"orderdash/pkg/models"
)

// OrdersCSV is a small export with one missing (date, warehouse) pair:
// warehouse B has no row on 2024-01-02.
const OrdersCSV = `date,trade_name,warehouse_name,num_orders
2024-01-01,Acme,A,5
2024-01-01,Acme,B,3
2024-01-02,Acme,A,2
`

// Day returns midnight UTC of day d in January 2024
func Day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// SampleOrders returns the rows of OrdersCSV
func SampleOrders() []models.OrderRecord {
	return []models.OrderRecord{
		models.NewOrderRecord(Day(1), "Acme", "A", 5),
		models.NewOrderRecord(Day(1), "Acme", "B", 3),
		models.NewOrderRecord(Day(2), "Acme", "A", 2),
	}
}

// MockSource is a source.Source returning fixed rows or a fixed error
type MockSource struct {
	mu    sync.Mutex
	Rows  []models.OrderRecord
	Error error
	calls int
}

// Fetch implements source.Source
func (m *MockSource) Fetch(ctx context.Context) ([]models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Rows, nil
}

// Calls returns how many times Fetch ran
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SetError changes the error returned by later fetches
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Error = err
}

// TestConfig returns a sample configuration for testing
func TestConfig() *models.Config {
	return &models.Config{
		Source: models.Source{
			Kind: "csv",
			Path: "orders.csv",
		},
		Snowflake: models.Snowflake{
			Account:      "test123.us-east-1",
			Username:     "testuser",
			Password:     "testpass",
			Role:         "TESTROLE",
			Warehouse:    "TEST_WH",
			Table:        "CUSTOMER_ORDERS_2024",
			OrdersColumn: "CUSTOMER_ORDERS",
		},
		Cache: models.Cache{
			Enabled:   true,
			RefreshAt: "08:10",
			Timezone:  "America/New_York",
		},
		Logging: models.Logging{
			Level:    "info",
			Encoding: "json",
		},
	}
}
