package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date layout used for keys, CSV output and flags.
const DateLayout = "2006-01-02"

// PlaceholderTradeName labels rows synthesized for missing (date, warehouse) pairs.
const PlaceholderTradeName = "None"

// OrderRecord is one row of the orders fact table.
type OrderRecord struct {
	OrderDate   time.Time
	TradeName   sql.NullString
	WarehouseID string
	NumOrders   int64
	Synthesized bool
}

// NewOrderRecord builds a record with a known trade name.
func NewOrderRecord(date time.Time, tradeName, warehouse string, numOrders int64) OrderRecord {
	return OrderRecord{
		OrderDate:   Day(date),
		TradeName:   sql.NullString{String: tradeName, Valid: true},
		WarehouseID: warehouse,
		NumOrders:   numOrders,
	}
}

// PlaceholderRecord builds the zero-order row for a missing (date, warehouse) pair.
func PlaceholderRecord(date time.Time, warehouse string) OrderRecord {
	rec := NewOrderRecord(date, PlaceholderTradeName, warehouse, 0)
	rec.Synthesized = true
	return rec
}

// DateKey returns the calendar date of the record as YYYY-MM-DD.
func (r OrderRecord) DateKey() string {
	return r.OrderDate.Format(DateLayout)
}

// TradeNameString returns the trade name, or "" when it is null.
func (r OrderRecord) TradeNameString() string {
	if !r.TradeName.Valid {
		return ""
	}
	return r.TradeName.String
}

// MarshalJSON writes the date as YYYY-MM-DD and a null trade name as JSON null.
func (r OrderRecord) MarshalJSON() ([]byte, error) {
	var tradeName *string
	if r.TradeName.Valid {
		name := r.TradeName.String
		tradeName = &name
	}
	return json.Marshal(struct {
		OrderDate   string  `json:"order_date"`
		TradeName   *string `json:"trade_name"`
		WarehouseID string  `json:"warehouse_id"`
		NumOrders   int64   `json:"num_orders"`
		Synthesized bool    `json:"synthesized,omitempty"`
	}{
		OrderDate:   r.DateKey(),
		TradeName:   tradeName,
		WarehouseID: r.WarehouseID,
		NumOrders:   r.NumOrders,
		Synthesized: r.Synthesized,
	})
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FilterSpec selects an inclusive date range and a set of warehouses.
// A FilterSpec is a value; callers build a new one for every request.
type FilterSpec struct {
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Warehouses []string  `json:"warehouses"`
}

// NewFilterSpec normalizes the bounds to calendar dates and copies the warehouse list.
func NewFilterSpec(start, end time.Time, warehouses []string) FilterSpec {
	ws := make([]string, len(warehouses))
	copy(ws, warehouses)
	return FilterSpec{
		StartDate:  Day(start),
		EndDate:    Day(end),
		Warehouses: ws,
	}
}

// WarehouseSet returns the selected warehouses as a lookup set.
func (f FilterSpec) WarehouseSet() map[string]struct{} {
	set := make(map[string]struct{}, len(f.Warehouses))
	for _, w := range f.Warehouses {
		set[w] = struct{}{}
	}
	return set
}

// Equal reports whether two specs select the same rows.
func (f FilterSpec) Equal(other FilterSpec) bool {
	if !f.StartDate.Equal(other.StartDate) || !f.EndDate.Equal(other.EndDate) {
		return false
	}
	a, b := f.WarehouseSet(), other.WarehouseSet()
	if len(a) != len(b) {
		return false
	}
	for w := range a {
		if _, ok := b[w]; !ok {
			return false
		}
	}
	return true
}

// Summary holds the headline statistics of a filtered view.
type Summary struct {
	TotalOrders     int64 `json:"total_orders"`
	AvgOrdersPerDay int64 `json:"avg_orders_per_day"`
}
