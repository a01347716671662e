package orders

import (
	"sort"
	"time"

	"orderdash/pkg/models"
)

// Summarize totals the orders of a filtered view and reports the mean of the
// per-date totals rounded up. An empty view summarizes to zeros.
func Summarize(filtered []models.OrderRecord) models.Summary {
	var total int64
	days := make(map[string]struct{})
	for _, rec := range filtered {
		total += rec.NumOrders
		days[rec.DateKey()] = struct{}{}
	}

	if len(days) == 0 {
		return models.Summary{}
	}

	n := int64(len(days))
	return models.Summary{
		TotalOrders:     total,
		AvgOrdersPerDay: ceilDiv(total, n),
	}
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// DailyTotal is the order count of one warehouse on one date.
type DailyTotal struct {
	Date        time.Time `json:"-"`
	Day         string    `json:"date"`
	WarehouseID string    `json:"warehouse_id"`
	NumOrders   int64     `json:"num_orders"`
}

// DailyTotals sums orders per (date, warehouse), sorted by date then warehouse.
// It backs the time series and the density heatmap.
func DailyTotals(filtered []models.OrderRecord) []DailyTotal {
	index := make(map[pairKey]int)
	var out []DailyTotal
	for _, rec := range filtered {
		key := pairKey{date: rec.DateKey(), warehouse: rec.WarehouseID}
		if i, ok := index[key]; ok {
			out[i].NumOrders += rec.NumOrders
			continue
		}
		index[key] = len(out)
		out = append(out, DailyTotal{
			Date:        models.Day(rec.OrderDate),
			Day:         key.date,
			WarehouseID: rec.WarehouseID,
			NumOrders:   rec.NumOrders,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out
}

// WarehouseTotal is a warehouse's order count and its share of all orders.
type WarehouseTotal struct {
	WarehouseID string  `json:"warehouse_id"`
	NumOrders   int64   `json:"num_orders"`
	Share       float64 `json:"share"`
}

// WarehouseTotals sums orders per warehouse, sorted by warehouse id.
// Share is the fraction of the grand total and is 0 when nothing was ordered.
func WarehouseTotals(filtered []models.OrderRecord) []WarehouseTotal {
	sums := make(map[string]int64)
	var grand int64
	for _, rec := range filtered {
		sums[rec.WarehouseID] += rec.NumOrders
		grand += rec.NumOrders
	}

	out := make([]WarehouseTotal, 0, len(sums))
	for w, n := range sums {
		wt := WarehouseTotal{WarehouseID: w, NumOrders: n}
		if grand > 0 {
			wt.Share = float64(n) / float64(grand)
		}
		out = append(out, wt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out
}

// SortForDisplay returns a copy of rows ordered by date, then warehouse, then
// trade name. Row order from Complete and Filter carries no meaning.
func SortForDisplay(rows []models.OrderRecord) []models.OrderRecord {
	out := make([]models.OrderRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.Before(b.OrderDate)
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.TradeNameString() < b.TradeNameString()
	})
	return out
}

// Warehouses lists the distinct non-sentinel warehouses of table, sorted.
// This is the default warehouse selection.
func Warehouses(table []models.OrderRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range table {
		if rec.WarehouseID == "" {
			continue
		}
		if _, ok := seen[rec.WarehouseID]; ok {
			continue
		}
		seen[rec.WarehouseID] = struct{}{}
		out = append(out, rec.WarehouseID)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the earliest and latest order dates of table.
func DateRange(table []models.OrderRecord) (start, end time.Time, ok bool) {
	for i, rec := range table {
		day := models.Day(rec.OrderDate)
		if i == 0 || day.Before(start) {
			start = day
		}
		if i == 0 || day.After(end) {
			end = day
		}
	}
	return start, end, len(table) > 0
}

// DefaultSpec selects the whole date range of table and every non-sentinel warehouse.
func DefaultSpec(table []models.OrderRecord) models.FilterSpec {
	start, end, _ := DateRange(table)
	return models.NewFilterSpec(start, end, Warehouses(table))
}
