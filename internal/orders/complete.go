// Package orders implements the completion, filtering and summary steps over
// the warehouse orders fact table.
package orders

import (
	"time"

	"orderdash/pkg/models"
)

type pairKey struct {
	date      string
	warehouse string
}

// Complete returns raw followed by a zero-order placeholder row for every
// (date, warehouse) pair in dates(raw) × warehouses(raw) that raw lacks.
//
// Raw rows keep their input order and duplicates are passed through untouched.
// Placeholders are appended by first-seen date, then first-seen warehouse.
func Complete(raw []models.OrderRecord) []models.OrderRecord {
	if len(raw) == 0 {
		return []models.OrderRecord{}
	}

	var (
		dates      []time.Time
		warehouses []string
		seenDates  = make(map[string]struct{})
		seenWh     = make(map[string]struct{})
		present    = make(map[pairKey]struct{}, len(raw))
	)

	for _, rec := range raw {
		day := rec.DateKey()
		if _, ok := seenDates[day]; !ok {
			seenDates[day] = struct{}{}
			dates = append(dates, models.Day(rec.OrderDate))
		}
		if _, ok := seenWh[rec.WarehouseID]; !ok {
			seenWh[rec.WarehouseID] = struct{}{}
			warehouses = append(warehouses, rec.WarehouseID)
		}
		present[pairKey{date: day, warehouse: rec.WarehouseID}] = struct{}{}
	}

	dense := make([]models.OrderRecord, len(raw), len(dates)*len(warehouses)+len(raw)-len(present))
	copy(dense, raw)

	for _, d := range dates {
		day := d.Format(models.DateLayout)
		for _, w := range warehouses {
			if _, ok := present[pairKey{date: day, warehouse: w}]; ok {
				continue
			}
			dense = append(dense, models.PlaceholderRecord(d, w))
		}
	}

	return dense
}

// MissingPairs reports how many placeholder rows Complete would add.
func MissingPairs(raw []models.OrderRecord) int {
	dates := make(map[string]struct{})
	warehouses := make(map[string]struct{})
	present := make(map[pairKey]struct{}, len(raw))
	for _, rec := range raw {
		day := rec.DateKey()
		dates[day] = struct{}{}
		warehouses[rec.WarehouseID] = struct{}{}
		present[pairKey{date: day, warehouse: rec.WarehouseID}] = struct{}{}
	}
	return len(dates)*len(warehouses) - len(present)
}
