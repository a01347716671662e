package orders

import (
	"time"

	"orderdash/pkg/models"
)

// excludedTradeName is a legacy numeric placeholder some exports carry in the
// trade name column. Rows labelled with it never reach a filtered view.
const excludedTradeName = "0"

// Filter returns the rows of table inside spec's inclusive date range whose
// warehouse is selected. Rows on the sentinel warehouse "" and rows whose
// trade name is null or the legacy "0" placeholder are always dropped.
//
// The input is not modified. A filter whose start is after its end selects nothing.
func Filter(table []models.OrderRecord, spec models.FilterSpec) []models.OrderRecord {
	filtered := make([]models.OrderRecord, 0)
	start, end := models.Day(spec.StartDate), models.Day(spec.EndDate)
	if start.After(end) {
		return filtered
	}

	selected := spec.WarehouseSet()
	for _, rec := range table {
		if keep(rec, start, end, selected) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func keep(rec models.OrderRecord, start, end time.Time, selected map[string]struct{}) bool {
	day := models.Day(rec.OrderDate)
	if day.Before(start) || day.After(end) {
		return false
	}
	if rec.WarehouseID == "" {
		return false
	}
	if _, ok := selected[rec.WarehouseID]; !ok {
		return false
	}
	if !rec.TradeName.Valid || rec.TradeName.String == excludedTradeName {
		return false
	}
	return true
}
