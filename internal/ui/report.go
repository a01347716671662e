package ui

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"orderdash/internal/orders"
	"orderdash/internal/pipeline"
	"orderdash/pkg/models"
)

const barWidth = 30

// ReportOptions controls which sections RenderReport prints.
type ReportOptions struct {
	MaxRows int // 0 prints every row
	Daily   bool
	Density bool
}

// RenderReport prints the summary block, the warehouse totals and the data
// table for one filtered view.
func RenderReport(w io.Writer, res pipeline.Result, opts ReportOptions) {
	RenderSummary(w, res.Spec, res.Summary)

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.Bold).Sprint("Orders by warehouse"))
	RenderWarehouseTotals(w, res.Warehouses)

	if opts.Daily {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.New(color.Bold).Sprint("Orders per day"))
		RenderDailyTotals(w, res.Daily)
	}
	if opts.Density {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.New(color.Bold).Sprint("Order density"))
		RenderDensity(w, res.Daily)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.Bold).Sprint("Orders"))
	RenderOrders(w, res.Rows, opts.MaxRows)
}

// RenderSummary prints the applied filter and the headline statistics.
func RenderSummary(w io.Writer, spec models.FilterSpec, summary models.Summary) {
	label := color.New(color.Faint).SprintFunc()
	value := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s to %s\n", label("Date range:"),
		spec.StartDate.Format(models.DateLayout), spec.EndDate.Format(models.DateLayout))
	warehouses := strings.Join(spec.Warehouses, ", ")
	if warehouses == "" {
		warehouses = "(none)"
	}
	fmt.Fprintf(w, "%s %s\n", label("Warehouses:"), warehouses)
	fmt.Fprintf(w, "%s %s\n", label("Total Orders:"), value(summary.TotalOrders))
	fmt.Fprintf(w, "%s %s\n", label("Avg Orders per Day:"), value(summary.AvgOrdersPerDay))
}

// RenderOrders prints rows in display order. Rows synthesized for missing
// (date, warehouse) pairs are dimmed.
func RenderOrders(w io.Writer, rows []models.OrderRecord, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Trade Name", "Warehouse", "Orders"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})

	sorted := orders.SortForDisplay(rows)
	shown := sorted
	if limit > 0 && len(sorted) > limit {
		shown = sorted[:limit]
	}

	for _, row := range shown {
		cells := []string{
			row.DateKey(),
			row.TradeNameString(),
			row.WarehouseID,
			strconv.FormatInt(row.NumOrders, 10),
		}
		if row.Synthesized {
			for i := range cells {
				cells[i] = ColorDim(cells[i])
			}
		}
		table.Append(cells)
	}
	table.Render()

	if hidden := len(sorted) - len(shown); hidden > 0 {
		fmt.Fprintln(w, ColorDim(fmt.Sprintf("... %d more rows (use --limit 0 or export to see all)", hidden)))
	}
}

// RenderWarehouseTotals prints per-warehouse totals with a proportional bar.
func RenderWarehouseTotals(w io.Writer, totals []orders.WarehouseTotal) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Warehouse", "Orders", "Share", ""})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, t := range totals {
		bar := strings.Repeat("█", int(t.Share*barWidth+0.5))
		table.Append([]string{
			t.WarehouseID,
			strconv.FormatInt(t.NumOrders, 10),
			fmt.Sprintf("%.1f%%", t.Share*100),
			ColorInfo(bar),
		})
	}
	table.Render()
}

// RenderDailyTotals prints the per-date series for every warehouse.
func RenderDailyTotals(w io.Writer, daily []orders.DailyTotal) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Warehouse", "Orders"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, d := range daily {
		table.Append([]string{d.Day, d.WarehouseID, strconv.FormatInt(d.NumOrders, 10)})
	}
	table.Render()
}

// RenderDensity prints a date by warehouse grid of order counts; zero cells
// are dimmed so gaps in activity stand out.
func RenderDensity(w io.Writer, daily []orders.DailyTotal) {
	var dates, warehouses []string
	seenDate := make(map[string]bool)
	seenWarehouse := make(map[string]bool)
	counts := make(map[string]int64)
	for _, d := range daily {
		if !seenDate[d.Day] {
			seenDate[d.Day] = true
			dates = append(dates, d.Day)
		}
		if !seenWarehouse[d.WarehouseID] {
			seenWarehouse[d.WarehouseID] = true
			warehouses = append(warehouses, d.WarehouseID)
		}
		counts[d.Day+"\x00"+d.WarehouseID] += d.NumOrders
	}
	// daily is sorted by date then warehouse, so dates are already ordered
	sort.Strings(warehouses)

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Date"}, warehouses...))
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, day := range dates {
		row := make([]string, 0, len(warehouses)+1)
		row = append(row, day)
		for _, wh := range warehouses {
			n := counts[day+"\x00"+wh]
			cell := strconv.FormatInt(n, 10)
			if n == 0 {
				cell = ColorDim(cell)
			}
			row = append(row, cell)
		}
		table.Append(row)
	}
	table.Render()
}
