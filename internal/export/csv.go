// Package export renders the filtered orders view as a downloadable file and
// optionally publishes it to S3.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// DefaultFileName is the attachment name offered for the CSV download.
const DefaultFileName = "filtered_warehouse_orders.csv"

// Header is the column order of every export.
var Header = []string{"order_date", "trade_name", "warehouse_id", "num_orders"}

// WriteCSV writes rows as UTF-8 CSV with a header line. A null trade name is
// written as an empty cell.
func WriteCSV(w io.Writer, rows []models.OrderRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write CSV header")
	}

	record := make([]string, len(Header))
	for _, row := range rows {
		record[0] = row.DateKey()
		record[1] = row.TradeNameString()
		record[2] = row.WarehouseID
		record[3] = strconv.FormatInt(row.NumOrders, 10)
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to flush CSV")
	}
	return nil
}
