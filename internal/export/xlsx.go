package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

const sheetName = "orders"

// WriteXLSX writes rows to a single-sheet workbook with the same columns as
// WriteCSV. Counts are stored as numbers.
func WriteXLSX(w io.Writer, rows []models.OrderRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to name sheet")
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write header row")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to address row")
		}
		values := []interface{}{row.DateKey(), row.TradeNameString(), row.WarehouseID, row.NumOrders}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write row").
				WithContext("row", i+2)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "Failed to write workbook")
	}
	return nil
}
