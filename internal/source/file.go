package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"orderdash/internal/common"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// CSVSource reads a delimited export from disk on every Fetch.
type CSVSource struct {
	Path    string
	Mapping FieldMapping
}

// Fetch implements Source
func (s *CSVSource) Fetch(ctx context.Context) ([]models.OrderRecord, error) {
	f, err := openExport(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseCSV(f, s.Mapping)
}

// ParseCSV reads a header row followed by data rows. An empty input yields an
// empty table; a malformed row aborts the whole read.
func ParseCSV(r io.Reader, mapping FieldMapping) ([]models.OrderRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []models.OrderRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceFormat, "Failed to read CSV header")
	}

	parser, err := newRowParser(header, mapping)
	if err != nil {
		return nil, err
	}

	records := make([]models.OrderRecord, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceFormat, "Failed to read CSV row").
				WithContext("line", line)
		}
		if blankRow(row) {
			continue
		}

		rec, err := parser.parse(row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// XLSXSource reads one sheet of a spreadsheet export on every Fetch.
type XLSXSource struct {
	Path    string
	Sheet   string // first sheet when empty
	Mapping FieldMapping
}

// Fetch implements Source
func (s *XLSXSource) Fetch(ctx context.Context) ([]models.OrderRecord, error) {
	f, err := openExport(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseXLSX(f, s.Sheet, s.Mapping)
}

// ParseXLSX reads sheet (or the first sheet) using its first row as header.
func ParseXLSX(r io.Reader, sheet string, mapping FieldMapping) ([]models.OrderRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceFormat, "Failed to open xlsx")
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New(errors.ErrCodeSourceFormat, "Spreadsheet has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceFormat, "Failed to read rows from xlsx").
			WithContext("sheet", sheet)
	}
	if len(rows) == 0 {
		return []models.OrderRecord{}, nil
	}

	parser, err := newRowParser(rows[0], mapping)
	if err != nil {
		return nil, err
	}

	records := make([]models.OrderRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec, err := parser.parse(row, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func openExport(path string) (*os.File, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid source path").
			WithContext("path", path)
	}

	f, err := os.Open(cleaned) // #nosec G304 - path is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeFileNotFound, fmt.Sprintf("Source file %s not found", cleaned))
		}
		return nil, errors.SourceError("Failed to open source file", err).WithContext("path", cleaned)
	}
	return f, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
