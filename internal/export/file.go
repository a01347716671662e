package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"orderdash/internal/common"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// Format selects the export encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", errors.ValidationError("format", s, "must be csv or xlsx")
	}
}

// ContentType returns the MIME type of the encoded file
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName swaps the extension of DefaultFileName for the format
func (f Format) FileName() string {
	return strings.TrimSuffix(DefaultFileName, ".csv") + "." + string(f)
}

// Encode renders rows in the given format
func Encode(format Format, rows []models.OrderRecord) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, rows)
	case FormatCSV:
		err = WriteCSV(&buf, rows)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes rows and writes them to path, creating parent directories.
// It returns the cleaned path that was written.
func WriteFile(path string, format Format, rows []models.OrderRecord) (string, error) {
	cleaned, err := common.PrepareOutput(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid output path").
			WithContext("path", path)
	}

	data, err := Encode(format, rows)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cleaned, data, common.FilePermissionNormal); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write export").
			WithContext("path", cleaned)
	}
	return cleaned, nil
}
