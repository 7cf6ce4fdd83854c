package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"skillgap/internal/utils"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows read from a CSV or XLSX source
type Table struct {
	Header []string
	Rows   [][]string
}

// column returns the index of the named header, matched case-insensitively
func (t Table) column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// cell returns the trimmed value at idx or "" for short rows
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ReadTable loads a table from path, choosing the reader by file extension
func ReadTable(path string) (Table, error) {
	switch utils.GetFileExtension(path) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return Table{}, err
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(f)
	case ".xlsx":
		return readXLSX(path)
	default:
		return Table{}, fmt.Errorf("unsupported table format %q (expected .csv or .xlsx)", utils.GetFileExtension(path))
	}
}

// ReadCSV reads a comma separated table with a header row
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return tableFromRecords(records)
}

func readXLSX(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return tableFromRecords(rows)
}

func tableFromRecords(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, fmt.Errorf("table is empty")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return Table{Header: header, Rows: records[1:]}, nil
}
