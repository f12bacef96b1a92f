// Package catalog reads the product catalog spreadsheet that drives a run.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrCatalogUnreadable is returned when the catalog file is missing or
	// cannot be parsed.
	ErrCatalogUnreadable = errors.New("catalog unreadable")
	// ErrMissingColumn is returned when no header row holds both the license
	// and the name column.
	ErrMissingColumn = errors.New("catalog column missing")
)

// RowError reports a data row with an empty required field. Row is the
// 1-based row number as shown by spreadsheet software.
type RowError struct {
	Row    int
	Column string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("catalog row %d: empty %s", e.Row, e.Column)
}

// Entry is one catalog row.
type Entry struct {
	License string
	Name    string
	Code    string
	Row     int
}

// Columns names the header cells holding each field.
type Columns struct {
	License string `yaml:"license" json:"license"`
	Name    string `yaml:"name" json:"name"`
	Code    string `yaml:"code" json:"code"`
}

// DefaultColumns matches the hospital formulary export.
func DefaultColumns() Columns {
	return Columns{License: "許可證字號", Name: "藥名", Code: "院內代碼"}
}

// Options controls how Load reads a catalog.
type Options struct {
	Columns Columns
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// Encoding applies to CSV input: "utf-8" (default) or "big5".
	Encoding string
}

// headerScanRows bounds the search for the header row, allowing title rows
// above it.
const headerScanRows = 10

// Load reads every entry of the catalog at path in row order. The format is
// chosen by extension: .xlsx/.xlsm or .csv.
func Load(path string, opts Options) ([]Entry, error) {
	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns()
	}
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, opts.Sheet)
	case ".csv":
		rows, err = readCSV(path, opts.Encoding)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrCatalogUnreadable, ext)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows, opts.Columns)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnreadable, err)
	}
	defer func() { _ = f.Close() }()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrCatalogUnreadable)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrCatalogUnreadable, sheet, err)
	}
	return rows, nil
}

func readCSV(path, encoding string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnreadable, err)
	}
	defer f.Close()

	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		r = transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case "big5":
		r = transform.NewReader(f, traditionalchinese.Big5.NewDecoder())
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrCatalogUnreadable, encoding)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnreadable, err)
	}
	return rows, nil
}

func parseRows(rows [][]string, cols Columns) ([]Entry, error) {
	header, idx, err := findHeader(rows, cols)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		e := Entry{
			License: cell(row, idx[0]),
			Name:    cell(row, idx[1]),
			Code:    cell(row, idx[2]),
			Row:     i + 1,
		}
		if e.License == "" {
			return nil, &RowError{Row: e.Row, Column: cols.License}
		}
		if e.Name == "" {
			return nil, &RowError{Row: e.Row, Column: cols.Name}
		}
		out = append(out, e)
	}
	return out, nil
}

// findHeader returns the header row index and the column index of each of
// license, name, and code. The code column is optional and reported as -1
// when absent.
func findHeader(rows [][]string, cols Columns) (int, [3]int, error) {
	want := [3]string{cols.License, cols.Name, cols.Code}
	var missing []string
	firstHeader := true
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if blank(rows[i]) {
			continue
		}
		idx := [3]int{-1, -1, -1}
		for j, c := range rows[i] {
			c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
			for k, w := range want {
				if idx[k] < 0 && c == w {
					idx[k] = j
				}
			}
		}
		if idx[0] >= 0 && idx[1] >= 0 {
			return i, idx, nil
		}
		if firstHeader {
			for k, w := range want[:2] {
				if idx[k] < 0 {
					missing = append(missing, w)
				}
			}
			firstHeader = false
		}
	}
	if firstHeader {
		return 0, [3]int{}, fmt.Errorf("%w: catalog has no header row", ErrMissingColumn)
	}
	return 0, [3]int{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Duplicates lists licenses that occur more than once, in first-seen order.
func Duplicates(entries []Entry) []string {
	seen := make(map[string]int, len(entries))
	var dups []string
	for _, e := range entries {
		seen[e.License]++
		if seen[e.License] == 2 {
			dups = append(dups, e.License)
		}
	}
	return dups
}
