// Package sheet converts spreadsheets into the delimited text the tabular
// parser reads.
//
// Only the first worksheet is read. Cells are written the way a spreadsheet
// CSV export writes them: comma separated, quoted when they contain a
// comma, quote or line break. Every row is padded to the widest row and
// rows with no content are dropped.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no worksheets")

var extensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// IsSpreadsheet reports whether name has a workbook extension.
func IsSpreadsheet(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// ToText reads the first worksheet of the workbook in r as delimited text.
func ToText(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if blank(row) {
			continue
		}
		record := make([]string, width)
		copy(record, row)
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("convert sheet %q: %w", sheets[0], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("convert sheet %q: %w", sheets[0], err)
	}
	return buf.String(), nil
}

// Read parses the first worksheet of r into a Dataset. name is used in
// error messages only.
func Read(r io.Reader, name string) (core.Dataset, error) {
	text, err := ToText(r)
	if err != nil {
		return core.Dataset{}, &core.IOError{Op: "read spreadsheet", Path: name, Err: err}
	}
	return core.ParseTabular(text), nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
