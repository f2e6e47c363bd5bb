package core

// tabular.go turns raw delimited text into a Dataset.
//
// The dialect is deliberately small: lines split on any of \r\n, \r, \n;
// cells split on every comma. A pair of surrounding double quotes is
// stripped from a cell, but a comma inside quotes still splits the line.

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

var lineBreak = regexp.MustCompile(`\r\n?|\n`)

const bom = "\uFEFF"

// ParseTabular parses delimited text. The first non-blank line becomes the
// lower-cased header row; the rest become data rows with their casing kept.
// Blank input yields an empty dataset with non-nil slices.
func ParseTabular(text string) Dataset {
	text = strings.TrimFunc(text, isBlankRune)

	var lines []string
	if text != "" {
		for _, line := range lineBreak.Split(text, -1) {
			if strings.TrimFunc(line, isBlankRune) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Dataset{Headers: []string{}, Rows: [][]string{}}
	}

	headers := splitCells(strings.TrimPrefix(lines[0], bom))
	for i := range headers {
		headers[i] = strings.ToLower(headers[i])
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, splitCells(line))
	}

	return Dataset{Headers: headers, Rows: rows}
}

// IsBlank reports whether text has no content besides whitespace and BOMs.
func IsBlank(text string) bool {
	return strings.TrimFunc(text, isBlankRune) == ""
}

// ReadTabularText reads a delimited text source, decoding stray
// Windows-1252 bytes on the way.
func ReadTabularText(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(NewTextReader(r))
	if err != nil {
		return "", &IOError{Op: "read data", Path: name, Err: err}
	}
	return string(data), nil
}

// ReadTabular reads and parses a delimited text source.
func ReadTabular(r io.Reader, name string) (Dataset, error) {
	text, err := ReadTabularText(r, name)
	if err != nil {
		return Dataset{}, err
	}
	return ParseTabular(text), nil
}

// CleanCell trims a cell and strips one pair of surrounding double quotes.
func CleanCell(cell string) string {
	v := strings.TrimFunc(cell, isBlankRune)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}
	return strings.TrimFunc(v, isBlankRune)
}

// RowLineNumber returns the line a data row came from, counting the header
// as line 1.
func RowLineNumber(rowIndex int) int {
	return rowIndex + 2
}

// MismatchedRows returns the line numbers of rows whose cell count differs
// from the header count.
func MismatchedRows(d Dataset) []int {
	var lines []int
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			lines = append(lines, RowLineNumber(i))
		}
	}
	return lines
}

func splitCells(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = CleanCell(p)
	}
	return parts
}

func isBlankRune(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
