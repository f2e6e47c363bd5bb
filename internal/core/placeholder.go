package core

import (
	"regexp"
	"strings"
	"sync"
)

// placeholderToken matches {{name}} tokens for extraction. The name is any
// run of characters other than '}' and whitespace.
var placeholderToken = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// headerPatterns caches the compiled token pattern of each header.
var headerPatterns sync.Map // string -> *regexp.Regexp

func headerPattern(header string) *regexp.Regexp {
	if re, ok := headerPatterns.Load(header); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)\{\{\s*` + regexp.QuoteMeta(header) + `\s*\}\}`)
	actual, _ := headerPatterns.LoadOrStore(header, re)
	return actual.(*regexp.Regexp)
}

// Resolve substitutes every {{header}} token of template with the matching
// cell of row. Matching is case-insensitive and tolerates whitespace inside
// the braces. Cells missing from a short row resolve to "". Tokens naming
// unknown headers are left verbatim. A nil row returns template unchanged.
func Resolve(template string, headers, row []string) string {
	if row == nil {
		return template
	}

	result := template
	for i, header := range headers {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		result = headerPattern(header).ReplaceAllLiteralString(result, value)
	}
	return result
}

// ExtractPlaceholders returns the token names found in text, as written
// (not lower-cased), in order of first appearance.
func ExtractPlaceholders(text string) []string {
	matches := placeholderToken.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// HasHeader reports whether name matches one of the (lower-cased) headers,
// ignoring case.
func HasHeader(headers []string, name string) bool {
	return columnIndex(headers, name) >= 0
}

// LookupKey normalizes a cell value into a photo library key.
func LookupKey(cell string) string {
	return strings.ToLower(strings.TrimSpace(cell))
}
