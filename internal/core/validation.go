package core

// validation.go cross-checks a Snapshot before anything is rendered.
//
// The result is recomputed from scratch on every call; nothing is patched
// incrementally. Each rule writes at most one entry per key, so when a text
// field references several unknown columns only the last one is reported.

import (
	"fmt"
	"sort"
	"strings"
)

// Stable diagnostic keys. Per-field keys are built with TextFieldKey and
// ImageFieldKey.
const (
	KeyTemplateImage   = "templateImage"
	KeyCSVData         = "csvData"
	KeyPhotoUpload     = "photoUpload"
	KeyFilenamePattern = "filenamePattern"
)

// ValidationError is one advisory diagnostic.
type ValidationError struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrorSet maps a diagnostic key to its error. An empty set means
// generation may proceed.
type ValidationErrorSet map[string]ValidationError

// Empty reports whether the set has no entries.
func (s ValidationErrorSet) Empty() bool {
	return len(s) == 0
}

// Keys returns the diagnostic keys in sorted order.
func (s ValidationErrorSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err returns a *ConfigurationError carrying the set, or nil when empty.
func (s ValidationErrorSet) Err() error {
	if s.Empty() {
		return nil
	}
	return &ConfigurationError{Errors: s}
}

// TextFieldKey is the diagnostic key of a text field's content.
func TextFieldKey(id int64) string {
	return fmt.Sprintf("textField_%d_content", id)
}

// ImageFieldKey is the diagnostic key of an image field's link column.
func ImageFieldKey(id int64) string {
	return fmt.Sprintf("imageField_%d_linkColumn", id)
}

// Validate computes the full diagnostic set for s.
func Validate(s Snapshot) ValidationErrorSet {
	errs := ValidationErrorSet{}

	if s.Template == nil {
		errs[KeyTemplateImage] = ValidationError{
			Message:    "No template image has been loaded.",
			Suggestion: "Load a JPG or PNG file to use as the background.",
		}
	}

	headers := s.Dataset.Headers
	switch {
	case !s.DataLoaded:
		errs[KeyCSVData] = ValidationError{
			Message:    "No data has been loaded.",
			Suggestion: "Load a CSV or Excel (.xlsx) file with one row per credential.",
		}
	case len(headers) == 0:
		errs[KeyCSVData] = ValidationError{
			Message:    "The file has no valid header row.",
			Suggestion: "Make sure the first row of the sheet holds the column names.",
		}
	default:
		if lines := MismatchedRows(s.Dataset); len(lines) > 0 {
			errs[KeyCSVData] = ValidationError{
				Message:    fmt.Sprintf("Rows %s have a different number of columns.", joinInts(lines)),
				Suggestion: "Check these rows have the same number of columns as the header.",
			}
		}

		for _, f := range s.Layout.TextFields {
			checkPlaceholders(errs, TextFieldKey(f.ID), f.Content, headers)
		}
		checkPlaceholders(errs, KeyFilenamePattern, s.Layout.FilenamePattern, headers)
	}

	if len(s.Layout.ImageFields) > 0 && s.Photos.Len() == 0 {
		errs[KeyPhotoUpload] = ValidationError{
			Message:    "Image fields are defined but no photos have been loaded.",
			Suggestion: "Load the image files named after the identifiers in your data.",
		}
	}

	if s.DataLoaded && len(headers) > 0 {
		for _, f := range s.Layout.ImageFields {
			key := ImageFieldKey(f.ID)
			switch {
			case f.LinkColumn == "":
				errs[key] = ValidationError{
					Message:    "No column has been linked.",
					Suggestion: "Pick the column that holds the photo identifiers.",
				}
			case !HasHeader(headers, f.LinkColumn):
				errs[key] = ValidationError{
					Message: fmt.Sprintf("Column '%s' does not exist in the headers.", f.LinkColumn),
					Suggestion: fmt.Sprintf("Available headers: %s. Check the selected column matches one of them.",
						strings.Join(headers, ", ")),
				}
			}
		}
	}

	return errs
}

func checkPlaceholders(errs ValidationErrorSet, key, text string, headers []string) {
	for _, name := range ExtractPlaceholders(text) {
		if HasHeader(headers, name) {
			continue
		}
		errs[key] = ValidationError{
			Message: fmt.Sprintf("Placeholder '{{%s}}' does not exist in the headers.", name),
			Suggestion: fmt.Sprintf("Available headers: %s. Names are matched without regard to case.",
				strings.Join(headers, ", ")),
		}
	}
}
