package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRows is returned when a batch is requested for a dataset without data rows.
var ErrNoRows = errors.New("dataset has no data rows")

// ConfigurationError is returned when generation is refused because the
// validation set is non-empty.
type ConfigurationError struct {
	Errors ValidationErrorSet
}

func (e *ConfigurationError) Error() string {
	keys := e.Errors.Keys()
	if len(keys) == 1 {
		return fmt.Sprintf("configuration invalid: %s: %s", keys[0], e.Errors[keys[0]].Message)
	}
	return fmt.Sprintf("configuration invalid: %d problems (%s)", len(keys), strings.Join(keys, ", "))
}

// ResourceError reports an image that could not be decoded. Key is the
// photo key for photos and empty for the template.
type ResourceError struct {
	Resource string // "template" or "photo"
	Key      string
	Err      error
}

func (e *ResourceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("decode %s %q: %v", e.Resource, e.Key, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IOError reports a source that could not be read or a destination that
// could not be written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
