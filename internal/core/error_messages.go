package core

// # Error Codes Reference
//
// Every error surfaced to an operator maps to a message with a code that can
// be quoted when reporting a problem.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Configuration invalid: the validation set is not empty
//	         Action: Fix the listed problems, then generate again
//	         Matches: *ConfigurationError
//
//	CFG002 - No data rows: the data source has a header but no rows
//	         Action: Add at least one data row below the header
//	         Matches: ErrNoRows, "no data rows"
//
// # Image Errors (IMG001-IMG099)
//
//	IMG001 - Template unreadable: the template image could not be decoded
//	         Action: Export the template again as PNG or JPEG
//	         Matches: *ResourceError with Resource "template"
//
//	IMG002 - Photo unreadable: a photo could not be decoded
//	         Action: Replace the photo file named in the details
//	         Matches: *ResourceError with Resource "photo"
//
//	IMG003 - Unsupported image: the image format is not recognized
//	         Action: Use PNG, JPEG, GIF, WebP, BMP or TIFF
//	         Matches: "unknown format", "not an image"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Read failed: a source could not be read or written
//	          Action: Check that the path exists and is readable
//	          Matches: *IOError
//
//	FILE002 - Empty file: the source had no content
//	          Action: Choose a file with data
//	          Matches: "empty file"
//
//	FILE003 - Encoding error: the file contains invalid characters
//	          Action: Save the file as UTF-8
//	          Matches: "encoding error"
//
//	FILE004 - File too large: the upload exceeds the size limit
//	          Action: Split the data into smaller files
//	          Matches: "file too large", "request body too large"
//
// # Layout Errors (LAY001-LAY099)
//
//	LAY001 - Invalid layout: the document lacks textFields, imageFields or filenamePattern
//	         Action: Import a file exported by this tool
//	         Matches: "invalid layout document"
//
//	LAY002 - Layout not found: no saved layout with that name
//	         Action: Save a layout first or check its name
//	         Matches: "layout not found"
//
//	LAY003 - Field not found: the edited field was removed
//	         Action: Reload the page
//	         Matches: "field not found"
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - Batch cancelled
//	         Matches: context.Canceled, "context canceled"
//
//	BAT002 - Batch timed out
//	         Matches: context.DeadlineExceeded, "deadline exceeded"
//
//	BAT003 - Busy: another batch is running
//	         Matches: "too many batches"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the logs for the technical error
//
// Typed errors are checked first with errors.As, so wrapping keeps the code.
// Text patterns are matched case-insensitively with strings.Contains and the
// first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgConfigInvalid = UserMessage{
		Message: "The credential configuration has problems",
		Action:  "Fix the listed problems, then generate again",
		Code:    "CFG001",
	}
	msgNoRows = UserMessage{
		Message: "The data source has no data rows",
		Action:  "Add at least one data row below the header",
		Code:    "CFG002",
	}
	msgTemplateUnreadable = UserMessage{
		Message: "The template image could not be read",
		Action:  "Export the template again as PNG or JPEG",
		Code:    "IMG001",
	}
	msgPhotoUnreadable = UserMessage{
		Message: "A photo could not be read",
		Action:  "Replace the photo file named in the details",
		Code:    "IMG002",
	}
	msgReadFailed = UserMessage{
		Message: "A file could not be read or written",
		Action:  "Check that the path exists and is accessible",
		Code:    "FILE001",
	}
	msgCancelled = UserMessage{
		Message: "Generation was cancelled",
		Action:  "Start again when ready",
		Code:    "BAT001",
	}
	msgTimedOut = UserMessage{
		Message: "Generation timed out",
		Action:  "Raise BATCH_TIMEOUT or generate fewer rows",
		Code:    "BAT002",
	}
)

// errorPatterns covers untyped errors, typically from libraries or from
// text that crossed a process boundary. Order matters.
var errorPatterns = []errorPattern{
	{pattern: "no data rows", msg: msgNoRows},
	{
		pattern: "unknown format",
		msg: UserMessage{
			Message: "The image format is not supported",
			Action:  "Use PNG, JPEG, GIF, WebP, BMP or TIFF",
			Code:    "IMG003",
		},
	},
	{
		pattern: "not an image",
		msg: UserMessage{
			Message: "The file is not an image",
			Action:  "Use PNG, JPEG, GIF, WebP, BMP or TIFF",
			Code:    "IMG003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Choose a file with data",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "The file contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the data into smaller files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the data into smaller files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid layout document",
		msg: UserMessage{
			Message: "The layout file is not valid",
			Action:  "Import a file exported by this tool",
			Code:    "LAY001",
		},
	},
	{
		pattern: "layout not found",
		msg: UserMessage{
			Message: "No saved layout with that name",
			Action:  "Save a layout first or check its name",
			Code:    "LAY002",
		},
	},
	{
		pattern: "field not found",
		msg: UserMessage{
			Message: "The field does not exist",
			Action:  "Reload the page",
			Code:    "LAY003",
		},
	},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "deadline exceeded", msg: msgTimedOut},
	{
		pattern: "too many batches",
		msg: UserMessage{
			Message: "Another batch is already running",
			Action:  "Wait for it to finish and try again",
			Code:    "BAT003",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are recognized anywhere in the wrap chain; everything else
// falls back to case-insensitive pattern matching and finally ERR000.
//
// Example:
//
//	err := &ResourceError{Resource: "photo", Key: "7", Err: image.ErrFormat}
//	msg := MapError(fmt.Errorf("row 3: %w", err))
//	// msg.Code == "IMG002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var cfgErr *ConfigurationError
	var resErr *ResourceError
	var ioErr *IOError
	switch {
	case errors.As(err, &cfgErr):
		return msgConfigInvalid
	case errors.As(err, &resErr):
		if resErr.Resource == "template" {
			return msgTemplateUnreadable
		}
		return msgPhotoUnreadable
	case errors.Is(err, ErrNoRows):
		return msgNoRows
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut
	case errors.As(err, &ioErr):
		return msgReadFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
