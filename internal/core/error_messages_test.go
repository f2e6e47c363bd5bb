package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name: "configuration error",
			err: &ConfigurationError{Errors: ValidationErrorSet{
				KeyTemplateImage: {Message: "missing"},
			}},
			wantCode:    "CFG001",
			wantMessage: "The credential configuration has problems",
		},
		{
			name:        "no rows sentinel",
			err:         fmt.Errorf("generate: %w", ErrNoRows),
			wantCode:    "CFG002",
			wantMessage: "The data source has no data rows",
		},
		{
			name:        "template decode failure",
			err:         &ResourceError{Resource: "template", Err: image.ErrFormat},
			wantCode:    "IMG001",
			wantMessage: "The template image could not be read",
		},
		{
			name:        "wrapped photo decode failure",
			err:         fmt.Errorf("row 4: %w", &ResourceError{Resource: "photo", Key: "7", Err: image.ErrFormat}),
			wantCode:    "IMG002",
			wantMessage: "A photo could not be read",
		},
		{
			name:        "bare image format error",
			err:         image.ErrFormat,
			wantCode:    "IMG003",
			wantMessage: "The image format is not supported",
		},
		{
			name:        "io error",
			err:         &IOError{Op: "read data", Path: "staff.csv", Err: os.ErrNotExist},
			wantCode:    "FILE001",
			wantMessage: "A file could not be read or written",
		},
		{
			name:        "context canceled",
			err:         fmt.Errorf("render row 2: %w", context.Canceled),
			wantCode:    "BAT001",
			wantMessage: "Generation was cancelled",
		},
		{
			name:        "deadline wins over io error",
			err:         &IOError{Op: "write", Path: "out", Err: context.DeadlineExceeded},
			wantCode:    "BAT002",
			wantMessage: "Generation timed out",
		},
		{
			name:        "invalid layout document",
			err:         errors.New("import layout: invalid layout document: textFields must be an array"),
			wantCode:    "LAY001",
			wantMessage: "The layout file is not valid",
		},
		{
			name:        "busy",
			err:         errors.New("too many batches in progress"),
			wantCode:    "BAT003",
			wantMessage: "Another batch is already running",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("FILE TOO LARGE"),
			wantCode:    "FILE004",
			wantMessage: "The file exceeds the size limit",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &ResourceError{Resource: "template", Err: image.ErrFormat}
	result := FormatUserError(err)

	expected := "The template image could not be read (Code: IMG001). Export the template again as PNG or JPEG"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoRows,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &IOError{Op: "read photo", Path: "7.jpg", Err: os.ErrPermission}
		userErr := NewUserError(techErr)

		if userErr.Error() != "A file could not be read or written" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, os.ErrPermission) {
			t.Error("Unwrap() should reach the original error")
		}
	})
}
