package statement

import (
	"errors"
	"fmt"
	"strings"
)

// FormatUnsupportedError is returned for files whose type cannot be ingested.
type FormatUnsupportedError struct {
	FileType string
	FileName string
}

func (e *FormatUnsupportedError) Error() string {
	return fmt.Sprintf("unsupported file format %q (%s): upload a PDF, CSV, XLSX, XLS or image statement", e.FileType, e.FileName)
}

// MissingColumnsError is returned when a tabular statement lacks a required column.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("statement is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ScannedDocumentError is returned when a PDF holds too little text to parse.
type ScannedDocumentError struct {
	TextLength int
}

func (e *ScannedDocumentError) Error() string {
	return fmt.Sprintf("document looks scanned (%d characters of text): resubmit the statement as an image", e.TextLength)
}

// ModelResponseError is returned when the vision model reply breaks the response contract.
type ModelResponseError struct {
	Reason string
	Err    error
}

func (e *ModelResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not read statement image: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("could not read statement image: %s", e.Reason)
}

func (e *ModelResponseError) Unwrap() error {
	return e.Err
}

// EmptyResultError is returned when extraction finds no transactions.
type EmptyResultError struct {
	Format Format
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no transactions found in %s statement", e.Format)
}

// UserFacing returns the terminal user-facing error wrapped in err, if any.
func UserFacing(err error) (error, bool) {
	var (
		format  *FormatUnsupportedError
		columns *MissingColumnsError
		scanned *ScannedDocumentError
		model   *ModelResponseError
		empty   *EmptyResultError
	)
	switch {
	case errors.As(err, &format):
		return format, true
	case errors.As(err, &columns):
		return columns, true
	case errors.As(err, &scanned):
		return scanned, true
	case errors.As(err, &model):
		return model, true
	case errors.As(err, &empty):
		return empty, true
	}
	return nil, false
}

// IsUserFacing reports whether err is a terminal error meant for the uploader.
func IsUserFacing(err error) bool {
	_, ok := UserFacing(err)
	return ok
}
