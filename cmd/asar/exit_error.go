package main

import (
	"errors"
	"fmt"

	"github.com/meigma/asar"
)

// Exit codes reported by the CLI.
const (
	exitFailure  = 1
	exitSource   = 2
	exitFormat   = 3
	exitNotFound = 4
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// classify wraps err in an ExitError whose code reflects the failure kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := exitFailure
	switch {
	case errors.Is(err, asar.ErrInvalidSource),
		errors.Is(err, asar.ErrOversize),
		errors.Is(err, asar.ErrTooManyFiles):
		code = exitSource
	case errors.Is(err, asar.ErrFormat):
		code = exitFormat
	case errors.Is(err, asar.ErrNotFound), errors.Is(err, asar.ErrIsDir):
		code = exitNotFound
	}
	return &ExitError{Code: code, Err: err}
}
