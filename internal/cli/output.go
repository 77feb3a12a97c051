package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/zsiec/syncgen/internal/config"
	"github.com/zsiec/syncgen/internal/marker"
	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/schedule"
	"github.com/zsiec/syncgen/internal/timebase"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Generation or verification failure
	ExitCommandError = 2 // Invalid configuration or arguments
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// isConfigError reports whether err was caused by the user's settings
// rather than by a failure while generating.
func isConfigError(err error) bool {
	for _, target := range []error{
		config.ErrInvalid,
		pattern.ErrInvalidSpec,
		timebase.ErrMalformedRational,
		marker.ErrInfeasible,
		marker.ErrUndecodable,
		schedule.ErrDurationTooShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify attaches an exit code to err.
func classify(message string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if isConfigError(err) {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for command output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success outputs a result in the configured format. Text output relies
// on the value's String method.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Failure outputs a result that the command considers failed, such as a
// verification report with mismatches.
func (f *OutputFormatter) Failure(data any, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Data: data, Error: message})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}
