package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopfloor-io/floorline/internal/core"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (blocked admission, validation, conflict)
	ExitCommandError = 2 // Command error (bad flags, missing config, store unavailable)
)

// ExitError carries a specific exit code out of a command.
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure when the error carries no code of its own.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON envelope for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure inside a CLIResponse.
type CLIError struct {
	Code     string `json:"code"` // VALIDATION, NOT_FOUND, CONFLICT, CONFIGURATION
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

// JSON encodes data in the standard success envelope.
func (f *OutputFormatter) JSON(data any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}

// VerboseLog writes a diagnostic line when verbose mode is on. Diagnostics go
// to ErrWriter so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail renders err in the configured format and converts it into an
// ExitError. Domain errors exit 1 except configuration problems, which are
// operator-fixable command errors and exit 2.
func (f *OutputFormatter) Fail(err error) error {
	code := "INTERNAL"
	msg := err.Error()
	exit := ExitCommandError

	var de *core.Error
	if errors.As(err, &de) {
		code = string(de.Code)
		msg = de.Message
		switch de.Code {
		case core.ErrCodeValidation, core.ErrCodeNotFound, core.ErrCodeConflict:
			exit = ExitFailure
		case core.ErrCodeConfiguration:
			exit = ExitCommandError
		}
	}

	if f.Format == "json" {
		resp := CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: msg}}
		if de != nil {
			resp.Error.Entity = de.Entity
			resp.Error.EntityID = de.EntityID
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
	} else {
		fmt.Fprintf(f.Writer, "error [%s]: %s\n", code, msg)
	}
	return NewExitError(exit, msg)
}
