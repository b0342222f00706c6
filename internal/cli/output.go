package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/shop"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Action or scenario failure (sign-in rejected, scenarios failed, etc.)
	ExitCommandError = 2 // Command error (bad arguments, unknown product, invalid configuration, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E_TEST_FAILED", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// section selects which part of the state text output shows.
type section int

const (
	showNone section = iota
	showCart
	showFavorites
	showAuth
)

// State prints the storefront state. JSON output always carries the full
// view; text output prints notices, msg, then the chosen section.
func (f *OutputFormatter) State(v StateView, msg string, show section) error {
	if f.Format == "json" {
		return f.Success(v)
	}

	w := f.Writer
	for _, n := range v.Notices {
		fmt.Fprintf(w, "%s %s\n", noticeMark(n.Severity), n.Message)
	}
	if msg != "" {
		fmt.Fprintln(w, msg)
	}

	switch show {
	case showCart:
		writeCart(w, v)
	case showFavorites:
		writeFavorites(w, v)
	case showAuth:
		writeAuth(w, v)
	}
	return nil
}

func noticeMark(s notify.Severity) string {
	switch s {
	case notify.Success:
		return "✓"
	case notify.Error:
		return "✗"
	default:
		return "ℹ"
	}
}

func writeCart(w io.Writer, v StateView) {
	if len(v.Cart) == 0 {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	fmt.Fprintf(w, "Cart: %d item(s), subtotal %s\n", v.Totals.Items, formatMoney(v.Totals.Subtotal))
	for _, li := range v.Cart {
		fmt.Fprintf(w, "  %d × %s%s @ %s = %s\n",
			li.Quantity, li.Product.Name, variant(li), formatMoney(li.Product.Price), formatMoney(li.LineTotal()))
	}
}

func variant(li shop.LineItem) string {
	var parts []string
	if li.Size != "" {
		parts = append(parts, li.Size)
	}
	if li.Color != "" {
		parts = append(parts, li.Color)
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func writeFavorites(w io.Writer, v StateView) {
	if len(v.Favorites) == 0 {
		fmt.Fprintf(w, "No favorites (%s)\n", v.FavoritesSource)
		return
	}
	fmt.Fprintf(w, "Favorites (%s):\n", v.FavoritesSource)
	for _, p := range v.Favorites {
		fmt.Fprintf(w, "  %s  %s  %s\n", p.ID, p.Name, formatMoney(p.Price))
	}
}

func writeAuth(w io.Writer, v StateView) {
	if v.User == "" {
		fmt.Fprintln(w, "Not signed in")
		return
	}
	fmt.Fprintf(w, "Signed in as %s\n", v.User)
	if v.LastActivity != nil {
		fmt.Fprintf(w, "Last activity: %s\n", v.LastActivity.UTC().Format("2006-01-02 15:04:05 MST"))
	}
}

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders integer minor units with grouped major units,
// e.g. 123456 as "1,234.56".
func formatMoney(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + moneyPrinter.Sprintf("%d", minor/100) + fmt.Sprintf(".%02d", minor%100)
}
