package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Runtime failure (provider, store, sink errors)
	ExitCommandError = 2 // Command error (bad flags, invalid configuration)
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatJSON, FormatYAML}

// writeDocument renders v as indented JSON or as YAML.
func writeDocument(w io.Writer, format string, v any) error {
	if format == FormatYAML {
		out, err := toYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONLine renders v as one line of compact JSON.
func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// toYAML renders v through its JSON form, so the JSON field names and
// marshalers apply to YAML output as well. JSON is valid YAML; the parsed
// node tree keeps field order and only loses the flow style.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("reparse as yaml: %w", err)
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Kind selects what a list command prints per record.
type Kind string

const (
	KindKey      Kind = "key"
	KindValue    Kind = "value"
	KindKeyValue Kind = "key-value"
)

// entrySeparator separates key and value in key-value listings.
const entrySeparator = ": "

func parseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindKey, KindValue, KindKeyValue:
		return k, nil
	}
	return "", NewExitError(ExitCommandError,
		fmt.Sprintf("invalid kind %q: must be one of [key value key-value]", s))
}

// writeEntry prints one record according to kind. Values are compact JSON.
func writeEntry(w io.Writer, kind Kind, key string, value any) error {
	switch kind {
	case KindKey:
		_, err := fmt.Fprintln(w, key)
		return err
	case KindValue:
		return writeJSONLine(w, value)
	default:
		if _, err := io.WriteString(w, key+entrySeparator); err != nil {
			return err
		}
		return writeJSONLine(w, value)
	}
}
