// Package output serializes command results as text, JSON, or YAML. Text
// is the human default; the structured formats exist for scripting against
// binge list.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a serialization for command output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TextRenderer is implemented by values that know their own human-readable
// layout. Values without it fall back to %+v.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// Writer emits values in one fixed format.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a writer emitting format to w.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Write serializes v. JSON is indented and newline-terminated; YAML uses
// two-space indent.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json output: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml output: %w", err)
		}
		return enc.Close()
	default:
		if r, ok := v.(TextRenderer); ok {
			return r.RenderText(w.w)
		}
		_, err := fmt.Fprintf(w.w, "%+v\n", v)
		return err
	}
}

// ParseFormat maps a flag value to a Format. Matching is case-insensitive
// and the empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json, yaml)", s)
	}
}
