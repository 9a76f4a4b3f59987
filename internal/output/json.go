// internal/output/json.go
package output

import "encoding/json"

// JSONFormatter outputs a Wiki as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format marshals the Wiki as indented JSON.
func (f *JSONFormatter) Format(w *Wiki) ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}

func (f *JSONFormatter) Extension() string { return "json" }
