package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec writes indented JSON
type JSONCodec struct {
	// Compact disables indentation
	Compact bool
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Encode writes v as JSON followed by a newline
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
