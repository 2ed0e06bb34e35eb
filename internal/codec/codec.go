// Package codec renders command results as JSON, YAML, aligned tables or
// Ansible inventories.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encoder writes a value in one output format
type Encoder interface {
	Encode(w io.Writer, v any) error
	Format() string
}

// ErrUnsupported is returned when a format cannot render a value
var ErrUnsupported = errors.New("value not supported by this format")

// Formats lists the output format names
func Formats() []string {
	return []string{"table", "json", "yaml", "ansible-inventory"}
}

// ForFormat returns the encoder for name
func ForFormat(name string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return NewTableCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "ansible", "ansible-inventory":
		return NewAnsibleCodec(), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(Formats(), ", "))
}
