package codec

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Tabular values know how to render as rows
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Table is a ready-made Tabular
type Table struct {
	Columns []string
	Data    [][]string
}

func (t Table) Header() []string { return t.Columns }
func (t Table) Rows() [][]string { return t.Data }

// TableCodec writes aligned, tab-separated columns
type TableCodec struct{}

// NewTableCodec creates a new table codec
func NewTableCodec() *TableCodec {
	return &TableCodec{}
}

// Format returns the codec format identifier
func (c *TableCodec) Format() string {
	return "table"
}

// Encode writes v as a table. Strings are written as is; other values
// must be Tabular or one of the types TableOf knows.
func (c *TableCodec) Encode(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := io.WriteString(w, s)
		return err
	}

	t, ok := v.(Tabular)
	if !ok {
		if t, ok = TableOf(v); !ok {
			return fmt.Errorf("table: %T: %w", v, ErrUnsupported)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if header := t.Header(); len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
