// Package rowbinary implements row-level streaming encode/decode over the
// three RowBinary header variants, built on the ctype/cvalue/codec layers.
package rowbinary

import (
	"fmt"
	"strings"

	"github.com/dovreshef/clickhouse-rowbinary/codec"
	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
)

// Column is one (name, type) pair of a Schema.
type Column struct {
	Name string
	Type *ctype.Type
}

// Schema is an ordered, immutable list of columns. Names must be unique and
// non-empty. Two schemas compare equal by element-wise name and canonical
// type-string comparison, independent of how their Types were constructed.
type Schema struct {
	columns  []Column
	schedule codec.Schedule
}

// NewSchema validates and builds a Schema from an ordered column list.
func NewSchema(columns []Column) (*Schema, error) {
	seen := make(map[string]bool, len(columns))
	names := make([]string, len(columns))
	types := make([]*ctype.Type, len(columns))

	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d", errs.ErrEmptyColumnName, i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true

		names[i] = c.Name
		types[i] = c.Type
	}

	return &Schema{
		columns:  append([]Column(nil), columns...),
		schedule: codec.NewSchedule(names, types),
	}, nil
}

// Columns returns the schema's (name, type) pairs in declared order.
func (s *Schema) Columns() []Column { return s.columns }

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.columns) }

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}

	return names
}

// Equal reports whether two schemas have the same columns, by name and
// canonical type string, in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.columns) != len(other.columns) {
		return false
	}

	for i, c := range s.columns {
		oc := other.columns[i]
		if c.Name != oc.Name || !c.Type.Equal(oc.Type) {
			return false
		}
	}

	return true
}

// DecodeRow decodes one row's values against this schema's compiled
// dispatch, for callers (seekable.Reader) that hold raw row bytes outside
// of a Reader's own cursor.
func (s *Schema) DecodeRow(data []byte) ([]cvalue.Value, int, error) {
	return s.schedule.DecodeRow(data)
}

// SkipRow advances over one row's bytes without decoding, used to compute
// intra-frame row boundaries lazily.
func (s *Schema) SkipRow(data []byte) (int, error) {
	return s.schedule.SkipRow(data)
}

// String renders the schema as "name Type, name Type, ...", used in
// mismatch error messages.
func (s *Schema) String() string {
	var b strings.Builder
	for i, c := range s.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.Type.String())
	}

	return b.String()
}
