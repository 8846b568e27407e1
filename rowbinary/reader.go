package rowbinary

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// Reader decodes rows from an immutable byte region, borrowed for the
// Reader's entire lifetime. Reader is not safe for concurrent use.
type Reader struct {
	schema *Schema
	format Format
	data   []byte
	pos    int
}

// NewReader constructs a Reader over data, validating the header (if the
// format declares one) against schema. A name or type-string mismatch
// fails with errs.ErrSchemaMismatch and the Reader is not usable.
func NewReader(data []byte, format Format, schema *Schema) (*Reader, error) {
	r := &Reader{schema: schema, format: format, data: data}

	if format.HasHeader() {
		if err := r.readAndValidateHeader(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Reader) readAndValidateHeader() error {
	count, n, err := wire.DecodeVarint(r.data[r.pos:])
	if err != nil {
		return fmt.Errorf("header column count: %w", err)
	}
	r.pos += n

	if int(count) != r.schema.Len() {
		return fmt.Errorf("%w: header has %d columns, schema has %d", errs.ErrSchemaMismatch, count, r.schema.Len())
	}

	cols := r.schema.Columns()
	for i := uint64(0); i < count; i++ {
		name, m, err := r.readHeaderString()
		if err != nil {
			return fmt.Errorf("header name %d: %w", i, err)
		}
		if name != cols[i].Name {
			return fmt.Errorf("%w: header column %d is %q, schema expects %q", errs.ErrSchemaMismatch, i, name, cols[i].Name)
		}
		_ = m
	}

	if !r.format.HasTypes() {
		return nil
	}

	for i := uint64(0); i < count; i++ {
		typ, _, err := r.readHeaderString()
		if err != nil {
			return fmt.Errorf("header type %d: %w", i, err)
		}
		if typ != cols[i].Type.String() {
			return fmt.Errorf("%w: header column %d type is %q, schema expects %q", errs.ErrSchemaMismatch, i, typ, cols[i].Type.String())
		}
	}

	return nil
}

func (r *Reader) readHeaderString() (string, int, error) {
	length, n, err := wire.DecodeVarint(r.data[r.pos:])
	if err != nil {
		return "", 0, err
	}

	end := r.pos + n + int(length)
	if end > len(r.data) {
		return "", 0, errs.ErrTruncated
	}

	s := string(r.data[r.pos+n : end])
	consumed := end - r.pos
	r.pos = end

	return s, consumed, nil
}

// EOF is returned by ReadRow when the cursor has reached the end of the
// input with no partial row remaining.
var EOF = fmt.Errorf("rowbinary: end of stream")

// ReadRow decodes and returns the next row, or EOF if the cursor has
// reached the end of the input cleanly. A partial row at end of input
// raises a *errs.CodecError rather than EOF.
func (r *Reader) ReadRow() ([]cvalue.Value, error) {
	if r.pos == len(r.data) {
		return nil, EOF
	}

	row, n, err := r.schema.schedule.DecodeRow(r.data[r.pos:])
	if err != nil {
		return nil, err
	}
	r.pos += n

	return row, nil
}

// ReadAll decodes every remaining row.
func (r *Reader) ReadAll() ([][]cvalue.Value, error) {
	var rows [][]cvalue.Value
	for {
		row, err := r.ReadRow()
		if err == EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Schema returns the schema this Reader decodes against.
func (r *Reader) Schema() *Schema { return r.schema }

// Pos returns the current byte offset into the underlying data.
func (r *Reader) Pos() int { return r.pos }
