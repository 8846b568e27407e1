// Package chrowbinary provides convenient top-level wrappers around the
// rowbinary, seekable, and ctype packages, covering the most common use
// cases: building a schema from type strings, streaming RowBinary rows,
// and reading/writing a seekable Zstd-framed container.
//
// For advanced usage and fine-grained control (custom frame thresholds,
// alternate codecs, raw row-byte passthrough), use those packages
// directly.
package chrowbinary

import (
	"fmt"
	"io"

	"github.com/dovreshef/clickhouse-rowbinary/compress"
	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/rowbinary"
	"github.com/dovreshef/clickhouse-rowbinary/seekable"
	"github.com/google/uuid"
)

// ColumnSpec is a (name, type string) pair, the convenience-layer input
// for building a Schema without constructing ctype.Type values by hand.
type ColumnSpec struct {
	Name string
	Type string
}

// NewSchema parses each column's type string and builds a rowbinary.Schema.
//
// Example:
//
//	schema, err := chrowbinary.NewSchema(
//	    chrowbinary.ColumnSpec{Name: "id", Type: "UInt32"},
//	    chrowbinary.ColumnSpec{Name: "name", Type: "String"},
//	)
func NewSchema(specs ...ColumnSpec) (*rowbinary.Schema, error) {
	cols := make([]rowbinary.Column, len(specs))
	for i, s := range specs {
		t, err := ctype.Parse(s.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", s.Name, err)
		}
		cols[i] = rowbinary.Column{Name: s.Name, Type: t}
	}

	return rowbinary.NewSchema(cols)
}

// NewWriter creates a plain row-streaming Writer for schema under format,
// with no Zstd framing or row index. Use this for RowBinary bytes destined
// for a ClickHouse INSERT, not a seekable container file.
func NewWriter(schema *rowbinary.Schema, format rowbinary.Format) *rowbinary.Writer {
	return rowbinary.NewWriter(schema, format)
}

// NewReader creates a plain row-streaming Reader over data, validating any
// header against schema.
func NewReader(data []byte, format rowbinary.Format, schema *rowbinary.Schema) (*rowbinary.Reader, error) {
	return rowbinary.NewReader(data, format, schema)
}

// NewSeekableWriter creates a seekable.Writer with default frame
// thresholds (8192 rows or 1 MiB uncompressed, whichever comes first) and
// Zstd framing.
//
// Example:
//
//	w, _ := chrowbinary.NewSeekableWriter(f, schema, rowbinary.RowBinary)
//	w.WriteRow(values)
//	w.Close()
func NewSeekableWriter(out io.Writer, schema *rowbinary.Schema, format rowbinary.Format, opts ...seekable.WriterOption) (*seekable.Writer, error) {
	return seekable.NewWriter(out, schema, format, opts...)
}

// OpenSeekableReader opens a seekable container of the given byte size for
// random-access reads. Pass a nil schema to inherit the file's own schema
// from its trailer.
func OpenSeekableReader(ra io.ReaderAt, size int64, format rowbinary.Format, schema *rowbinary.Schema) (*seekable.Reader, error) {
	return seekable.Open(ra, size, format, schema, compress.NewZstdCodec())
}

// UUIDValue parses a canonical UUID string (e.g.
// "550e8400-e29b-41d4-a716-446655440000") into a cvalue.Value ready for a
// UUID column, sparing callers from handling the RFC-4122 byte layout by
// hand.
func UUIDValue(s string) (cvalue.Value, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return cvalue.Value{}, fmt.Errorf("chrowbinary: parse UUID %q: %w", s, err)
	}

	return cvalue.UUID(id), nil
}

// UUIDString renders a UUID value decoded from a UUID column back to its
// canonical string form.
func UUIDString(v cvalue.Value) string {
	return uuid.UUID(v.AsUUID()).String()
}
