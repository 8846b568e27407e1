package rowbinary

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// Writer encodes rows against a Schema into an append-only in-memory
// buffer. It owns the buffer until Take/Finish transfers it to the caller
// and resets rowsWritten to 0; the Writer itself stays usable afterward.
//
// Writer is not safe for concurrent use.
type Writer struct {
	schema       *Schema
	format       Format
	buf          *pool.ByteBuffer
	headerDone   bool
	rowsStarted  bool
	rowsWritten  int
}

// NewWriter creates a Writer for schema under format.
func NewWriter(schema *Schema, format Format) *Writer {
	return &Writer{
		schema: schema,
		format: format,
		buf:    pool.NewByteBuffer(pool.DefaultBufferSize),
	}
}

// RowsWritten returns the number of complete rows written since
// construction or the last Take/Finish.
func (w *Writer) RowsWritten() int { return w.rowsWritten }

// WriteHeader emits the column names (and, for RowBinaryWithNamesAndTypes,
// canonical type strings). It is valid only as the very first operation on
// a Writer whose format carries a header; any other call order raises
// errs.ErrHeaderAfterRows / errs.ErrHeaderAlreadyWritten /
// errs.ErrHeaderNotSupported.
func (w *Writer) WriteHeader() error {
	if !w.format.HasHeader() {
		return errs.ErrHeaderNotSupported
	}
	if w.headerDone {
		return errs.ErrHeaderAlreadyWritten
	}
	if w.rowsStarted {
		return errs.ErrHeaderAfterRows
	}

	cols := w.schema.Columns()
	w.buf.B = wire.AppendVarint(w.buf.B, uint64(len(cols)))
	for _, c := range cols {
		writeHeaderString(w.buf, c.Name)
	}

	if w.format.HasTypes() {
		for _, c := range cols {
			writeHeaderString(w.buf, c.Type.String())
		}
	}

	w.headerDone = true

	return nil
}

func writeHeaderString(buf *pool.ByteBuffer, s string) {
	buf.B = wire.AppendVarint(buf.B, uint64(len(s)))
	buf.MustWrite([]byte(s))
}

// WriteRow encodes one row's values, in schema-column order, transactionally:
// on error the buffer is truncated back to its pre-row length and
// rowsWritten is unchanged.
func (w *Writer) WriteRow(values []cvalue.Value) error {
	start := w.buf.Len()

	if err := w.schema.schedule.EncodeRow(w.buf, values); err != nil {
		w.buf.SetLength(start)

		return err
	}

	w.rowsStarted = true
	w.rowsWritten++

	return nil
}

// WriteRowMap encodes one row supplied as a name-to-value mapping; every
// schema column must be present and no extra keys are allowed.
func (w *Writer) WriteRowMap(m map[string]cvalue.Value) error {
	cols := w.schema.Columns()

	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c.Name] = struct{}{}
	}
	for name := range m {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %q", errs.ErrUnexpectedColumn, name)
		}
	}

	values := make([]cvalue.Value, len(cols))
	for i, c := range cols {
		v, ok := m[c.Name]
		if !ok {
			return fmt.Errorf("%w: %q", errs.ErrMissingColumn, c.Name)
		}
		values[i] = v
	}

	if len(m) != len(cols) {
		return fmt.Errorf("%w: map has %d entries, schema has %d columns", errs.ErrWrongColumnCount, len(m), len(cols))
	}

	return w.WriteRow(values)
}

// WriteRows encodes each row in order; it stops and returns the first
// error encountered, leaving rows already written intact.
func (w *Writer) WriteRows(rows [][]cvalue.Value) error {
	for i, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	return nil
}

// WriteRowBytes appends pre-encoded raw row bytes without decoding them.
// The caller is responsible for the bytes matching this Writer's schema
// and format; they still count toward RowsWritten.
func (w *Writer) WriteRowBytes(b []byte) {
	w.buf.MustWrite(b)
	w.rowsStarted = true
	w.rowsWritten++
}

// Take returns the accumulated bytes and resets the Writer's buffer and
// RowsWritten to 0; the header-written state is preserved since a header
// is only ever emitted once per stream.
func (w *Writer) Take() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())

	w.buf.Reset()
	w.rowsWritten = 0

	return out
}

// Finish is an alias for Take.
func (w *Writer) Finish() []byte { return w.Take() }

// Bytes returns the buffer's current contents without resetting it, for
// callers that want to inspect accumulated bytes mid-stream (e.g. the
// seekable writer measuring a frame's uncompressed size before flush).
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
