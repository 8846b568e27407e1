package seekable

import (
	"fmt"
	"io"

	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/options"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/rowbinary"
	"github.com/dovreshef/clickhouse-rowbinary/section"
)

// writerState tracks the lifecycle Fresh -> HeaderWritten -> Appending ->
// Finalized described in the container's design.
type writerState uint8

const (
	stateFresh writerState = iota
	stateHeaderWritten
	stateAppending
	stateFinalized
)

// Writer appends rows to a seekable container file: it batches encoded row
// bytes into frames, compresses each full frame independently, and on
// Close emits the trailer (frame table + schema) and fixed footer.
//
// Writer is not safe for concurrent use. It does not finalize on its own;
// the caller must call Close to commit the file, or Abort to release the
// handle without writing a trailer/footer (the resource-scoping guard: only
// the success path finalizes).
type Writer struct {
	out    io.Writer
	schema *rowbinary.Schema
	format rowbinary.Format
	cfg    *writerConfig

	state     writerState
	inner     *rowbinary.Writer
	frameRows int

	frames    []section.FrameEntry
	totalRows uint64
	fileOff   uint64
	committed bool
}

// NewWriter creates a Writer that appends frames to out starting at its
// current position (out must be positioned at the start of a fresh file).
func NewWriter(out io.Writer, schema *rowbinary.Schema, format rowbinary.Format, opts ...WriterOption) (*Writer, error) {
	cfg := defaultWriterConfig()
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	return &Writer{
		out:    out,
		schema: schema,
		format: format,
		cfg:    cfg,
		inner:  rowbinary.NewWriter(schema, format),
	}, nil
}

func applyOptions(cfg *writerConfig, opts []WriterOption) error {
	return options.Apply(cfg, opts...)
}

// WriteHeader emits the column header; valid only once, before any row, and
// only for formats that declare a header. The header is written directly to
// out ahead of frame₁ rather than folded into a frame's compressed payload,
// so the per-frame row-offset cache never has to special-case frame 0 — the
// trailer's own schema dump already makes the file self-describing, and the
// header here exists only for wire-format compatibility with plain
// RowBinaryWithNames(AndTypes) consumers reading the body directly.
func (w *Writer) WriteHeader() error {
	if w.state == stateFinalized {
		return errs.ErrWriterFinalized
	}
	if err := w.inner.WriteHeader(); err != nil {
		return err
	}

	headerBytes := w.inner.Take()
	if _, err := w.out.Write(headerBytes); err != nil {
		return fmt.Errorf("seekable: write header: %w", err)
	}
	w.fileOff += uint64(len(headerBytes))

	w.state = stateHeaderWritten

	return nil
}

// WriteRow encodes and appends one row, flushing the current frame to out
// once a threshold is crossed.
func (w *Writer) WriteRow(values []cvalue.Value) error {
	if w.state == stateFinalized {
		return errs.ErrWriterFinalized
	}

	if err := w.inner.WriteRow(values); err != nil {
		return err
	}

	w.state = stateAppending
	w.frameRows++
	w.totalRows++

	return w.maybeFlush()
}

// WriteRows encodes each row in order.
func (w *Writer) WriteRows(rows [][]cvalue.Value) error {
	for i, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	return nil
}

// WriteRowBytes appends pre-encoded raw row bytes (as produced by
// rowbinary.Writer or Reader.CurrentRowBytes) without decoding them.
func (w *Writer) WriteRowBytes(b []byte) error {
	if w.state == stateFinalized {
		return errs.ErrWriterFinalized
	}

	w.inner.WriteRowBytes(b)
	w.state = stateAppending
	w.frameRows++
	w.totalRows++

	return w.maybeFlush()
}

func (w *Writer) maybeFlush() error {
	if w.frameRows >= w.cfg.rowsPerFrame || len(w.inner.Bytes()) >= w.cfg.bytesPerFrame {
		return w.flushFrame()
	}

	return nil
}

func (w *Writer) flushFrame() error {
	if w.frameRows == 0 {
		return nil
	}

	uncompressed := w.inner.Take()

	compressed, err := w.cfg.codec.Compress(uncompressed)
	if err != nil {
		return fmt.Errorf("seekable: compress frame: %w", err)
	}

	if _, err := w.out.Write(compressed); err != nil {
		return fmt.Errorf("seekable: write frame: %w", err)
	}

	w.frames = append(w.frames, section.FrameEntry{
		FileOffset:       w.fileOff,
		UncompressedSize: uint64(len(uncompressed)),
		RowsInFrame:      uint32(w.frameRows),
	})

	w.fileOff += uint64(len(compressed))
	w.frameRows = 0

	return nil
}

// Close flushes any partial frame, writes the trailer and footer, fsyncs
// if the underlying writer supports it, and transitions to Finalized. It
// is the only path that commits the file; calling it is what distinguishes
// a complete file from an aborted one.
func (w *Writer) Close() error {
	if w.state == stateFinalized {
		return nil
	}

	if err := w.flushFrame(); err != nil {
		return err
	}

	trailer := &section.Trailer{Frames: w.frames}
	for _, c := range w.schema.Columns() {
		trailer.Columns = append(trailer.Columns, section.ColumnDef{Name: c.Name, Type: c.Type.String()})
	}

	trailerBuf := pool.GetBuffer()
	defer pool.PutBuffer(trailerBuf)

	trailer.Bytes(trailerBuf)
	trailerBytes := trailerBuf.Bytes()

	trailerOffset := w.fileOff
	if _, err := w.out.Write(trailerBytes); err != nil {
		return fmt.Errorf("seekable: write trailer: %w", err)
	}
	w.fileOff += uint64(len(trailerBytes))

	footer := &section.Footer{
		TrailerOffset: trailerOffset,
		TrailerLength: uint64(len(trailerBytes)),
		TotalRows:     w.totalRows,
		FormatVersion: section.FormatVersion,
	}
	if _, err := w.out.Write(footer.Bytes()); err != nil {
		return fmt.Errorf("seekable: write footer: %w", err)
	}

	if syncer, ok := w.out.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("seekable: fsync: %w", err)
		}
	}

	w.state = stateFinalized
	w.committed = true

	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Abort releases the underlying handle without writing a trailer or
// footer, leaving the file unopenable by Reader (no footer magic). Use
// this on an error path instead of Close.
func (w *Writer) Abort() error {
	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Committed reports whether Close has successfully finalized the file.
func (w *Writer) Committed() bool { return w.committed }

// TotalRows returns the number of rows written so far.
func (w *Writer) TotalRows() uint64 { return w.totalRows }
