package seekable

import (
	"fmt"
	"io"

	"github.com/dovreshef/clickhouse-rowbinary/compress"
	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/rowbinary"
	"github.com/dovreshef/clickhouse-rowbinary/section"
)

// EOF is returned by ReadCurrent/CurrentRowBytes when the cursor sits at
// total_rows, ClickHouse-style end-of-stream rather than an error state.
var EOF = fmt.Errorf("seekable: end of stream")

// frameCache holds the most recently decompressed frame plus the lazily
// computed byte offset of each row within it. Only one frame is ever held
// at a time: moving the cursor across a frame boundary replaces it.
type frameCache struct {
	index        int
	data         []byte
	offsets      []int // len = rowsInFrame+1; offsets[k] is row k's start, offsets[last] is frame end
	offsetsDone  func() // returns offsets to its slice pool; called when the cache moves to another frame
	rowStart     uint64
	haveOffset   bool
}

func (c *frameCache) release() {
	if c.offsetsDone != nil {
		c.offsetsDone()
		c.offsetsDone = nil
	}
}

// Reader provides random-access reads over a seekable container file via
// positional reads against ra, never mutating a shared file offset so
// multiple readers can share one handle.
//
// Reader is not safe for concurrent use; each goroutine needs its own
// Reader (though they may share the same io.ReaderAt).
type Reader struct {
	ra     io.ReaderAt
	schema *rowbinary.Schema
	format rowbinary.Format
	codec  compress.Codec

	footer        *section.Footer
	trailer       *section.Trailer
	frameRowStart []uint64 // prefix sum of rows_in_frame, length len(trailer.Frames)+1

	cursor uint64
	cache  frameCache
}

// Open reads the footer and trailer of a seekable container accessed via
// ra, spanning size bytes. If schema is non-nil, it must match the
// trailer's schema exactly or errs.ErrSchemaMismatch is raised; if nil, the
// trailer's schema is inherited.
func Open(ra io.ReaderAt, size int64, format rowbinary.Format, schema *rowbinary.Schema, codec compress.Codec) (*Reader, error) {
	if size < int64(section.FooterSize) {
		return nil, fmt.Errorf("%w: file too small to contain a footer", errs.ErrNotFinalized)
	}

	footerBytes := make([]byte, section.FooterSize)
	if _, err := ra.ReadAt(footerBytes, size-int64(section.FooterSize)); err != nil {
		return nil, fmt.Errorf("seekable: read footer: %w", err)
	}

	footer, err := section.ParseFooter(footerBytes)
	if err != nil {
		return nil, err
	}
	if footer.FormatVersion != section.FormatVersion {
		return nil, fmt.Errorf("seekable: unsupported format version %d", footer.FormatVersion)
	}

	trailerBytes := make([]byte, footer.TrailerLength)
	if _, err := ra.ReadAt(trailerBytes, int64(footer.TrailerOffset)); err != nil {
		return nil, fmt.Errorf("seekable: read trailer: %w", err)
	}

	trailer, _, err := section.ParseTrailer(trailerBytes)
	if err != nil {
		return nil, err
	}
	if trailer.TotalRows() != footer.TotalRows {
		return nil, errs.ErrTrailerCorrupt
	}

	fileSchema, err := schemaFromTrailer(trailer)
	if err != nil {
		return nil, err
	}
	if schema != nil && !schema.Equal(fileSchema) {
		return nil, fmt.Errorf("%w: file schema is %s, caller supplied %s", errs.ErrSchemaMismatch, fileSchema, schema)
	}
	if schema == nil {
		schema = fileSchema
	}

	frameRowStart := make([]uint64, len(trailer.Frames)+1)
	for i, f := range trailer.Frames {
		frameRowStart[i+1] = frameRowStart[i] + uint64(f.RowsInFrame)
	}

	if codec == nil {
		codec = compress.NewZstdCodec()
	}

	return &Reader{
		ra:            ra,
		schema:        schema,
		format:        format,
		codec:         codec,
		footer:        footer,
		trailer:       trailer,
		frameRowStart: frameRowStart,
		cache:         frameCache{index: -1},
	}, nil
}

func schemaFromTrailer(t *section.Trailer) (*rowbinary.Schema, error) {
	cols := make([]rowbinary.Column, len(t.Columns))
	for i, c := range t.Columns {
		typ, err := ctype.Parse(c.Type)
		if err != nil {
			return nil, fmt.Errorf("trailer column %q: %w", c.Name, err)
		}
		cols[i] = rowbinary.Column{Name: c.Name, Type: typ}
	}

	return rowbinary.NewSchema(cols)
}

// Schema returns the schema the reader decodes rows against.
func (r *Reader) Schema() *rowbinary.Schema { return r.schema }

// TotalRows returns the total number of rows in the file.
func (r *Reader) TotalRows() uint64 { return r.footer.TotalRows }

// Cursor returns the current row position, in [0, TotalRows()].
func (r *Reader) Cursor() uint64 { return r.cursor }

// Seek sets the cursor to i. i must be in [0, TotalRows()].
func (r *Reader) Seek(i uint64) error {
	if i > r.footer.TotalRows {
		return &errs.BoundsError{Index: int(i), Total: int(r.footer.TotalRows)}
	}
	r.cursor = i

	return nil
}

// SeekRelative moves the cursor by delta rows.
func (r *Reader) SeekRelative(delta int64) error {
	next := int64(r.cursor) + delta
	if next < 0 {
		return &errs.BoundsError{Index: int(next), Total: int(r.footer.TotalRows)}
	}

	return r.Seek(uint64(next))
}

// SeekToStart resets the cursor to 0.
func (r *Reader) SeekToStart() error { return r.Seek(0) }

// locate maps a global row index to the index of the frame holding it via
// binary search over the frame prefix sums.
func (r *Reader) locate(rowIdx uint64) int {
	lo, hi := 0, len(r.frameRowStart)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.frameRowStart[mid] <= rowIdx {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}

func (r *Reader) ensureFrame(frameIdx int) error {
	if r.cache.index == frameIdx {
		return nil
	}
	r.cache.release()

	f := r.trailer.Frames[frameIdx]

	var frameEnd uint64
	if frameIdx+1 < len(r.trailer.Frames) {
		frameEnd = r.trailer.Frames[frameIdx+1].FileOffset
	} else {
		frameEnd = r.footer.TrailerOffset
	}

	size := int(frameEnd - f.FileOffset)

	readBuf := pool.GetLargeBuffer()
	defer pool.PutLargeBuffer(readBuf)
	readBuf.Reset()
	readBuf.ExtendOrGrow(size)
	compressed := readBuf.Bytes()

	if _, err := r.ra.ReadAt(compressed, int64(f.FileOffset)); err != nil {
		return fmt.Errorf("seekable: read frame %d: %w", frameIdx, err)
	}

	data, err := r.codec.Decompress(compressed)
	if err != nil {
		return errs.NewCodecError("decompress", -1, int(f.FileOffset), len(compressed), err)
	}

	r.cache = frameCache{index: frameIdx, data: data, rowStart: r.frameRowStart[frameIdx]}

	return nil
}

// ensureOffsets lazily computes row boundaries for the currently cached
// frame by running the codec's skip-only decode once per row.
func (r *Reader) ensureOffsets(frameIdx int) error {
	if r.cache.haveOffset {
		return nil
	}

	rowsInFrame := int(r.trailer.Frames[frameIdx].RowsInFrame)
	offsets, done := pool.GetIntSlice(rowsInFrame + 1)

	pos := 0
	for i := 0; i < rowsInFrame; i++ {
		offsets[i] = pos

		n, err := r.schema.SkipRow(r.cache.data[pos:])
		if err != nil {
			return errs.NewCodecError("skip", -1, pos, len(r.cache.data)-pos, err)
		}
		pos += n
	}
	offsets[rowsInFrame] = pos

	r.cache.offsets = offsets
	r.cache.offsetsDone = done
	r.cache.haveOffset = true

	return nil
}

func (r *Reader) rowBytesAt(rowIdx uint64) ([]byte, error) {
	frameIdx := r.locate(rowIdx)
	if err := r.ensureFrame(frameIdx); err != nil {
		return nil, err
	}
	if err := r.ensureOffsets(frameIdx); err != nil {
		return nil, err
	}

	local := int(rowIdx - r.cache.rowStart)

	return r.cache.data[r.cache.offsets[local]:r.cache.offsets[local+1]], nil
}

// ReadCurrent decodes the row at the cursor. If the cursor is at
// TotalRows(), it returns EOF. When advance is true the cursor moves
// forward by one row afterward.
func (r *Reader) ReadCurrent(advance bool) ([]cvalue.Value, error) {
	if r.cursor == r.footer.TotalRows {
		return nil, EOF
	}

	rowBytes, err := r.rowBytesAt(r.cursor)
	if err != nil {
		return nil, err
	}

	values, _, err := r.schema.DecodeRow(rowBytes)
	if err != nil {
		return nil, err
	}

	if advance {
		r.cursor++
	}

	return values, nil
}

// CurrentRowBytes returns the raw encoded bytes of the row at the cursor,
// without decoding or advancing. Paired with rowbinary.Writer.WriteRowBytes
// or seekable.Writer.WriteRowBytes, it supports rebatching rows between
// files without a decode/re-encode round trip.
func (r *Reader) CurrentRowBytes() ([]byte, error) {
	if r.cursor == r.footer.TotalRows {
		return nil, EOF
	}

	return r.rowBytesAt(r.cursor)
}

// ReadRows decodes up to n rows starting at the cursor, advancing by the
// number returned.
func (r *Reader) ReadRows(n int) ([][]cvalue.Value, error) {
	rows := make([][]cvalue.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.ReadCurrent(true)
		if err == EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, v)
	}

	return rows, nil
}
