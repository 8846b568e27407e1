// Package section implements the on-disk structures that make a seekable
// container file self-describing: a trailer holding the frame table and
// schema dump, and a fixed-size footer pointing at the trailer. Both types
// have a Bytes() method producing the wire form, and ParseTrailer /
// ParseFooter validate and read it back, rather than reflection-based
// (de)serialization.
package section

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// FrameEntry describes one compressed frame's position and extent.
type FrameEntry struct {
	FileOffset       uint64
	UncompressedSize uint64
	RowsInFrame      uint32
}

// ColumnDef is one (name, canonical type string) pair from the trailer's
// schema dump.
type ColumnDef struct {
	Name string
	Type string
}

// Trailer is the frame table plus schema dump appended after the last
// frame, immediately before the Footer.
type Trailer struct {
	Frames  []FrameEntry
	Columns []ColumnDef
}

// Bytes appends the trailer's wire encoding to buf.
func (t *Trailer) Bytes(buf *pool.ByteBuffer) {
	buf.B = wire.AppendVarint(buf.B, uint64(len(t.Frames)))
	for _, f := range t.Frames {
		buf.B = wire.Engine.AppendUint64(buf.B, f.FileOffset)
		buf.B = wire.Engine.AppendUint64(buf.B, f.UncompressedSize)
		buf.B = wire.Engine.AppendUint32(buf.B, f.RowsInFrame)
	}

	buf.B = wire.AppendVarint(buf.B, uint64(len(t.Columns)))
	for _, c := range t.Columns {
		appendLengthPrefixed(buf, c.Name)
		appendLengthPrefixed(buf, c.Type)
	}
}

func appendLengthPrefixed(buf *pool.ByteBuffer, s string) {
	buf.B = wire.AppendVarint(buf.B, uint64(len(s)))
	buf.MustWrite([]byte(s))
}

// ParseTrailer reads a Trailer from data, returning the struct and the
// number of bytes consumed.
func ParseTrailer(data []byte) (*Trailer, int, error) {
	frameCount, n, err := wire.DecodeVarint(data)
	if err != nil {
		return nil, 0, fmt.Errorf("trailer frame count: %w", err)
	}
	off := n

	t := &Trailer{Frames: make([]FrameEntry, 0, frameCount)}
	for i := uint64(0); i < frameCount; i++ {
		const entrySize = 8 + 8 + 4
		if off+entrySize > len(data) {
			return nil, 0, fmt.Errorf("trailer frame %d: %w", i, errs.ErrTruncated)
		}

		fileOffset := wire.Engine.Uint64(data[off : off+8])
		uncompressedSize := wire.Engine.Uint64(data[off+8 : off+16])
		rowsInFrame := wire.Engine.Uint32(data[off+16 : off+20])
		off += entrySize

		t.Frames = append(t.Frames, FrameEntry{
			FileOffset:       fileOffset,
			UncompressedSize: uncompressedSize,
			RowsInFrame:      rowsInFrame,
		})
	}

	colCount, n2, err := wire.DecodeVarint(data[off:])
	if err != nil {
		return nil, 0, fmt.Errorf("trailer schema column count: %w", err)
	}
	off += n2

	t.Columns = make([]ColumnDef, 0, colCount)
	for i := uint64(0); i < colCount; i++ {
		name, n3, err := readLengthPrefixed(data[off:])
		if err != nil {
			return nil, 0, fmt.Errorf("trailer column %d name: %w", i, err)
		}
		off += n3

		typ, n4, err := readLengthPrefixed(data[off:])
		if err != nil {
			return nil, 0, fmt.Errorf("trailer column %d type: %w", i, err)
		}
		off += n4

		t.Columns = append(t.Columns, ColumnDef{Name: name, Type: typ})
	}

	return t, off, nil
}

func readLengthPrefixed(data []byte) (string, int, error) {
	length, n, err := wire.DecodeVarint(data)
	if err != nil {
		return "", 0, err
	}

	end := n + int(length)
	if end > len(data) {
		return "", 0, errs.ErrTruncated
	}

	return string(data[n:end]), end, nil
}

// TotalRows sums rows_in_frame across every frame entry.
func (t *Trailer) TotalRows() uint64 {
	var total uint64
	for _, f := range t.Frames {
		total += uint64(f.RowsInFrame)
	}

	return total
}
