package codec

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
)

// ColumnCodec binds one schema column's name to its parsed type so the
// per-row hot path never re-parses a type string: the type tree is built
// once and walked per row, with Encode/Decode/Skip switching on each
// node's Kind.
type ColumnCodec struct {
	Name string
	Type *ctype.Type
}

// Schedule is a Schema's columns compiled into an ordered dispatch list.
// Building it once per Schema (in rowbinary.NewSchema) keeps the
// per-row Encode/Decode calls free of any schema bookkeeping.
type Schedule []ColumnCodec

// NewSchedule compiles one ColumnCodec per (name, type) pair.
func NewSchedule(names []string, types []*ctype.Type) Schedule {
	sched := make(Schedule, len(names))
	for i := range names {
		sched[i] = ColumnCodec{Name: names[i], Type: types[i]}
	}

	return sched
}

// EncodeRow encodes one row's values, in schedule order, into buf.
func (s Schedule) EncodeRow(buf *pool.ByteBuffer, row []cvalue.Value) error {
	if len(row) != len(s) {
		return fmt.Errorf("%w: row has %d values, schema has %d columns", errs.ErrWrongColumnCount, len(row), len(s))
	}

	for i, col := range s {
		if err := Encode(buf, col.Type, row[i]); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
	}

	return nil
}

// DecodeRow decodes one row's values, in schedule order, from the start of
// data, returning the values and total bytes consumed.
func (s Schedule) DecodeRow(data []byte) ([]cvalue.Value, int, error) {
	row := make([]cvalue.Value, len(s))
	off := 0

	for i, col := range s {
		v, n, err := Decode(data[off:], col.Type)
		if err != nil {
			return nil, 0, errs.NewCodecError("decode", i, off, len(data)-off, err)
		}
		row[i] = v
		off += n
	}

	return row, off, nil
}

// SkipRow advances over one row's bytes without materializing its values.
func (s Schedule) SkipRow(data []byte) (int, error) {
	off := 0
	for i, col := range s {
		n, err := Skip(data[off:], col.Type)
		if err != nil {
			return 0, errs.NewCodecError("skip", i, off, len(data)-off, err)
		}
		off += n
	}

	return off, nil
}
