package codec

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// Skip advances over one value of type t without materializing it, used by
// seekable.Reader to compute row boundaries inside a decompressed frame
// when building its offset index lazily.
func Skip(data []byte, t *ctype.Type) (int, error) {
	if t.Kind == ctype.KindNullable {
		isNull, n, err := wire.DecodeBool(data)
		if err != nil {
			return 0, err
		}
		if isNull {
			return n, nil
		}

		m, err := Skip(data[n:], t.Elem)
		return n + m, err
	}

	switch t.Kind {
	case ctype.KindBool:
		if len(data) < 1 {
			return 0, errs.ErrTruncated
		}
		return 1, nil

	case ctype.KindInt8, ctype.KindUInt8, ctype.KindInt16, ctype.KindUInt16,
		ctype.KindInt32, ctype.KindUInt32, ctype.KindInt64, ctype.KindUInt64,
		ctype.KindInt128, ctype.KindUInt128, ctype.KindInt256, ctype.KindUInt256,
		ctype.KindFloat32, ctype.KindFloat64,
		ctype.KindDate, ctype.KindDate32, ctype.KindDateTime, ctype.KindDateTime64,
		ctype.KindUUID, ctype.KindIPv4, ctype.KindIPv6,
		ctype.KindDecimal32, ctype.KindDecimal64, ctype.KindDecimal128, ctype.KindDecimal256,
		ctype.KindEnum8, ctype.KindEnum16, ctype.KindFixedString:
		w := t.Width()
		if len(data) < w {
			return 0, errs.ErrTruncated
		}
		return w, nil

	case ctype.KindString:
		length, n, err := wire.DecodeVarint(data)
		if err != nil {
			return 0, err
		}
		end := n + int(length)
		if end > len(data) {
			return 0, errs.ErrTruncated
		}
		return end, nil

	case ctype.KindArray:
		count, n, err := wire.DecodeVarint(data)
		if err != nil {
			return 0, err
		}
		off := n
		for i := uint64(0); i < count; i++ {
			m, err := Skip(data[off:], t.Elem)
			if err != nil {
				return 0, fmt.Errorf("array element %d: %w", i, err)
			}
			off += m
		}
		return off, nil

	case ctype.KindMap:
		count, n, err := wire.DecodeVarint(data)
		if err != nil {
			return 0, err
		}
		off := n
		for i := uint64(0); i < count; i++ {
			m, err := Skip(data[off:], t.Key)
			if err != nil {
				return 0, fmt.Errorf("map key %d: %w", i, err)
			}
			off += m

			m2, err := Skip(data[off:], t.Value)
			if err != nil {
				return 0, fmt.Errorf("map value %d: %w", i, err)
			}
			off += m2
		}
		return off, nil

	case ctype.KindTuple:
		off := 0
		for i, et := range t.Elems {
			m, err := Skip(data[off:], et)
			if err != nil {
				return 0, fmt.Errorf("tuple element %d: %w", i, err)
			}
			off += m
		}
		return off, nil

	case ctype.KindLowCardinality:
		return Skip(data, t.Elem)

	default:
		return 0, fmt.Errorf("%w: %s", errs.ErrUnknownType, t)
	}
}
