// Package codec implements the per-type encode/decode/skip logic that maps
// a cvalue.Value to and from its RowBinary wire bytes, dispatched on a
// ctype.Type. Encode/Decode are called once per row per column; Skip exists
// purely to let seekable.Reader compute intra-frame row boundaries without
// materializing values it isn't asked for.
package codec

import (
	"fmt"
	"net"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// Encode appends the wire encoding of v under type t to buf.
func Encode(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	if t.Kind == ctype.KindNullable {
		return encodeNullable(buf, t, v)
	}
	if v.Kind() == cvalue.KindNull {
		return fmt.Errorf("%w: null value for non-Nullable type %s", errs.ErrWrongValueKind, t)
	}

	switch t.Kind {
	case ctype.KindBool:
		buf.B = wire.AppendBool(buf.B, v.AsBool())
		return nil

	case ctype.KindInt8, ctype.KindInt16, ctype.KindInt32, ctype.KindInt64:
		n := v.AsInt()
		if !wire.FitsInt(n, t.Width()) {
			return fmt.Errorf("%w: %d does not fit in %s", errs.ErrValueOutOfRange, n, t)
		}
		buf.B = wire.AppendInt(buf.B, n, t.Width())
		return nil

	case ctype.KindUInt8, ctype.KindUInt16, ctype.KindUInt32, ctype.KindUInt64:
		n := v.AsUint()
		if !wire.FitsUint(n, t.Width()) {
			return fmt.Errorf("%w: %d does not fit in %s", errs.ErrValueOutOfRange, n, t)
		}
		buf.B = wire.AppendUint(buf.B, n, t.Width())
		return nil

	case ctype.KindInt128, ctype.KindInt256:
		n := v.AsBigInt()
		if !wire.FitsWideInt(n, t.Width(), true) {
			return fmt.Errorf("%w: value does not fit in %s", errs.ErrValueOutOfRange, t)
		}
		buf.B = wire.AppendWideInt(buf.B, wire.TwosComplement(n, t.Width()), t.Width())
		return nil

	case ctype.KindUInt128, ctype.KindUInt256:
		n := v.AsBigInt()
		if !wire.FitsWideInt(n, t.Width(), false) {
			return fmt.Errorf("%w: value does not fit in %s", errs.ErrValueOutOfRange, t)
		}
		buf.B = wire.AppendWideInt(buf.B, n, t.Width())
		return nil

	case ctype.KindFloat32:
		buf.B = wire.AppendFloat32(buf.B, float32(v.AsFloat()))
		return nil

	case ctype.KindFloat64:
		buf.B = wire.AppendFloat64(buf.B, v.AsFloat())
		return nil

	case ctype.KindString:
		return encodeString(buf, v.AsBytes())

	case ctype.KindFixedString:
		return encodeFixedString(buf, t, v.AsBytes())

	case ctype.KindDate:
		n := v.AsUint()
		if !wire.FitsUint(n, 2) {
			return fmt.Errorf("%w: %d does not fit in %s", errs.ErrValueOutOfRange, n, t)
		}
		buf.B = wire.AppendUint(buf.B, n, 2)
		return nil

	case ctype.KindDate32:
		n := v.AsInt()
		if !wire.FitsInt(n, 4) {
			return fmt.Errorf("%w: %d does not fit in %s", errs.ErrValueOutOfRange, n, t)
		}
		buf.B = wire.AppendInt(buf.B, n, 4)
		return nil

	case ctype.KindDateTime:
		n := v.AsUint()
		if !wire.FitsUint(n, 4) {
			return fmt.Errorf("%w: %d does not fit in %s", errs.ErrValueOutOfRange, n, t)
		}
		buf.B = wire.AppendUint(buf.B, n, 4)
		return nil

	case ctype.KindDateTime64:
		buf.B = wire.AppendInt(buf.B, v.AsInt(), 8)
		return nil

	case ctype.KindUUID:
		return encodeUUID(buf, v.AsUUID())

	case ctype.KindIPv4:
		return encodeIPv4(buf, v.AsIP())

	case ctype.KindIPv6:
		return encodeIPv6(buf, v.AsIP())

	case ctype.KindDecimal32, ctype.KindDecimal64, ctype.KindDecimal128, ctype.KindDecimal256:
		return encodeDecimal(buf, t, v)

	case ctype.KindEnum8:
		return encodeEnum(buf, t, v, 1)

	case ctype.KindEnum16:
		return encodeEnum(buf, t, v, 2)

	case ctype.KindArray:
		return encodeArray(buf, t, v)

	case ctype.KindMap:
		return encodeMap(buf, t, v)

	case ctype.KindTuple:
		return encodeTuple(buf, t, v)

	case ctype.KindLowCardinality:
		return Encode(buf, t.Elem, v)

	default:
		return fmt.Errorf("%w: %s", errs.ErrUnknownType, t)
	}
}

func encodeNullable(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	if v.Kind() == cvalue.KindNull {
		buf.B = wire.AppendBool(buf.B, true)
		return nil
	}

	buf.B = wire.AppendBool(buf.B, false)

	return Encode(buf, t.Elem, v)
}

func encodeString(buf *pool.ByteBuffer, b []byte) error {
	buf.B = wire.AppendVarint(buf.B, uint64(len(b)))
	buf.MustWrite(b)

	return nil
}

func encodeFixedString(buf *pool.ByteBuffer, t *ctype.Type, b []byte) error {
	if len(b) > t.FixedLen {
		return fmt.Errorf("%w: %d bytes into FixedString(%d)", errs.ErrStringTooLong, len(b), t.FixedLen)
	}

	buf.MustWrite(b)
	for i := len(b); i < t.FixedLen; i++ {
		buf.B = append(buf.B, 0)
	}

	return nil
}

// encodeUUID writes the high 64 bits then the low 64 bits, each in their
// own little-endian order — ClickHouse's historical UUID wire quirk.
func encodeUUID(buf *pool.ByteBuffer, id [16]byte) error {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(id[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(id[i])
	}

	buf.B = wire.Engine.AppendUint64(buf.B, hi)
	buf.B = wire.Engine.AppendUint64(buf.B, lo)

	return nil
}

func encodeIPv4(buf *pool.ByteBuffer, ip net.IP) error {
	ip4 := ip.To4()
	if ip4 == nil {
		return fmt.Errorf("%w: not an IPv4 address", errs.ErrWrongValueKind)
	}

	// Wire order is little-endian host order: reverse the 4 network-order bytes.
	buf.B = append(buf.B, ip4[3], ip4[2], ip4[1], ip4[0])

	return nil
}

func encodeIPv6(buf *pool.ByteBuffer, ip net.IP) error {
	ip16 := ip.To16()
	if ip16 == nil {
		return fmt.Errorf("%w: not an IPv6 address", errs.ErrWrongValueKind)
	}

	buf.MustWrite(ip16)

	return nil
}

func encodeEnum(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value, width int) error {
	code, ok := t.EnumCode(v.AsLabel())
	if !ok {
		return fmt.Errorf("%w: %q in %s", errs.ErrUnknownEnumLabel, v.AsLabel(), t)
	}

	buf.B = wire.AppendInt(buf.B, int64(code), width)

	return nil
}

func encodeArray(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	elems := v.AsArray()
	buf.B = wire.AppendVarint(buf.B, uint64(len(elems)))

	for i, e := range elems {
		if err := Encode(buf, t.Elem, e); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}

	return nil
}

func encodeMap(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	entries := v.AsMap()
	buf.B = wire.AppendVarint(buf.B, uint64(len(entries)))

	for i, kv := range entries {
		if err := Encode(buf, t.Key, kv.Key); err != nil {
			return fmt.Errorf("map key %d: %w", i, err)
		}
		if err := Encode(buf, t.Value, kv.Value); err != nil {
			return fmt.Errorf("map value %d: %w", i, err)
		}
	}

	return nil
}

func encodeTuple(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	elems := v.AsTuple()
	if len(elems) != len(t.Elems) {
		return fmt.Errorf("%w: tuple has %d elements, type wants %d", errs.ErrWrongColumnCount, len(elems), len(t.Elems))
	}

	for i, e := range elems {
		if err := Encode(buf, t.Elems[i], e); err != nil {
			return fmt.Errorf("tuple element %d: %w", i, err)
		}
	}

	return nil
}
