package codec

import (
	"fmt"
	"net"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// Decode reads one value of type t from the start of data, returning the
// value and the number of bytes consumed.
func Decode(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	if t.Kind == ctype.KindNullable {
		return decodeNullable(data, t)
	}

	switch t.Kind {
	case ctype.KindBool:
		b, n, err := wire.DecodeBool(data)
		return cvalue.Bool(b), n, err

	case ctype.KindInt8, ctype.KindInt16, ctype.KindInt32, ctype.KindInt64:
		v, n, err := wire.DecodeInt(data, t.Width())
		return cvalue.Int(v), n, err

	case ctype.KindUInt8, ctype.KindUInt16, ctype.KindUInt32, ctype.KindUInt64:
		v, n, err := wire.DecodeUint(data, t.Width())
		return cvalue.Uint(v), n, err

	case ctype.KindInt128, ctype.KindInt256:
		v, n, err := wire.DecodeWideInt(data, t.Width())
		return cvalue.BigInt(v), n, err

	case ctype.KindUInt128, ctype.KindUInt256:
		v, n, err := wire.DecodeWideUint(data, t.Width())
		return cvalue.BigInt(v), n, err

	case ctype.KindFloat32:
		v, n, err := wire.DecodeFloat32(data)
		return cvalue.Float(float64(v)), n, err

	case ctype.KindFloat64:
		v, n, err := wire.DecodeFloat64(data)
		return cvalue.Float(v), n, err

	case ctype.KindString:
		return decodeString(data)

	case ctype.KindFixedString:
		return decodeFixedString(data, t)

	case ctype.KindDate:
		v, n, err := wire.DecodeUint(data, 2)
		return cvalue.Uint(v), n, err

	case ctype.KindDate32:
		v, n, err := wire.DecodeInt(data, 4)
		return cvalue.Int(v), n, err

	case ctype.KindDateTime:
		v, n, err := wire.DecodeUint(data, 4)
		return cvalue.Uint(v), n, err

	case ctype.KindDateTime64:
		v, n, err := wire.DecodeInt(data, 8)
		return cvalue.Int(v), n, err

	case ctype.KindUUID:
		return decodeUUID(data)

	case ctype.KindIPv4:
		return decodeIPv4(data)

	case ctype.KindIPv6:
		return decodeIPv6(data)

	case ctype.KindDecimal32, ctype.KindDecimal64, ctype.KindDecimal128, ctype.KindDecimal256:
		return decodeDecimal(data, t)

	case ctype.KindEnum8:
		return decodeEnum(data, t, 1)

	case ctype.KindEnum16:
		return decodeEnum(data, t, 2)

	case ctype.KindArray:
		return decodeArray(data, t)

	case ctype.KindMap:
		return decodeMap(data, t)

	case ctype.KindTuple:
		return decodeTuple(data, t)

	case ctype.KindLowCardinality:
		return Decode(data, t.Elem)

	default:
		return cvalue.Value{}, 0, fmt.Errorf("%w: %s", errs.ErrUnknownType, t)
	}
}

func decodeNullable(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	isNull, n, err := wire.DecodeBool(data)
	if err != nil {
		return cvalue.Value{}, 0, err
	}
	if isNull {
		return cvalue.Null(), n, nil
	}

	v, m, err := Decode(data[n:], t.Elem)
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	return v, n + m, nil
}

func decodeString(data []byte) (cvalue.Value, int, error) {
	length, n, err := wire.DecodeVarint(data)
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	end := n + int(length)
	if end > len(data) {
		return cvalue.Value{}, 0, errs.ErrTruncated
	}

	b := make([]byte, length)
	copy(b, data[n:end])

	return cvalue.Bytes(b), end, nil
}

func decodeFixedString(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	if len(data) < t.FixedLen {
		return cvalue.Value{}, 0, errs.ErrTruncated
	}

	b := make([]byte, t.FixedLen)
	copy(b, data[:t.FixedLen])

	return cvalue.Bytes(b), t.FixedLen, nil
}

func decodeUUID(data []byte) (cvalue.Value, int, error) {
	if len(data) < 16 {
		return cvalue.Value{}, 0, errs.ErrTruncated
	}

	hi := wire.Engine.Uint64(data[0:8])
	lo := wire.Engine.Uint64(data[8:16])

	var id [16]byte
	for i := 0; i < 8; i++ {
		id[7-i] = byte(hi)
		hi >>= 8
	}
	for i := 0; i < 8; i++ {
		id[15-i] = byte(lo)
		lo >>= 8
	}

	return cvalue.UUID(id), 16, nil
}

func decodeIPv4(data []byte) (cvalue.Value, int, error) {
	if len(data) < 4 {
		return cvalue.Value{}, 0, errs.ErrTruncated
	}

	ip := net.IPv4(data[3], data[2], data[1], data[0])

	return cvalue.IPv4(ip), 4, nil
}

func decodeIPv6(data []byte) (cvalue.Value, int, error) {
	if len(data) < 16 {
		return cvalue.Value{}, 0, errs.ErrTruncated
	}

	ip := make(net.IP, 16)
	copy(ip, data[:16])

	return cvalue.IPv6(ip), 16, nil
}

func decodeEnum(data []byte, t *ctype.Type, width int) (cvalue.Value, int, error) {
	code, n, err := wire.DecodeInt(data, width)
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	label, ok := t.EnumLabel(int16(code))
	if !ok {
		return cvalue.Value{}, 0, fmt.Errorf("%w: code %d in %s", errs.ErrUnknownEnumCode, code, t)
	}

	return cvalue.Enum(label), n, nil
}

func decodeArray(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	count, n, err := wire.DecodeVarint(data)
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	elems := make([]cvalue.Value, 0, count)
	off := n
	for i := uint64(0); i < count; i++ {
		v, m, err := Decode(data[off:], t.Elem)
		if err != nil {
			return cvalue.Value{}, 0, fmt.Errorf("array element %d: %w", i, err)
		}
		elems = append(elems, v)
		off += m
	}

	return cvalue.Array(elems), off, nil
}

func decodeMap(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	count, n, err := wire.DecodeVarint(data)
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	entries := make([]cvalue.KV, 0, count)
	off := n
	for i := uint64(0); i < count; i++ {
		k, m, err := Decode(data[off:], t.Key)
		if err != nil {
			return cvalue.Value{}, 0, fmt.Errorf("map key %d: %w", i, err)
		}
		off += m

		v, m2, err := Decode(data[off:], t.Value)
		if err != nil {
			return cvalue.Value{}, 0, fmt.Errorf("map value %d: %w", i, err)
		}
		off += m2

		entries = append(entries, cvalue.KV{Key: k, Value: v})
	}

	return cvalue.MapOf(entries), off, nil
}

func decodeTuple(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	elems := make([]cvalue.Value, 0, len(t.Elems))
	off := 0
	for i, et := range t.Elems {
		v, m, err := Decode(data[off:], et)
		if err != nil {
			return cvalue.Value{}, 0, fmt.Errorf("tuple element %d: %w", i, err)
		}
		elems = append(elems, v)
		off += m
	}

	return cvalue.Tuple(elems), off, nil
}
