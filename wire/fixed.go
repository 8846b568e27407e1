package wire

import (
	"math"
	"math/big"

	"github.com/dovreshef/clickhouse-rowbinary/endian"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
)

// Engine is the byte order used for every RowBinary primitive. ClickHouse's
// wire format is always little-endian; this package still threads an
// endian.EndianEngine through its calls (rather than hardcoding
// binary.LittleEndian) so callers use the same AppendByteOrder-based API
// as the rest of the module instead of a slower put-into-temp-then-append
// one.
var Engine = endian.GetLittleEndianEngine()

// AppendBool appends a single byte: 1 for true, 0 for false.
func AppendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}

	return append(buf, 0)
}

// DecodeBool reads a single bool byte. Any non-zero byte decodes true,
// matching ClickHouse's own lenient Bool reader.
func DecodeBool(data []byte) (bool, int, error) {
	if len(data) < 1 {
		return false, 0, errs.ErrTruncated
	}

	return data[0] != 0, 1, nil
}

// AppendUint appends an unsigned integer of the given byte width (1, 2, 4,
// or 8) in little-endian order.
func AppendUint(buf []byte, v uint64, width int) []byte {
	switch width {
	case 1:
		return append(buf, byte(v))
	case 2:
		return Engine.AppendUint16(buf, uint16(v))
	case 4:
		return Engine.AppendUint32(buf, uint32(v))
	case 8:
		return Engine.AppendUint64(buf, v)
	default:
		panic("wire: unsupported uint width")
	}
}

// FitsUint reports whether v fits in an unsigned integer of the given byte
// width without truncation. Width 8 always fits since v is already a
// uint64.
func FitsUint(v uint64, width int) bool {
	if width >= 8 {
		return true
	}

	max := uint64(1)<<(uint(width)*8) - 1

	return v <= max
}

// DecodeUint reads an unsigned integer of the given byte width.
func DecodeUint(data []byte, width int) (uint64, int, error) {
	if len(data) < width {
		return 0, 0, errs.ErrTruncated
	}

	switch width {
	case 1:
		return uint64(data[0]), 1, nil
	case 2:
		return uint64(Engine.Uint16(data)), 2, nil
	case 4:
		return uint64(Engine.Uint32(data)), 4, nil
	case 8:
		return Engine.Uint64(data), 8, nil
	default:
		panic("wire: unsupported uint width")
	}
}

// AppendInt appends a signed integer of the given byte width using its
// two's-complement bit pattern.
func AppendInt(buf []byte, v int64, width int) []byte {
	return AppendUint(buf, uint64(v), width)
}

// FitsInt reports whether v fits in a signed integer of the given byte
// width without truncation. Width 8 always fits since v is already an
// int64.
func FitsInt(v int64, width int) bool {
	if width >= 8 {
		return true
	}

	bits := uint(width) * 8
	max := int64(1)<<(bits-1) - 1
	min := -(int64(1) << (bits - 1))

	return v >= min && v <= max
}

// DecodeInt reads a signed integer of the given byte width, sign-extending
// from the two's-complement bit pattern.
func DecodeInt(data []byte, width int) (int64, int, error) {
	u, n, err := DecodeUint(data, width)
	if err != nil {
		return 0, 0, err
	}

	switch width {
	case 1:
		return int64(int8(u)), n, nil
	case 2:
		return int64(int16(u)), n, nil
	case 4:
		return int64(int32(u)), n, nil
	case 8:
		return int64(u), n, nil
	default:
		panic("wire: unsupported int width")
	}
}

// AppendFloat32 appends an IEEE-754 binary32 value, little-endian.
func AppendFloat32(buf []byte, v float32) []byte {
	return Engine.AppendUint32(buf, math.Float32bits(v))
}

// DecodeFloat32 reads an IEEE-754 binary32 value.
func DecodeFloat32(data []byte) (float32, int, error) {
	if len(data) < 4 {
		return 0, 0, errs.ErrTruncated
	}

	return math.Float32frombits(Engine.Uint32(data)), 4, nil
}

// AppendFloat64 appends an IEEE-754 binary64 value, little-endian.
func AppendFloat64(buf []byte, v float64) []byte {
	return Engine.AppendUint64(buf, math.Float64bits(v))
}

// DecodeFloat64 reads an IEEE-754 binary64 value.
func DecodeFloat64(data []byte) (float64, int, error) {
	if len(data) < 8 {
		return 0, 0, errs.ErrTruncated
	}

	return math.Float64frombits(Engine.Uint64(data)), 8, nil
}

// AppendWideInt appends width bytes of v's two's-complement (signed) or
// magnitude (unsigned) representation, little-endian. Used for
// Int128/UInt128/Int256/UInt256 and Decimal coefficients of every width.
//
// For signed negative values, v is expected to already be in its
// two's-complement form over `width` bytes; callers pass a big.Int
// produced by TwosComplement.
func AppendWideInt(buf []byte, v *big.Int, width int) []byte {
	bytes := v.Bytes() // big-endian magnitude, no sign

	out := make([]byte, width)
	// v.Bytes() is big-endian; reverse into little-endian, zero-filling
	// the high-order bytes (the caller has already folded sign into
	// magnitude via TwosComplement when needed).
	n := len(bytes)
	for i := 0; i < n && i < width; i++ {
		out[i] = bytes[n-1-i]
	}

	return append(buf, out...)
}

// DecodeWideUint reads width little-endian bytes as an unsigned magnitude.
func DecodeWideUint(data []byte, width int) (*big.Int, int, error) {
	if len(data) < width {
		return nil, 0, errs.ErrTruncated
	}

	be := make([]byte, width)
	for i := 0; i < width; i++ {
		be[width-1-i] = data[i]
	}

	return new(big.Int).SetBytes(be), width, nil
}

// DecodeWideInt reads width little-endian bytes as a two's-complement
// signed integer.
func DecodeWideInt(data []byte, width int) (*big.Int, int, error) {
	u, n, err := DecodeWideUint(data, width)
	if err != nil {
		return nil, 0, err
	}

	// If the top bit is set, the value is negative: subtract 2^(8*width).
	topBit := width*8 - 1
	if u.Bit(topBit) == 1 {
		modulus := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		u.Sub(u, modulus)
	}

	return u, n, nil
}

// FitsWideInt reports whether v fits in a width-byte wide integer: the
// signed two's-complement range [-2^(8w-1), 2^(8w-1)-1] when signed is
// true, or the unsigned magnitude range [0, 2^(8w)-1] otherwise.
func FitsWideInt(v *big.Int, width int, signed bool) bool {
	bits := uint(width) * 8

	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
		min := new(big.Int).Neg(limit)
		max := new(big.Int).Sub(limit, big.NewInt(1))

		return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
	}

	if v.Sign() < 0 {
		return false
	}

	limit := new(big.Int).Lsh(big.NewInt(1), bits)

	return v.Cmp(limit) < 0
}

// TwosComplement folds a signed big.Int into its unsigned two's-complement
// representation over `width` bytes, ready for AppendWideInt.
func TwosComplement(v *big.Int, width int) *big.Int {
	if v.Sign() >= 0 {
		return v
	}

	modulus := new(big.Int).Lsh(big.NewInt(1), uint(width*8))

	return new(big.Int).Add(modulus, v)
}
