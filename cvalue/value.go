// Package cvalue implements the abstract value taxonomy a ClickHouse
// RowBinary row is built from: the decoded Go-side representation of every
// kind in ctype.Kind, independent of how it arrived (parsed literal, driver
// row, application struct). It is the substrate the codec package encodes
// from and decodes into.
package cvalue

import (
	"math/big"
	"net"
	"time"
)

// Kind identifies which field of Value is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindUint
	KindInt
	KindBigInt
	KindFloat
	KindBool
	KindBytes
	KindDecimal
	KindUUID
	KindIP
	KindEnum
	KindArray
	KindMap
	KindTuple
)

// KV is one entry of a Map value.
type KV struct {
	Key   Value
	Value Value
}

// Decimal is a fixed-point number: Coeff * 10^-Scale.
type Decimal struct {
	Coeff *big.Int
	Scale int
}

// Value is a tagged union over every abstract kind spec.md §3 names. Only
// the field matching Kind is meaningful; the zero value of the others is
// ignored. Values are immutable once constructed.
type Value struct {
	kind Kind

	u64     uint64
	i64     int64
	big     *big.Int
	f64     float64
	b       bool
	bytes   []byte
	decimal Decimal
	uuid    [16]byte
	ip      net.IP
	label   string

	seq   []Value
	kv    []KV
	tuple []Value
}

// Kind reports which field of the Value is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v represents a Nullable column's null state.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Null constructs the null value of a Nullable column.
func Null() Value { return Value{kind: KindNull} }

// Uint constructs an unsigned integer value (UInt8..UInt64, Enum code
// storage notwithstanding).
func Uint(v uint64) Value { return Value{kind: KindUint, u64: v} }

// Int constructs a signed integer value (Int8..Int64).
func Int(v int64) Value { return Value{kind: KindInt, i64: v} }

// BigInt constructs an arbitrary-precision integer value, used for
// Int128/256 and UInt128/256.
func BigInt(v *big.Int) Value { return Value{kind: KindBigInt, big: v} }

// Float constructs a Float32/Float64 value.
func Float(v float64) Value { return Value{kind: KindFloat, f64: v} }

// Bool constructs a Bool value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Bytes constructs a raw byte-string value, used for both String and
// FixedString; the codec layer handles length framing and zero-padding.
func Bytes(v []byte) Value { return Value{kind: KindBytes, bytes: v} }

// Str is a convenience wrapper over Bytes for Go string literals.
func Str(s string) Value { return Value{kind: KindBytes, bytes: []byte(s)} }

// DecimalValue constructs a Decimal value from an explicit coefficient and
// scale: the represented number is Coeff * 10^-Scale.
func DecimalValue(coeff *big.Int, scale int) Value {
	return Value{kind: KindDecimal, decimal: Decimal{Coeff: coeff, Scale: scale}}
}

// DecimalFromInt64 builds a Decimal value representing an exact integer at
// the given scale (coefficient = v * 10^scale).
func DecimalFromInt64(v int64, scale int) Value {
	coeff := new(big.Int).Mul(big.NewInt(v), pow10(scale))

	return DecimalValue(coeff, scale)
}

// DecimalFromFloat64 builds a Decimal value by quantizing v to the given
// scale using round-half-to-even, matching ClickHouse's own Decimal
// conversion semantics.
func DecimalFromFloat64(v float64, scale int) Value {
	scaled := new(big.Float).Mul(big.NewFloat(v), new(big.Float).SetInt(pow10(scale)))

	coeff, _ := roundHalfEven(scaled)

	return DecimalValue(coeff, scale)
}

func pow10(scale int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
}

// roundHalfEven rounds a big.Float to the nearest integer, breaking ties
// toward the even neighbor.
func roundHalfEven(f *big.Float) (*big.Int, big.Accuracy) {
	if f.Sign() < 0 {
		r, acc := roundHalfEven(new(big.Float).Neg(f))
		return r.Neg(r), acc
	}

	floor := new(big.Int)
	frac := new(big.Float)
	f.Int(floor)
	frac.Sub(f, new(big.Float).SetInt(floor))

	half := big.NewFloat(0.5)
	cmp := frac.Cmp(half)

	switch {
	case cmp < 0:
		return floor, big.Exact
	case cmp > 0:
		return floor.Add(floor, big.NewInt(1)), big.Exact
	default:
		if floor.Bit(0) == 1 {
			floor.Add(floor, big.NewInt(1))
		}

		return floor, big.Exact
	}
}

// UUID constructs a UUID value from its 16 raw bytes in RFC-4122 order;
// codec handles the wire format's high/low 64-bit swap.
func UUID(b [16]byte) Value { return Value{kind: KindUUID, uuid: b} }

// IPv4 constructs an IPv4 value from a 4-byte address.
func IPv4(ip net.IP) Value { return Value{kind: KindIP, ip: ip.To4()} }

// IPv6 constructs an IPv6 value from a 16-byte address.
func IPv6(ip net.IP) Value { return Value{kind: KindIP, ip: ip.To16()} }

// Enum constructs an enum value identified by its label; the codec layer
// resolves the label to a wire code via the column's ctype.Type.
func Enum(label string) Value { return Value{kind: KindEnum, label: label} }

// Array constructs an ordered sequence value.
func Array(elems []Value) Value { return Value{kind: KindArray, seq: elems} }

// MapOf constructs a key-value mapping value.
func MapOf(entries []KV) Value { return Value{kind: KindMap, kv: entries} }

// Tuple constructs a fixed-arity heterogeneous value.
func Tuple(elems []Value) Value { return Value{kind: KindTuple, tuple: elems} }

// AsUint returns the value's uint64 payload; meaningful only when
// Kind() == KindUint.
func (v Value) AsUint() uint64 { return v.u64 }

// AsInt returns the value's int64 payload; meaningful only when
// Kind() == KindInt.
func (v Value) AsInt() int64 { return v.i64 }

// AsBigInt returns the value's big.Int payload; meaningful only when
// Kind() == KindBigInt.
func (v Value) AsBigInt() *big.Int { return v.big }

// AsFloat returns the value's float64 payload; meaningful only when
// Kind() == KindFloat.
func (v Value) AsFloat() float64 { return v.f64 }

// AsBool returns the value's bool payload; meaningful only when
// Kind() == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsBytes returns the value's raw byte-string payload; meaningful only when
// Kind() == KindBytes.
func (v Value) AsBytes() []byte { return v.bytes }

// AsDecimal returns the value's Decimal payload; meaningful only when
// Kind() == KindDecimal.
func (v Value) AsDecimal() Decimal { return v.decimal }

// AsUUID returns the value's 16-byte UUID payload; meaningful only when
// Kind() == KindUUID.
func (v Value) AsUUID() [16]byte { return v.uuid }

// AsIP returns the value's IPv4/IPv6 payload; meaningful only when
// Kind() == KindIP.
func (v Value) AsIP() net.IP { return v.ip }

// AsLabel returns the value's enum label payload; meaningful only when
// Kind() == KindEnum.
func (v Value) AsLabel() string { return v.label }

// AsArray returns the value's element slice; meaningful only when
// Kind() == KindArray.
func (v Value) AsArray() []Value { return v.seq }

// AsMap returns the value's entry slice; meaningful only when
// Kind() == KindMap.
func (v Value) AsMap() []KV { return v.kv }

// AsTuple returns the value's element slice; meaningful only when
// Kind() == KindTuple.
func (v Value) AsTuple() []Value { return v.tuple }

// AsTime interprets a KindInt/KindUint value as a Unix-epoch-based instant
// (seconds for Date/DateTime-width values, or the raw tick count for
// DateTime64 which the caller must have already divided by 10^scale) and
// returns the corresponding UTC time.Time. The declared display timezone of
// a DateTime/DateTime64 column lives on its ctype.Type, not on the value;
// attaching it for display is the caller's responsibility.
func (v Value) AsTime() time.Time {
	switch v.kind {
	case KindUint:
		return time.Unix(int64(v.u64), 0).UTC()
	case KindInt:
		return time.Unix(v.i64, 0).UTC()
	default:
		return time.Time{}
	}
}
