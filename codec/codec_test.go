package codec

import (
	"math/big"
	"net"
	"testing"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseType(t *testing.T, s string) *ctype.Type {
	t.Helper()
	typ, err := ctype.Parse(s)
	require.NoError(t, err)
	return typ
}

func roundTrip(t *testing.T, typeStr string, v cvalue.Value) cvalue.Value {
	t.Helper()
	typ := parseType(t, typeStr)

	buf := pool.NewByteBuffer(64)
	require.NoError(t, Encode(buf, typ, v))

	got, n, err := Decode(buf.Bytes(), typ)
	require.NoError(t, err)
	assert.Equal(t, len(buf.Bytes()), n)

	skipN, err := Skip(buf.Bytes(), typ)
	require.NoError(t, err)
	assert.Equal(t, n, skipN)

	return got
}

func TestCodec_Scalars(t *testing.T) {
	assert.Equal(t, int64(-42), roundTrip(t, "Int32", cvalue.Int(-42)).AsInt())
	assert.Equal(t, uint64(255), roundTrip(t, "UInt8", cvalue.Uint(255)).AsUint())
	assert.Equal(t, true, roundTrip(t, "Bool", cvalue.Bool(true)).AsBool())
	assert.Equal(t, float64(float32(1.5)), roundTrip(t, "Float32", cvalue.Float(1.5)).AsFloat())
	assert.Equal(t, 3.14159265, roundTrip(t, "Float64", cvalue.Float(3.14159265)).AsFloat())
}

func TestCodec_String(t *testing.T) {
	got := roundTrip(t, "String", cvalue.Str("hello world"))
	assert.Equal(t, "hello world", string(got.AsBytes()))
}

func TestCodec_FixedString_PadsWithZeros(t *testing.T) {
	got := roundTrip(t, "FixedString(8)", cvalue.Str("hi"))
	want := append([]byte("hi"), 0, 0, 0, 0, 0, 0)
	assert.Equal(t, want, got.AsBytes())
}

func TestCodec_FixedString_OverflowRejected(t *testing.T) {
	typ := parseType(t, "FixedString(2)")
	buf := pool.NewByteBuffer(16)
	err := Encode(buf, typ, cvalue.Str("too long"))
	assert.ErrorIs(t, err, errs.ErrStringTooLong)
}

func TestCodec_Nullable(t *testing.T) {
	gotNull := roundTrip(t, "Nullable(UInt32)", cvalue.Null())
	assert.True(t, gotNull.IsNull())

	gotVal := roundTrip(t, "Nullable(UInt32)", cvalue.Uint(7))
	assert.Equal(t, uint64(7), gotVal.AsUint())
}

func TestCodec_UUID(t *testing.T) {
	var raw [16]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	got := roundTrip(t, "UUID", cvalue.UUID(raw))
	assert.Equal(t, raw, got.AsUUID())
}

func TestCodec_IPv4(t *testing.T) {
	ip := net.ParseIP("10.0.0.1")
	got := roundTrip(t, "IPv4", cvalue.IPv4(ip))
	assert.True(t, got.AsIP().Equal(ip))
}

func TestCodec_IPv6(t *testing.T) {
	ip := net.ParseIP("2001:db8::cafe")
	got := roundTrip(t, "IPv6", cvalue.IPv6(ip))
	assert.True(t, got.AsIP().Equal(ip))
}

func TestCodec_Decimal(t *testing.T) {
	got := roundTrip(t, "Decimal(10, 2)", cvalue.DecimalFromInt64(1234, 2))
	d := got.AsDecimal()
	assert.Equal(t, 2, d.Scale)
	assert.Equal(t, "123400", d.Coeff.String())
}

func TestCodec_Decimal_RescalesOnWrite(t *testing.T) {
	// value built at scale 0, column declared at scale 2
	got := roundTrip(t, "Decimal(10, 2)", cvalue.DecimalFromInt64(5, 0))
	d := got.AsDecimal()
	assert.Equal(t, 2, d.Scale)
	assert.Equal(t, "500", d.Coeff.String())
}

func TestCodec_Decimal_OverflowRejected(t *testing.T) {
	typ := parseType(t, "Decimal32(9)")
	buf := pool.NewByteBuffer(16)

	huge := new(big.Int).Lsh(big.NewInt(1), 40)
	err := Encode(buf, typ, cvalue.DecimalValue(huge, 9))
	assert.ErrorIs(t, err, errs.ErrDecimalOverflow)
}

func TestCodec_Enum_RoundTrip(t *testing.T) {
	got := roundTrip(t, "Enum8('a' = 1, 'b' = 2)", cvalue.Enum("b"))
	assert.Equal(t, "b", got.AsLabel())
}

func TestCodec_Enum_UnknownLabelRejected(t *testing.T) {
	typ := parseType(t, "Enum8('a' = 1)")
	buf := pool.NewByteBuffer(16)
	err := Encode(buf, typ, cvalue.Enum("z"))
	assert.ErrorIs(t, err, errs.ErrUnknownEnumLabel)
}

func TestCodec_Enum_UnknownCodeRejected(t *testing.T) {
	typ := parseType(t, "Enum8('a' = 1)")
	data := []byte{99}
	_, _, err := Decode(data, typ)
	assert.ErrorIs(t, err, errs.ErrUnknownEnumCode)
}

func TestCodec_Array(t *testing.T) {
	in := cvalue.Array([]cvalue.Value{cvalue.Uint(1), cvalue.Uint(2), cvalue.Uint(3)})
	got := roundTrip(t, "Array(UInt32)", in)
	require.Len(t, got.AsArray(), 3)
	assert.Equal(t, uint64(2), got.AsArray()[1].AsUint())
}

func TestCodec_Map(t *testing.T) {
	in := cvalue.MapOf([]cvalue.KV{
		{Key: cvalue.Str("a"), Value: cvalue.Uint(1)},
		{Key: cvalue.Str("b"), Value: cvalue.Uint(2)},
	})
	got := roundTrip(t, "Map(String, UInt32)", in)
	require.Len(t, got.AsMap(), 2)
	assert.Equal(t, "a", string(got.AsMap()[0].Key.AsBytes()))
	assert.Equal(t, uint64(2), got.AsMap()[1].Value.AsUint())
}

func TestCodec_Tuple(t *testing.T) {
	in := cvalue.Tuple([]cvalue.Value{cvalue.Uint(1), cvalue.Str("x"), cvalue.Bool(true)})
	got := roundTrip(t, "Tuple(UInt32, String, Bool)", in)
	require.Len(t, got.AsTuple(), 3)
	assert.Equal(t, "x", string(got.AsTuple()[1].AsBytes()))
}

func TestCodec_Tuple_WrongArityRejected(t *testing.T) {
	typ := parseType(t, "Tuple(UInt32, String)")
	buf := pool.NewByteBuffer(16)
	err := Encode(buf, typ, cvalue.Tuple([]cvalue.Value{cvalue.Uint(1)}))
	assert.ErrorIs(t, err, errs.ErrWrongColumnCount)
}

func TestCodec_LowCardinality_PassThrough(t *testing.T) {
	got := roundTrip(t, "LowCardinality(String)", cvalue.Str("hi"))
	assert.Equal(t, "hi", string(got.AsBytes()))
}

func TestCodec_NullForNonNullableRejected(t *testing.T) {
	typ := parseType(t, "UInt32")
	buf := pool.NewByteBuffer(16)
	err := Encode(buf, typ, cvalue.Null())
	assert.ErrorIs(t, err, errs.ErrWrongValueKind)
}

func TestCodec_NestedArrayOfTuples(t *testing.T) {
	in := cvalue.Array([]cvalue.Value{
		cvalue.Tuple([]cvalue.Value{cvalue.Uint(1), cvalue.Str("a")}),
		cvalue.Tuple([]cvalue.Value{cvalue.Uint(2), cvalue.Str("b")}),
	})
	got := roundTrip(t, "Array(Tuple(UInt32, String))", in)
	require.Len(t, got.AsArray(), 2)
	assert.Equal(t, "b", string(got.AsArray()[1].AsTuple()[1].AsBytes()))
}
