package ctype

import (
	"strconv"
	"strings"
)

// Type is a parsed node of the ClickHouse type grammar. Only the fields
// relevant to Kind are populated; the zero value of the others is ignored.
type Type struct {
	Kind Kind

	// FixedString(n)
	FixedLen int

	// DateTime(tz?) / DateTime64(scale, tz?)
	TZ string

	// DateTime64(scale) / Decimal*(scale) / DecimalGeneric(p, scale)
	Scale int

	// Set when this is the generic "Decimal(P, S)" spelling rather than a
	// direct "DecimalN(S)" one; both resolve to the same Kind/Width via
	// promotion, but the canonical string preserves the spelling used.
	DecimalGeneric   bool
	DecimalPrecision int

	// Enum8/Enum16: parallel slices, code[i] is the wire value for name[i].
	EnumNames  []string
	EnumValues []int16

	// Nullable(T) / Array(T) / LowCardinality(T)
	Elem *Type

	// Map(K, V)
	Key   *Type
	Value *Type

	// Tuple(T1, ..., Tk)
	Elems []*Type
}

// Width returns the wire byte width of a fixed-width scalar Kind (integers,
// Decimal coefficients, UUID, IPv4/6, Date/Date32/DateTime/DateTime64).
// It panics for variable-length or compound kinds; callers only call it
// after dispatching on Kind.
func (t *Type) Width() int {
	switch t.Kind {
	case KindBool:
		return 1
	case KindDate:
		return 2
	case KindDate32, KindDateTime:
		return 4
	case KindDateTime64:
		return 8
	case KindUUID, KindIPv6:
		return 16
	case KindIPv4:
		return 4
	case KindFloat32:
		return 4
	case KindFloat64:
		return 8
	case KindEnum8:
		return 1
	case KindEnum16:
		return 2
	case KindFixedString:
		return t.FixedLen
	}

	if w, ok := intWidths[t.Kind]; ok {
		return w
	}
	if w, ok := decimalWidths[t.Kind]; ok {
		return w
	}

	panic("ctype: Width called on non-fixed-width kind " + t.Kind.String())
}

// IsSigned reports whether an integer Kind is signed.
func (t *Type) IsSigned() bool { return isSignedInt(t.Kind) }

// String renders the canonical, normalized spelling of the type, used for
// schema equality and RowBinaryWithNamesAndTypes headers.
func (t *Type) String() string {
	var b strings.Builder
	t.writeTo(&b)

	return b.String()
}

func (t *Type) writeTo(b *strings.Builder) {
	switch t.Kind {
	case KindFixedString:
		b.WriteString("FixedString(")
		b.WriteString(strconv.Itoa(t.FixedLen))
		b.WriteByte(')')

	case KindDateTime:
		b.WriteString("DateTime")
		if t.TZ != "" {
			b.WriteByte('(')
			writeQuoted(b, t.TZ)
			b.WriteByte(')')
		}

	case KindDateTime64:
		b.WriteString("DateTime64(")
		b.WriteString(strconv.Itoa(t.Scale))
		if t.TZ != "" {
			b.WriteString(", ")
			writeQuoted(b, t.TZ)
		}
		b.WriteByte(')')

	case KindDecimal32, KindDecimal64, KindDecimal128, KindDecimal256:
		if t.DecimalGeneric {
			b.WriteString("Decimal(")
			b.WriteString(strconv.Itoa(t.DecimalPrecision))
			b.WriteString(", ")
			b.WriteString(strconv.Itoa(t.Scale))
			b.WriteByte(')')
		} else {
			b.WriteString(t.Kind.String())
			b.WriteByte('(')
			b.WriteString(strconv.Itoa(t.Scale))
			b.WriteByte(')')
		}

	case KindEnum8, KindEnum16:
		b.WriteString(t.Kind.String())
		b.WriteByte('(')
		for i, name := range t.EnumNames {
			if i > 0 {
				b.WriteString(", ")
			}
			writeQuoted(b, name)
			b.WriteString(" = ")
			b.WriteString(strconv.Itoa(int(t.EnumValues[i])))
		}
		b.WriteByte(')')

	case KindNullable:
		b.WriteString("Nullable(")
		t.Elem.writeTo(b)
		b.WriteByte(')')

	case KindArray:
		b.WriteString("Array(")
		t.Elem.writeTo(b)
		b.WriteByte(')')

	case KindLowCardinality:
		b.WriteString("LowCardinality(")
		t.Elem.writeTo(b)
		b.WriteByte(')')

	case KindMap:
		b.WriteString("Map(")
		t.Key.writeTo(b)
		b.WriteString(", ")
		t.Value.writeTo(b)
		b.WriteByte(')')

	case KindTuple:
		b.WriteString("Tuple(")
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.writeTo(b)
		}
		b.WriteByte(')')

	default:
		b.WriteString(t.Kind.String())
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
}

// Equal reports whether two types have the same canonical string form.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.String() == other.String()
}

// EnumCode looks up the wire code for a label; ok is false if absent.
func (t *Type) EnumCode(label string) (int16, bool) {
	for i, n := range t.EnumNames {
		if n == label {
			return t.EnumValues[i], true
		}
	}

	return 0, false
}

// EnumLabel looks up the label for a wire code; ok is false if absent.
func (t *Type) EnumLabel(code int16) (string, bool) {
	for i, v := range t.EnumValues {
		if v == code {
			return t.EnumNames[i], true
		}
	}

	return "", false
}
