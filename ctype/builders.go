package ctype

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/errs"
)

// builderFunc constructs a Type node for one grammar production. hasParens
// reports whether an opening '(' was already consumed by parseType; the
// builder is responsible for consuming its own arguments and the closing
// ')' when hasParens is true.
type builderFunc func(p *Parser, hasParens bool) (*Type, error)

// simpleScalar returns a builder for a parameterless scalar kind: any
// parenthesized argument list is a parse error.
func simpleScalar(k Kind) builderFunc {
	return func(p *Parser, hasParens bool) (*Type, error) {
		if hasParens {
			return nil, fmt.Errorf("%w: %s takes no parameters", errs.ErrInvalidTypeParams, k)
		}

		return &Type{Kind: k}, nil
	}
}

var typeBuilders map[string]builderFunc

func init() {
	typeBuilders = map[string]builderFunc{
		"Int8": simpleScalar(KindInt8), "Int16": simpleScalar(KindInt16),
		"Int32": simpleScalar(KindInt32), "Int64": simpleScalar(KindInt64),
		"Int128": simpleScalar(KindInt128), "Int256": simpleScalar(KindInt256),
		"UInt8": simpleScalar(KindUInt8), "UInt16": simpleScalar(KindUInt16),
		"UInt32": simpleScalar(KindUInt32), "UInt64": simpleScalar(KindUInt64),
		"UInt128": simpleScalar(KindUInt128), "UInt256": simpleScalar(KindUInt256),
		"Float32": simpleScalar(KindFloat32), "Float64": simpleScalar(KindFloat64),
		"Bool":   simpleScalar(KindBool),
		"String": simpleScalar(KindString),
		"Date":   simpleScalar(KindDate),
		"Date32": simpleScalar(KindDate32),
		"UUID":   simpleScalar(KindUUID),
		"IPv4":   simpleScalar(KindIPv4),
		"IPv6":   simpleScalar(KindIPv6),

		"FixedString":    buildFixedString,
		"DateTime":       buildDateTime,
		"DateTime64":     buildDateTime64,
		"Decimal":        buildDecimalGeneric,
		"Decimal32":      buildDecimalDirect(KindDecimal32, 9),
		"Decimal64":      buildDecimalDirect(KindDecimal64, 18),
		"Decimal128":     buildDecimalDirect(KindDecimal128, 38),
		"Decimal256":     buildDecimalDirect(KindDecimal256, 76),
		"Enum8":          buildEnum(KindEnum8, -128, 127),
		"Enum16":         buildEnum(KindEnum16, -32768, 32767),
		"Nullable":       buildNullable,
		"Array":          buildArray,
		"Map":            buildMap,
		"Tuple":          buildTuple,
		"LowCardinality": buildLowCardinality,
	}
}

func buildFixedString(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: FixedString requires a length parameter", errs.ErrInvalidTypeParams)
	}

	n, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: FixedString(%d) must have length >= 1", errs.ErrInvalidTypeParams, n)
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindFixedString, FixedLen: int(n)}, nil
}

func buildDateTime(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return &Type{Kind: KindDateTime}, nil
	}

	tz, err := p.parseStringArg()
	if err != nil {
		return nil, err
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindDateTime, TZ: tz}, nil
}

func buildDateTime64(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: DateTime64 requires a scale parameter", errs.ErrInvalidTypeParams)
	}

	scale, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}
	if scale < 0 || scale > 9 {
		return nil, fmt.Errorf("%w: DateTime64 scale %d out of range [0, 9]", errs.ErrInvalidTypeParams, scale)
	}

	t := &Type{Kind: KindDateTime64, Scale: int(scale)}

	if p.tok.kind == tokComma {
		if err := p.consumeComma(); err != nil {
			return nil, err
		}
		tz, err := p.parseStringArg()
		if err != nil {
			return nil, err
		}
		t.TZ = tz
	}

	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return t, nil
}

// decimalWidthKind picks the narrowest Decimal coefficient width for a given
// precision, per spec.md §3: P<=9->32, <=18->64, <=38->128, <=76->256.
func decimalWidthKind(precision int64) (Kind, bool) {
	switch {
	case precision >= 1 && precision <= 9:
		return KindDecimal32, true
	case precision <= 18:
		return KindDecimal64, true
	case precision <= 38:
		return KindDecimal128, true
	case precision <= 76:
		return KindDecimal256, true
	default:
		return KindInvalid, false
	}
}

func buildDecimalGeneric(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: Decimal requires (precision, scale) parameters", errs.ErrInvalidTypeParams)
	}

	precision, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}
	if err := p.consumeComma(); err != nil {
		return nil, err
	}
	scale, err := p.parseIntArg()
	if err != nil {
		return nil, err
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	if precision < 1 || precision > 76 {
		return nil, fmt.Errorf("%w: Decimal precision %d out of range [1, 76]", errs.ErrInvalidTypeParams, precision)
	}
	if scale < 0 || scale > precision {
		return nil, fmt.Errorf("%w: Decimal scale %d out of range [0, %d]", errs.ErrInvalidTypeParams, scale, precision)
	}

	kind, ok := decimalWidthKind(precision)
	if !ok {
		return nil, fmt.Errorf("%w: Decimal precision %d out of range", errs.ErrInvalidTypeParams, precision)
	}

	return &Type{
		Kind: kind, Scale: int(scale),
		DecimalGeneric: true, DecimalPrecision: int(precision),
	}, nil
}

func buildDecimalDirect(kind Kind, maxPrecision int) builderFunc {
	return func(p *Parser, hasParens bool) (*Type, error) {
		if !hasParens {
			return nil, fmt.Errorf("%w: %s requires a scale parameter", errs.ErrInvalidTypeParams, kind)
		}

		scale, err := p.parseIntArg()
		if err != nil {
			return nil, err
		}
		if err := p.consumeRParen(); err != nil {
			return nil, err
		}

		if scale < 0 || int(scale) > maxPrecision {
			return nil, fmt.Errorf("%w: %s scale %d out of range [0, %d]", errs.ErrInvalidTypeParams, kind, scale, maxPrecision)
		}

		return &Type{Kind: kind, Scale: int(scale)}, nil
	}
}

func buildEnum(kind Kind, minCode, maxCode int64) builderFunc {
	return func(p *Parser, hasParens bool) (*Type, error) {
		if !hasParens {
			return nil, fmt.Errorf("%w: %s requires a mapping", errs.ErrInvalidTypeParams, kind)
		}

		t := &Type{Kind: kind}
		seenNames := map[string]bool{}
		seenCodes := map[int64]bool{}

		for {
			name, err := p.parseStringArg()
			if err != nil {
				return nil, err
			}
			if name == "" {
				return nil, fmt.Errorf("%w: enum label must not be empty", errs.ErrInvalidTypeParams)
			}
			if seenNames[name] {
				return nil, fmt.Errorf("%w: duplicate enum label %q", errs.ErrInvalidTypeParams, name)
			}

			if _, err := p.expect(tokEquals); err != nil {
				return nil, err
			}

			code, err := p.parseIntArg()
			if err != nil {
				return nil, err
			}
			if code < minCode || code > maxCode {
				return nil, fmt.Errorf("%w: %s code %d out of range [%d, %d]", errs.ErrInvalidTypeParams, kind, code, minCode, maxCode)
			}
			if seenCodes[code] {
				return nil, fmt.Errorf("%w: duplicate enum code %d", errs.ErrInvalidTypeParams, code)
			}

			seenNames[name] = true
			seenCodes[code] = true
			t.EnumNames = append(t.EnumNames, name)
			t.EnumValues = append(t.EnumValues, int16(code))

			if p.tok.kind == tokComma {
				if err := p.consumeComma(); err != nil {
					return nil, err
				}

				continue
			}

			break
		}

		if len(t.EnumNames) == 0 {
			return nil, fmt.Errorf("%w: %s requires at least one label", errs.ErrInvalidTypeParams, kind)
		}
		if err := p.consumeRParen(); err != nil {
			return nil, err
		}

		return t, nil
	}
}

// isNestableUnderNullable rejects the ClickHouse-illegal Nullable(Nullable(T))
// and Nullable(Array(T))/Nullable(Map(K,V)) combinations.
func isNestableUnderNullable(inner *Type) error {
	switch inner.Kind {
	case KindNullable:
		return fmt.Errorf("%w: Nullable(Nullable(...)) is not allowed", errs.ErrUnsupportedNesting)
	case KindArray:
		return fmt.Errorf("%w: Nullable(Array(...)) is not allowed", errs.ErrUnsupportedNesting)
	case KindMap:
		return fmt.Errorf("%w: Nullable(Map(...)) is not allowed", errs.ErrUnsupportedNesting)
	default:
		return nil
	}
}

func buildNullable(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: Nullable requires a type parameter", errs.ErrInvalidTypeParams)
	}

	inner, err := p.parseSubType()
	if err != nil {
		return nil, err
	}
	if err := isNestableUnderNullable(inner); err != nil {
		return nil, err
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindNullable, Elem: inner}, nil
}

func buildArray(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: Array requires a type parameter", errs.ErrInvalidTypeParams)
	}

	inner, err := p.parseSubType()
	if err != nil {
		return nil, err
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindArray, Elem: inner}, nil
}

// isScalarKey reports whether a type is valid as a Map key per spec.md §3
// ("K is a scalar type"): anything but Array/Map/Tuple/Nullable/LowCardinality.
func isScalarKey(t *Type) bool {
	switch t.Kind {
	case KindArray, KindMap, KindTuple, KindNullable, KindLowCardinality:
		return false
	default:
		return true
	}
}

func buildMap(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: Map requires (key, value) type parameters", errs.ErrInvalidTypeParams)
	}

	key, err := p.parseSubType()
	if err != nil {
		return nil, err
	}
	if !isScalarKey(key) {
		return nil, fmt.Errorf("%w: Map key type %s is not scalar", errs.ErrInvalidTypeParams, key)
	}
	if err := p.consumeComma(); err != nil {
		return nil, err
	}
	value, err := p.parseSubType()
	if err != nil {
		return nil, err
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindMap, Key: key, Value: value}, nil
}

func buildTuple(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: Tuple requires at least one type parameter", errs.ErrInvalidTypeParams)
	}

	var elems []*Type
	for {
		elem, err := p.parseSubType()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)

		if p.tok.kind == tokComma {
			if err := p.consumeComma(); err != nil {
				return nil, err
			}

			continue
		}

		break
	}

	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: Tuple requires at least one element type", errs.ErrInvalidTypeParams)
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindTuple, Elems: elems}, nil
}

// isLowCardinalityElem reports whether a type may be wrapped in
// LowCardinality: a scalar, or Nullable(scalar), per spec.md §3.
func isLowCardinalityElem(t *Type) bool {
	if t.Kind == KindNullable {
		return isScalarKey(t.Elem)
	}

	return isScalarKey(t)
}

func buildLowCardinality(p *Parser, hasParens bool) (*Type, error) {
	if !hasParens {
		return nil, fmt.Errorf("%w: LowCardinality requires a type parameter", errs.ErrInvalidTypeParams)
	}

	inner, err := p.parseSubType()
	if err != nil {
		return nil, err
	}
	if !isLowCardinalityElem(inner) {
		return nil, fmt.Errorf("%w: LowCardinality(%s) must wrap a scalar or Nullable(scalar)", errs.ErrInvalidTypeParams, inner)
	}
	if err := p.consumeRParen(); err != nil {
		return nil, err
	}

	return &Type{Kind: KindLowCardinality, Elem: inner}, nil
}
