package ctype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dovreshef/clickhouse-rowbinary/errs"
)

// tokKind enumerates the lexical classes the tokenizer produces.
type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokString
	tokLParen
	tokRParen
	tokComma
	tokEquals
)

type token struct {
	kind tokKind
	text string // raw text for ident/int, unescaped value for string
	pos  int    // byte offset in the original input, for error messages
}

// lexer tokenizes a ClickHouse type string. Identifiers are runs of
// alphanumerics/underscore; integers are optionally-signed digit runs;
// strings are single-quoted with `\\` and `\'` escapes; punctuation is
// '(', ')', ',', '='. Whitespace between tokens is skipped and not
// preserved in the canonical form.
type lexer struct {
	s   string
	pos int
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.s) {
		return 0
	}

	return l.s[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.s) && (l.s[l.pos] == ' ' || l.s[l.pos] == '\t' || l.s[l.pos] == '\n') {
		l.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func (l *lexer) next() (token, error) {
	l.skipSpace()

	if l.pos >= len(l.s) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	b := l.s[l.pos]

	switch {
	case b == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case b == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case b == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case b == '=':
		l.pos++
		return token{kind: tokEquals, pos: start}, nil
	case b == '\'':
		return l.lexString(start)
	case b == '-' || (b >= '0' && b <= '9'):
		return l.lexInt(start)
	case isIdentStart(b):
		for l.pos < len(l.s) && isIdentPart(l.s[l.pos]) {
			l.pos++
		}

		return token{kind: tokIdent, text: l.s[start:l.pos], pos: start}, nil
	default:
		return token{}, fmt.Errorf("%w: unexpected character %q at position %d", errs.ErrInvalidTypeParams, b, start)
	}
}

func (l *lexer) lexInt(start int) (token, error) {
	l.pos++ // consume leading '-' or first digit
	for l.pos < len(l.s) && l.s[l.pos] >= '0' && l.s[l.pos] <= '9' {
		l.pos++
	}

	text := l.s[start:l.pos]
	if text == "-" {
		return token{}, fmt.Errorf("%w: malformed integer at position %d", errs.ErrInvalidTypeParams, start)
	}

	return token{kind: tokInt, text: text, pos: start}, nil
}

func (l *lexer) lexString(start int) (token, error) {
	l.pos++ // consume opening quote

	var b strings.Builder
	for {
		if l.pos >= len(l.s) {
			return token{}, fmt.Errorf("%w: unterminated string literal starting at position %d", errs.ErrInvalidTypeParams, start)
		}

		c := l.s[l.pos]
		switch c {
		case '\'':
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.s) {
				return token{}, fmt.Errorf("%w: dangling escape in string starting at position %d", errs.ErrInvalidTypeParams, start)
			}
			switch l.s[l.pos] {
			case '\'':
				b.WriteByte('\'')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(l.s[l.pos])
			}
			l.pos++
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
}

// Parser performs recursive-descent parsing of a single type string.
type Parser struct {
	lex lexer
	tok token
	src string
}

// Parse parses a ClickHouse type string into a Type tree. It consumes the
// entire input; trailing garbage after a complete type is an error.
func Parse(s string) (*Type, error) {
	p := &Parser{lex: lexer{s: s}, src: s}
	if err := p.advance(); err != nil {
		return nil, err
	}

	t, err := p.parseType()
	if err != nil {
		return nil, err
	}

	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input %q at position %d in %q", errs.ErrInvalidTypeParams, p.tok.text, p.tok.pos, s)
	}

	return t, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok

	return nil
}

func (p *Parser) expect(k tokKind) (token, error) {
	if p.tok.kind != k {
		return token{}, fmt.Errorf("%w: unexpected token at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}

	return tok, nil
}

func (p *Parser) parseType() (*Type, error) {
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("%w: expected type name at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}
	name := p.tok.text
	namePos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}

	hasParens := false
	if p.tok.kind == tokLParen {
		hasParens = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	builder, ok := typeBuilders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q at position %d", errs.ErrUnknownType, name, namePos)
	}

	return builder(p, hasParens)
}

// parseSubType recursively parses a nested Type argument, used by
// Tuple/Array/Map/Nullable/LowCardinality builders.
func (p *Parser) parseSubType() (*Type, error) {
	return p.parseType()
}

func (p *Parser) parseIntArg() (int64, error) {
	if p.tok.kind != tokInt {
		return 0, fmt.Errorf("%w: expected integer at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}
	v, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidTypeParams, err)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}

	return v, nil
}

func (p *Parser) parseStringArg() (string, error) {
	if p.tok.kind != tokString {
		return "", fmt.Errorf("%w: expected string literal at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}
	v := p.tok.text
	if err := p.advance(); err != nil {
		return "", err
	}

	return v, nil
}

func (p *Parser) consumeComma() error {
	if p.tok.kind != tokComma {
		return fmt.Errorf("%w: expected ',' at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}

	return p.advance()
}

func (p *Parser) consumeRParen() error {
	if p.tok.kind != tokRParen {
		return fmt.Errorf("%w: expected ')' at position %d in %q", errs.ErrInvalidTypeParams, p.tok.pos, p.src)
	}

	return p.advance()
}
