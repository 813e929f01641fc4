package pbtxt

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  []byte
	pos  int
	line int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1}
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '+' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	c := l.src[l.pos]
	switch c {
	case '{', '}', '<', '>', '[', ']', ':', ',', ';':
		l.pos++
		return token{kind: tokPunct, text: string(c), line: l.line}, nil
	case '"', '\'':
		s, err := l.readString(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, line: l.line}, nil
	}

	if !isWordByte(c) {
		return token{}, fmt.Errorf("line %d: unexpected character %q", l.line, c)
	}
	start := l.pos
	for l.pos < len(l.src) && isWordByte(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokWord, text: string(l.src[start:l.pos]), line: l.line}, nil
}

func (l *lexer) readString(quote byte) (string, error) {
	startLine := l.line
	l.pos++ // opening quote
	var out []byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return string(out), nil
		case c == '\n':
			return "", fmt.Errorf("line %d: unterminated string", startLine)
		case c == '\\':
			b, err := l.readEscape()
			if err != nil {
				return "", err
			}
			out = append(out, b...)
		default:
			out = append(out, c)
			l.pos++
		}
	}
	return "", fmt.Errorf("line %d: unterminated string", startLine)
}

func (l *lexer) readEscape() ([]byte, error) {
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return nil, fmt.Errorf("line %d: dangling escape", l.line)
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		return []byte{'\n'}, nil
	case 't':
		return []byte{'\t'}, nil
	case 'r':
		return []byte{'\r'}, nil
	case 'a':
		return []byte{'\a'}, nil
	case 'b':
		return []byte{'\b'}, nil
	case 'f':
		return []byte{'\f'}, nil
	case 'v':
		return []byte{'\v'}, nil
	case '\\', '\'', '"', '?':
		return []byte{c}, nil
	case 'x', 'X':
		start := l.pos
		for l.pos < len(l.src) && l.pos-start < 2 && isHex(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == start {
			return nil, fmt.Errorf("line %d: invalid hex escape", l.line)
		}
		v, _ := strconv.ParseUint(string(l.src[start:l.pos]), 16, 8)
		return []byte{byte(v)}, nil
	case 'u':
		start := l.pos
		for l.pos < len(l.src) && l.pos-start < 4 && isHex(l.src[l.pos]) {
			l.pos++
		}
		if l.pos-start != 4 {
			return nil, fmt.Errorf("line %d: invalid unicode escape", l.line)
		}
		v, _ := strconv.ParseUint(string(l.src[start:l.pos]), 16, 32)
		return []byte(string(rune(v))), nil
	}
	if c >= '0' && c <= '7' {
		start := l.pos - 1
		for l.pos < len(l.src) && l.pos-start < 3 && l.src[l.pos] >= '0' && l.src[l.pos] <= '7' {
			l.pos++
		}
		v, err := strconv.ParseUint(string(l.src[start:l.pos]), 8, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid octal escape", l.line)
		}
		return []byte{byte(v)}, nil
	}
	return nil, fmt.Errorf("line %d: unknown escape \\%c", l.line, c)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
