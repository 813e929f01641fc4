// Package pbtxt reads and writes Triton model configuration in protobuf
// text format using the same map form Triton accepts as JSON.
package pbtxt

import (
	"fmt"
	"strconv"
	"strings"
)

// Unmarshal parses a text-format message into a map keyed by field name.
func Unmarshal(data []byte) (map[string]any, error) {
	p := &parser{lex: newLexer(data)}
	msg, err := p.parseMessage("", "")
	if err != nil {
		return nil, fmt.Errorf("parse pbtxt: %w", err)
	}
	return msg, nil
}

type parser struct {
	lex    *lexer
	peeked *token
}

func (p *parser) peek() (token, error) {
	if p.peeked != nil {
		return *p.peeked, nil
	}
	tok, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.peeked = &tok
	return tok, nil
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	return p.lex.next()
}

// parseMessage reads fields until end; parent names the field holding the
// message.
func (p *parser) parseMessage(end, parent string) (map[string]any, error) {
	msg := map[string]any{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}

		if tok.kind == tokEOF {
			if end != "" {
				return nil, fmt.Errorf("line %d: expected %q before end of input", tok.line, end)
			}
			return finishMessage(msg, parent), nil
		}
		if tok.kind == tokPunct && tok.text == end {
			return finishMessage(msg, parent), nil
		}
		if tok.kind != tokWord {
			return nil, fmt.Errorf("line %d: expected field name, got %q", tok.line, tok.text)
		}
		name := tok.text

		hasColon := false
		nextTok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nextTok.kind == tokPunct && nextTok.text == ":" {
			hasColon = true
			p.next()
		}

		value, isList, err := p.parseFieldValue(name, hasColon)
		if err != nil {
			return nil, err
		}
		addField(msg, parent, name, value, isList)

		sep, err := p.peek()
		if err != nil {
			return nil, err
		}
		if sep.kind == tokPunct && (sep.text == "," || sep.text == ";") {
			p.next()
		}
	}
}

func (p *parser) parseFieldValue(name string, hasColon bool) (any, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, false, err
	}

	if tok.kind == tokPunct {
		switch tok.text {
		case "{", "<":
			p.next()
			v, err := p.parseMessage(closing(tok.text), name)
			return v, false, err
		case "[":
			p.next()
			v, err := p.parseList(name)
			return v, true, err
		}
	}

	if !hasColon {
		return nil, false, fmt.Errorf("line %d: expected ':' after field %q", tok.line, name)
	}
	v, err := p.parseScalar()
	return v, false, err
}

func (p *parser) parseList(name string) ([]any, error) {
	items := []any{}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokPunct && tok.text == "]" {
		p.next()
		return items, nil
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}

		var item any
		if tok.kind == tokPunct && (tok.text == "{" || tok.text == "<") {
			p.next()
			item, err = p.parseMessage(closing(tok.text), name)
		} else {
			item, err = p.parseScalar()
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		sep, err := p.next()
		if err != nil {
			return nil, err
		}
		if sep.kind == tokPunct && sep.text == "]" {
			return items, nil
		}
		if sep.kind != tokPunct || sep.text != "," {
			return nil, fmt.Errorf("line %d: expected ',' or ']' in list, got %q", sep.line, sep.text)
		}
	}
}

func (p *parser) parseScalar() (any, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.kind {
	case tokString:
		// adjacent string literals concatenate
		var b strings.Builder
		b.WriteString(tok.text)
		for {
			nextTok, err := p.peek()
			if err != nil {
				return nil, err
			}
			if nextTok.kind != tokString {
				break
			}
			p.next()
			b.WriteString(nextTok.text)
		}
		return b.String(), nil
	case tokWord:
		return parseWord(tok.text), nil
	}
	return nil, fmt.Errorf("line %d: expected value, got %q", tok.line, tok.text)
}

func parseWord(w string) any {
	switch w {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}

	c := w[0]
	if !(c >= '0' && c <= '9') && c != '-' && c != '+' && c != '.' {
		// enum identifier
		return w
	}
	if i, err := strconv.ParseInt(w, 0, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(w, 0, 64); err == nil {
		return u
	}
	trimmed := strings.TrimRight(w, "fF")
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return w
}

func closing(open string) string {
	if open == "<" {
		return ">"
	}
	return "}"
}

func addField(msg map[string]any, parent, name string, value any, isList bool) {
	existing, ok := msg[name]
	if !ok {
		switch {
		case isList:
			msg[name] = value
		case repeatedFields[name] || isMapField(parent, name):
			msg[name] = []any{value}
		default:
			msg[name] = value
		}
		return
	}

	list, isSlice := existing.([]any)
	if !isSlice {
		list = []any{existing}
	}
	if isList {
		list = append(list, value.([]any)...)
	} else {
		list = append(list, value)
	}
	msg[name] = list
}

// finishMessage folds repeated {key, value} entries of map fields into
// objects, matching the JSON mapping.
func finishMessage(msg map[string]any, parent string) map[string]any {
	for name, v := range msg {
		if !isMapField(parent, name) {
			continue
		}
		entries, ok := v.([]any)
		if !ok {
			continue
		}
		folded := make(map[string]any, len(entries))
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			folded[fmt.Sprint(entry["key"])] = entry["value"]
		}
		msg[name] = folded
	}
	return msg
}
