package dataset

import (
	"fmt"
	"strings"
)

// record is one parsed line of fields.
type record struct {
	line   int // line the record starts on, 1-based
	fields []string
}

// tokenizer splits CSV text into records. A double quote only opens a quoted
// field at the start of a field; anywhere else it is literal text. Inside a
// quoted field "" is an escaped quote, and text after the closing quote is
// appended to the field as is, so `"Ok" lar` reads as `Ok lar`.
type tokenizer struct {
	src  string
	pos  int
	line int
}

func newTokenizer(src string) *tokenizer {
	return &tokenizer{src: src, line: 1}
}

// all returns every non-blank record.
func (t *tokenizer) all() ([]record, error) {
	var out []record
	for t.pos < len(t.src) {
		rec, err := t.next()
		if err != nil {
			return nil, err
		}
		if rec.fields != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

const (
	startField = iota
	inField
	inQuoted
	quoteInQuoted
)

// next reads one record. Blank lines yield a record with nil fields.
func (t *tokenizer) next() (record, error) {
	rec := record{line: t.line}
	if t.skipBlankLine() {
		return rec, nil
	}

	var field strings.Builder
	state := startField
	quoteLine := 0
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		t.pos++

		if state == inQuoted {
			switch c {
			case '"':
				state = quoteInQuoted
			case '\r':
				// \r\n inside a quoted field is stored as \n.
				if t.pos < len(t.src) && t.src[t.pos] == '\n' {
					continue
				}
				field.WriteByte(c)
			case '\n':
				t.line++
				field.WriteByte(c)
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch {
		case c == ',':
			rec.fields = append(rec.fields, field.String())
			field.Reset()
			state = startField
		case c == '\n' || c == '\r':
			t.endLine(c)
			rec.fields = append(rec.fields, field.String())
			return rec, nil
		case c == '"' && state == startField:
			state = inQuoted
			quoteLine = t.line
		case c == '"' && state == quoteInQuoted:
			field.WriteByte('"')
			state = inQuoted
		default:
			field.WriteByte(c)
			state = inField
		}
	}

	if state == inQuoted {
		return rec, fmt.Errorf("%w: EOF inside string starting at line %d", ErrMalformed, quoteLine)
	}
	rec.fields = append(rec.fields, field.String())
	return rec, nil
}

// skipBlankLine consumes the current line if it holds only spaces or tabs.
func (t *tokenizer) skipBlankLine() bool {
	i := t.pos
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	if i < len(t.src) && t.src[i] != '\n' && t.src[i] != '\r' {
		return false
	}
	t.pos = i
	if t.pos < len(t.src) {
		c := t.src[t.pos]
		t.pos++
		t.endLine(c)
	}
	return true
}

func (t *tokenizer) endLine(c byte) {
	if c == '\r' && t.pos < len(t.src) && t.src[t.pos] == '\n' {
		t.pos++
	}
	t.line++
}
