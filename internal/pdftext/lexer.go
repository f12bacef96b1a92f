package pdftext

import "strconv"

type kind int

const (
	kNum kind = iota
	kName
	kStr
	kOp
	kArr
	kDict
	kArrEnd
	kDictEnd
)

type object struct {
	kind kind
	num  float64
	str  []byte
	arr  []object
}

// lexer tokenizes PDF content streams and CMaps.
type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next object. Arrays and dictionaries are read whole;
// dictionary contents are dropped.
func (l *lexer) next() (object, bool) {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return object{}, false
		}
		c := l.data[l.pos]
		switch c {
		case '(':
			l.pos++
			return object{kind: kStr, str: l.literal()}, true
		case '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				l.skipDict()
				return object{kind: kDict}, true
			}
			l.pos++
			return object{kind: kStr, str: l.hex()}, true
		case '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
				return object{kind: kDictEnd}, true
			}
		case '[':
			l.pos++
			return object{kind: kArr, arr: l.array()}, true
		case ']':
			l.pos++
			return object{kind: kArrEnd}, true
		case '{', '}', ')':
			l.pos++
		case '/':
			l.pos++
			return object{kind: kName, str: l.word()}, true
		default:
			w := l.word()
			if len(w) == 0 {
				l.pos++
				continue
			}
			if f, err := strconv.ParseFloat(string(w), 64); err == nil {
				return object{kind: kNum, num: f}, true
			}
			return object{kind: kOp, str: w}, true
		}
	}
}

func (l *lexer) word() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

func (l *lexer) array() []object {
	var out []object
	for {
		o, ok := l.next()
		if !ok || o.kind == kArrEnd {
			return out
		}
		out = append(out, o)
	}
}

func (l *lexer) skipDict() {
	for {
		o, ok := l.next()
		if !ok || o.kind == kDictEnd {
			return
		}
	}
}

func (l *lexer) literal() []byte {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hex() []byte {
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		l.pos++
		if v, ok := hexVal(c); ok {
			digits = append(digits, v)
		}
	}
	if l.pos < len(l.data) {
		l.pos++ // '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = digits[2*i]<<4 | digits[2*i+1]
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage moves past the binary data of an inline image, up to and
// including the EI operator.
func (l *lexer) skipInlineImage() {
	// Dictionary part runs until ID.
	for {
		o, ok := l.next()
		if !ok {
			return
		}
		if o.kind == kOp && string(o.str) == "ID" {
			break
		}
	}
	for l.pos+2 <= len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			l.pos > 0 && isWhite(l.data[l.pos-1]) &&
			(l.pos+2 == len(l.data) || isWhite(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}
