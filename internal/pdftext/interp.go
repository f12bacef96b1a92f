package pdftext

import (
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// tjSpace is the TJ displacement, in thousandths of text space, beyond
// which an adjustment is read as a word gap.
const tjSpace = -200

// textState accumulates shown strings into lines. A change of baseline
// starts a new line; horizontal moves on the same baseline insert a space.
type textState struct {
	b       strings.Builder
	fonts   map[string]*cmap
	font    *cmap
	y       float64
	lastY   float64
	shown   bool
	space   bool
	newline bool
}

func interpret(content []byte, fonts map[string]*cmap) string {
	s := &textState{fonts: fonts}
	l := &lexer{data: content}
	var operands []object
	for {
		o, ok := l.next()
		if !ok {
			break
		}
		if o.kind != kOp {
			operands = append(operands, o)
			continue
		}
		s.apply(string(o.str), operands, l)
		operands = operands[:0]
	}
	return strings.TrimSpace(s.b.String())
}

func (s *textState) apply(op string, args []object, l *lexer) {
	switch op {
	case "BT":
		s.y = 0
		s.space = true
	case "Tf":
		if len(args) >= 1 && args[0].kind == kName {
			s.font = s.fonts[string(args[0].str)]
		}
	case "Td", "TD":
		if len(args) >= 2 {
			tx, ty := args[len(args)-2].num, args[len(args)-1].num
			s.y += ty
			if ty == 0 && tx != 0 {
				s.space = true
			}
		}
	case "Tm":
		if len(args) >= 6 {
			s.y = args[5].num
			s.space = true
		}
	case "T*":
		s.newline = true
	case "Tj":
		if len(args) >= 1 {
			s.show(args[len(args)-1])
		}
	case "'":
		s.newline = true
		if len(args) >= 1 {
			s.show(args[len(args)-1])
		}
	case "\"":
		s.newline = true
		if len(args) >= 3 {
			s.show(args[2])
		}
	case "TJ":
		if len(args) >= 1 && args[len(args)-1].kind == kArr {
			for _, e := range args[len(args)-1].arr {
				switch e.kind {
				case kStr:
					s.show(e)
				case kNum:
					if e.num < tjSpace {
						s.space = true
					}
				}
			}
		}
	case "BI":
		l.skipInlineImage()
	}
}

func (s *textState) show(o object) {
	if o.kind != kStr {
		return
	}
	text := s.decode(o.str)
	if text == "" {
		return
	}
	if s.shown {
		switch {
		case s.newline || math.Abs(s.y-s.lastY) > 0.5:
			s.b.WriteByte('\n')
		case s.space:
			s.b.WriteByte(' ')
		}
	}
	s.b.WriteString(text)
	s.shown = true
	s.lastY = s.y
	s.space = false
	s.newline = false
}

func (s *textState) decode(raw []byte) string {
	if s.font != nil {
		return s.font.decode(raw)
	}
	return decodeBytes(raw)
}

// decodeBytes interprets a string shown with a font lacking a ToUnicode map.
func decodeBytes(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return utf16BE(raw[2:])
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	r := make([]rune, len(raw))
	for i, c := range raw {
		r[i] = rune(c)
	}
	return string(r)
}

func utf16BE(b []byte) string {
	return string(utf16.Decode(toUnits(b)))
}
