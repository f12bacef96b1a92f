package pdftext

import (
	"sort"
	"unicode/utf16"
)

// cmap is a parsed ToUnicode map: source codes of a given byte width map to
// Unicode strings.
type cmap struct {
	widths []int
	codes  map[int]map[uint32]string
}

func (m *cmap) set(width int, code uint32, s string) {
	byWidth, ok := m.codes[width]
	if !ok {
		byWidth = map[uint32]string{}
		m.codes[width] = byWidth
	}
	byWidth[code] = s
}

func (m *cmap) addWidth(w int) {
	if w < 1 || w > 4 {
		return
	}
	for _, have := range m.widths {
		if have == w {
			return
		}
	}
	m.widths = append(m.widths, w)
	sort.Ints(m.widths)
}

// decode maps raw string bytes through the CMap. Codes without a mapping are
// skipped.
func (m *cmap) decode(raw []byte) string {
	if len(m.widths) == 0 {
		return ""
	}
	var out []rune
	for i := 0; i < len(raw); {
		matched := false
		for _, w := range m.widths {
			if i+w > len(raw) {
				break
			}
			if s, ok := m.codes[w][code(raw[i:i+w])]; ok {
				out = append(out, []rune(s)...)
				i += w
				matched = true
				break
			}
		}
		if !matched {
			i += m.widths[0]
		}
	}
	return string(out)
}

func code(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// parseCMap reads the codespace, bfchar, and bfrange sections of a ToUnicode
// stream. It returns nil when nothing usable is found.
func parseCMap(data []byte) *cmap {
	m := &cmap{codes: map[int]map[uint32]string{}}
	l := &lexer{data: data}
	section := ""
	var sectionArgs []object
	for {
		o, ok := l.next()
		if !ok {
			break
		}
		if o.kind != kOp {
			if section != "" {
				sectionArgs = append(sectionArgs, o)
			}
			continue
		}
		switch op := string(o.str); op {
		case "begincodespacerange", "beginbfchar", "beginbfrange":
			section = op
			sectionArgs = sectionArgs[:0]
		case "endcodespacerange":
			for i := 0; i+1 < len(sectionArgs); i += 2 {
				m.addWidth(len(sectionArgs[i].str))
			}
			section = ""
		case "endbfchar":
			for i := 0; i+1 < len(sectionArgs); i += 2 {
				src, dst := sectionArgs[i], sectionArgs[i+1]
				if src.kind != kStr || dst.kind != kStr || len(src.str) == 0 {
					continue
				}
				m.set(len(src.str), code(src.str), utf16BE(dst.str))
				m.addWidth(len(src.str))
			}
			section = ""
		case "endbfrange":
			for i := 0; i+2 < len(sectionArgs); i += 3 {
				m.addRange(sectionArgs[i], sectionArgs[i+1], sectionArgs[i+2])
			}
			section = ""
		}
	}
	if len(m.codes) == 0 || len(m.widths) == 0 {
		return nil
	}
	return m
}

// maxRange bounds a single bfrange so malformed maps cannot allocate without
// limit.
const maxRange = 1 << 16

func (m *cmap) addRange(lo, hi, dst object) {
	if lo.kind != kStr || hi.kind != kStr || len(lo.str) == 0 || len(lo.str) != len(hi.str) {
		return
	}
	width := len(lo.str)
	start, end := code(lo.str), code(hi.str)
	if end < start || end-start >= maxRange {
		return
	}
	m.addWidth(width)
	switch dst.kind {
	case kStr:
		base := toUnits(dst.str)
		if len(base) == 0 {
			return
		}
		for c := start; c <= end; c++ {
			u := append([]uint16(nil), base...)
			u[len(u)-1] += uint16(c - start)
			m.set(width, c, string(utf16.Decode(u)))
		}
	case kArr:
		for i, e := range dst.arr {
			c := start + uint32(i)
			if c > end {
				break
			}
			if e.kind == kStr {
				m.set(width, c, utf16BE(e.str))
			}
		}
	}
}

func toUnits(b []byte) []uint16 {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return u
}
