// Package normalize shapes extracted insert text into the bounded form that
// is persisted and compared between runs.
//
// Text applies, in order: whitespace collapsing, section-window excision,
// a hard character ceiling, and a final trim. The function is pure and
// idempotent for every valid Options value.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/insertwatch/internal/insert"
)

// Notices spliced into normalized text. None of them contains a section
// marker, so re-normalizing never matches inside a notice.
const (
	ElisionNotice   = "...(藥理、藥物動力學及臨床試驗章節已略過)...\n"
	OmittedNotice   = "...(以下章節已略過)..."
	TruncatedNotice = "... (內容過長已截斷) ..."
)

// Options configures Text. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// MaxChars is the ceiling on the result length, in characters (runes),
	// truncation notice included.
	MaxChars int
	// MinPrefix is the number of leading characters in which start markers
	// are ignored, so a table of contents near the top does not trigger
	// excision.
	MinPrefix int
	// SectionStartMarkers open a low-value window.
	SectionStartMarkers []string
	// SectionResumeMarkers close a window opened by a start marker.
	SectionResumeMarkers []string
}

func numbered(n int, chinese string, title string) []string {
	return []string{
		fmt.Sprintf("%d. %s", n, title),
		fmt.Sprintf("%d.%s", n, title),
		chinese + "、" + title,
	}
}

// DefaultOptions returns the ceiling and marker sets used for registry
// inserts.
func DefaultOptions() Options {
	var start, resume []string
	start = append(start, numbered(10, "十", "藥理特性")...)
	start = append(start, numbered(11, "十一", "藥物動力學特性")...)
	start = append(start, numbered(12, "十二", "臨床試驗資料")...)
	resume = append(resume, numbered(13, "十三", "包裝及儲存")...)
	resume = append(resume, numbered(14, "十四", "病人使用須知")...)
	resume = append(resume, numbered(15, "十五", "其他")...)
	return Options{
		MaxChars:             15000,
		MinPrefix:            100,
		SectionStartMarkers:  start,
		SectionResumeMarkers: resume,
	}
}

var errEmptyMarker = errors.New("normalize: empty section marker")

// Validate reports option values for which Text cannot keep its guarantees.
func (o Options) Validate() error {
	if floor := utf8.RuneCountInString("\n"+TruncatedNotice) + 1; o.MaxChars < floor {
		return fmt.Errorf("normalize: MaxChars %d is below the minimum %d", o.MaxChars, floor)
	}
	if o.MinPrefix < 0 {
		return fmt.Errorf("normalize: negative MinPrefix %d", o.MinPrefix)
	}
	for _, set := range [][]string{o.SectionStartMarkers, o.SectionResumeMarkers} {
		for _, m := range set {
			if strings.TrimSpace(m) == "" {
				return errEmptyMarker
			}
			if strings.ContainsAny(m, "\r\n") {
				return fmt.Errorf("normalize: marker %q spans lines", m)
			}
			for _, n := range []string{ElisionNotice, OmittedNotice, TruncatedNotice} {
				if strings.Contains(n, m) {
					return fmt.Errorf("normalize: marker %q occurs in a notice", m)
				}
			}
		}
	}
	return nil
}

// Apply normalizes Content results. Sentinels are returned untouched.
func Apply(r insert.Result, o Options) insert.Result {
	if r.IsSentinel() {
		return r
	}
	return insert.Content(Text(r.Text, o))
}

// Text normalizes raw extracted text.
func Text(raw string, o Options) string {
	s := collapse(raw)
	s = excise(s, o)
	s = ceiling(s, o.MaxChars)
	return strings.TrimSpace(s)
}

// collapse unifies line endings, squeezes horizontal whitespace to a single
// space, trims each line, and drops blank lines.
func collapse(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	var b strings.Builder
	for _, line := range lines {
		b.Reset()
		space := false
		for _, r := range line {
			if unicode.IsSpace(r) {
				space = true
				continue
			}
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return strings.Join(out, "\n")
}

// excise removes every start/resume window after the MinPrefix guard. A
// window without a resume marker drops the rest of the text.
func excise(s string, o Options) string {
	if len(o.SectionStartMarkers) == 0 {
		return s
	}
	from := byteOffset(s, o.MinPrefix)
	var b strings.Builder
	for {
		start, mlen := earliest(s, from, o.SectionStartMarkers)
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:start])
		end, _ := earliest(s, start+mlen, o.SectionResumeMarkers)
		if end < 0 {
			b.WriteString(OmittedNotice)
			return b.String()
		}
		b.WriteString(ElisionNotice)
		s = s[end:]
		from = 0
	}
}

// earliest returns the byte index and length of the first occurrence of any
// marker in s at or after from, or -1.
func earliest(s string, from int, markers []string) (int, int) {
	if from > len(s) {
		return -1, 0
	}
	best, blen := -1, 0
	for _, m := range markers {
		if m == "" {
			continue
		}
		i := strings.Index(s[from:], m)
		if i < 0 {
			continue
		}
		i += from
		if best < 0 || i < best || (i == best && len(m) > blen) {
			best, blen = i, len(m)
		}
	}
	return best, blen
}

// byteOffset converts a rune offset into a byte offset, clamped to len(s).
func byteOffset(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}

// ceiling truncates s so that s, the line break, and TruncatedNotice together
// fit in limit characters.
func ceiling(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString("\n"+TruncatedNotice)
	if keep < 0 {
		keep = 0
	}
	kept := strings.TrimRightFunc(s[:byteOffset(s, keep)], unicode.IsSpace)
	if kept == "" {
		return TruncatedNotice
	}
	return kept + "\n" + TruncatedNotice
}
