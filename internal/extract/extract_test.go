package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustParse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := Parse([]byte(src), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestRegion_PrefersFirstSelector(t *testing.T) {
	doc := mustParse(t, `<html><body>
		<nav>導覽列</nav>
		<div class="container">
			<div class="im_detail_content"><h3>適應症</h3><p>緩解疼痛</p></div>
			<p>container only</p>
		</div>
		<footer>頁尾</footer>
	</body></html>`)
	StripNoise(doc)
	sel := Region(doc, []string{"div.im_detail_content", "div.container", "body"})
	if sel == nil {
		t.Fatalf("expected a region")
	}
	text := Text(sel)
	if !strings.Contains(text, "適應症") || !strings.Contains(text, "緩解疼痛") {
		t.Fatalf("missing content: %q", text)
	}
	if strings.Contains(text, "container only") {
		t.Fatalf("outer container leaked into region: %q", text)
	}
}

func TestRegion_FallbackToBody(t *testing.T) {
	doc := mustParse(t, `<html><body><h2>Body Heading</h2><p>Body paragraph</p></body></html>`)
	sel := Region(doc, []string{"div.im_detail_content", "div.container", "body"})
	if sel == nil {
		t.Fatalf("expected body fallback")
	}
	if !strings.Contains(Text(sel), "Body paragraph") {
		t.Fatalf("expected body text")
	}
	if Region(doc, []string{"div.missing"}) != nil {
		t.Fatalf("expected nil for unmatched selectors")
	}
}

func TestStripNoise_RemovesChrome(t *testing.T) {
	doc := mustParse(t, `<html><head><style>.x{}</style></head><body>
		<header>Site header</header>
		<script>var x = 1;</script>
		<svg><text>vector</text></svg>
		<p>Kept</p>
		<footer>Footer text</footer>
	</body></html>`)
	StripNoise(doc)
	text := Text(doc.Find("body"))
	for _, unwanted := range []string{"Site header", "var x", "vector", "Footer text"} {
		if strings.Contains(text, unwanted) {
			t.Fatalf("did not expect %q in %q", unwanted, text)
		}
	}
	if !strings.Contains(text, "Kept") {
		t.Fatalf("expected kept paragraph")
	}
}

func TestText_BlocksBecomeLines(t *testing.T) {
	doc := mustParse(t, `<div><p>第一段<b>粗體</b>文字</p><p>第二段</p><table><tr><td>A</td><td>B</td></tr></table></div>`)
	text := Text(doc.Find("div").First())
	lines := nonEmptyLines(text)
	want := []string{"第一段粗體文字", "第二段", "A B"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestParse_Big5(t *testing.T) {
	// "仿單" in Big5 is 0xA5E9 0xB3E6.
	body := []byte("<html><body><p>\xa5\xe9\xb3\xe6</p></body></html>")
	doc, err := Parse(body, "text/html; charset=big5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := strings.TrimSpace(doc.Find("p").Text()); got != "仿單" {
		t.Fatalf("decoded = %q, want 仿單", got)
	}
}

func TestLinks_DocumentOrder(t *testing.T) {
	doc := mustParse(t, `<body><a href="/a.pdf">仿單</a><a>no href</a><a href=" /b ">B</a></body>`)
	links := Links(doc)
	if len(links) != 2 {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Href != "/a.pdf" || links[0].Text != "仿單" || links[1].Href != "/b" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
