package insert

import (
	"testing"

	"github.com/hyperifyio/insertwatch/internal/extract"
)

func TestDetailURL(t *testing.T) {
	cases := []struct{ base, id, want string }{
		{"https://mcp.fda.gov.tw", "A001", "https://mcp.fda.gov.tw/im_detail_1/A001"},
		{"https://mcp.fda.gov.tw/", "A 1/2", "https://mcp.fda.gov.tw/im_detail_1/A%201/2"},
		{"http://x", "a$&+,:;=@b", "http://x/im_detail_1/a%24%26%2B%2C%3A%3B%3D%40b"},
		{"http://x", "A-1_b.c~d", "http://x/im_detail_1/A-1_b.c~d"},
		{"http://x", "50%(x)", "http://x/im_detail_1/50%25%28x%29"},
		{"http://x", "衛部藥製字第058498號", "http://x/im_detail_1/%E8%A1%9B%E9%83%A8%E8%97%A5%E8%A3%BD%E5%AD%97%E7%AC%AC058498%E8%99%9F"},
	}
	for _, tc := range cases {
		if got := DetailURL(tc.base, tc.id); got != tc.want {
			t.Errorf("DetailURL(%q, %q) = %q want %q", tc.base, tc.id, got, tc.want)
		}
	}
}

func TestDocumentLink(t *testing.T) {
	o := DefaultOptions()
	page := "https://mcp.fda.gov.tw/im_detail_1/A001"
	cases := []struct {
		name  string
		links []extract.Link
		want  string
	}{
		{"marker in text", []extract.Link{{Href: "/files/a.PDF", Text: "仿單下載"}}, "https://mcp.fda.gov.tw/files/a.PDF"},
		{"marker in href", []extract.Link{{Href: "docs/insert_1.pdf", Text: "下載"}}, "https://mcp.fda.gov.tw/im_detail_1/docs/insert_1.pdf"},
		{"first match wins", []extract.Link{
			{Href: "/label.pdf", Text: "外盒"},
			{Href: "/a.pdf", Text: "使用說明"},
			{Href: "/b.pdf", Text: "說明書"},
		}, "https://mcp.fda.gov.tw/a.pdf"},
		{"not a document", []extract.Link{{Href: "/insert.html", Text: "仿單"}}, ""},
		{"query only", []extract.Link{{Href: "/get?f=a.pdf", Text: "仿單"}}, ""},
		{"non http", []extract.Link{{Href: "mailto:a@b.pdf", Text: "仿單"}}, ""},
		{"absolute", []extract.Link{{Href: "https://cdn.example/x/Insert.pdf", Text: ""}}, "https://cdn.example/x/Insert.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := o.documentLink(page, tc.links); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestPlausibility(t *testing.T) {
	o := DefaultOptions()
	if o.keywordHits("無相關資訊") != 0 {
		t.Fatal("unexpected hit")
	}
	if got := o.keywordHits("適應症 適應症 警語"); got != 2 {
		t.Fatalf("distinct hits = %d", got)
	}
	if !o.isDeadPage("查無資料，請確認電子仿單") || o.isDeadPage("查無資料") {
		t.Fatal("dead page requires every marker")
	}
}
