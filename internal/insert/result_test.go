package insert

import (
	"encoding/json"
	"testing"
)

func TestReason_TextRoundTrip(t *testing.T) {
	for r := range reasonNames {
		b, err := r.MarshalText()
		if err != nil {
			t.Fatalf("%v: %v", r, err)
		}
		var got Reason
		if err := got.UnmarshalText(b); err != nil || got != r {
			t.Fatalf("%s: got %v err %v", b, got, err)
		}
	}
	var r Reason
	if err := json.Unmarshal([]byte(`"bogus"`), &r); err == nil {
		t.Fatal("expected error for unknown reason")
	}
}

func TestReason_NoContentSet(t *testing.T) {
	want := map[Reason]bool{
		ReasonNone:               false,
		ReasonTransport:          false,
		ReasonStructure:          false,
		ReasonDeadPage:           true,
		ReasonImplausible:        true,
		ReasonDocumentNotFound:   true,
		ReasonDocumentUnreadable: true,
		ReasonUnexpected:         false,
	}
	for r, w := range want {
		if r.NoContent() != w {
			t.Errorf("%v.NoContent() = %v", r, !w)
		}
	}
}

func TestSentinel_NeverContent(t *testing.T) {
	if r := Sentinel(ReasonNone, "x"); !r.IsSentinel() || r.Reason != ReasonUnexpected {
		t.Fatalf("got %+v", r)
	}
	if Content("適應症").IsSentinel() {
		t.Fatal("content reported as sentinel")
	}
}

func TestClassifyLegacy(t *testing.T) {
	cases := map[string]Reason{
		"此藥品無電子仿單資料":                       ReasonImplausible,
		" 查無電子仿單資料 (連結失效或已下架) ":             ReasonDeadPage,
		"系統提示：PDF 為掃描檔圖片，無法提取文字。":          ReasonDocumentUnreadable,
		"系統提示：未找到仿單 PDF 連結，請確認衛福部網站是否僅提供圖片。": ReasonDocumentNotFound,
		"適應症：此藥品無電子仿單資料的說明":                ReasonNone,
		"連線錯誤 (Code 500)":                  ReasonNone,
		"":                                   ReasonNone,
	}
	for text, want := range cases {
		if got := ClassifyLegacy(text); got != want {
			t.Errorf("%q: got %v want %v", text, got, want)
		}
	}
}
