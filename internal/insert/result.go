package insert

import (
	"fmt"
	"strings"
)

// Reason tags an extraction result. ReasonNone means the result carries
// insert text; every other reason marks a sentinel.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTransport
	ReasonStructure
	ReasonDeadPage
	ReasonImplausible
	ReasonDocumentNotFound
	ReasonDocumentUnreadable
	ReasonUnexpected
)

var reasonNames = map[Reason]string{
	ReasonNone:               "content",
	ReasonTransport:          "transport",
	ReasonStructure:          "structure",
	ReasonDeadPage:           "dead_page",
	ReasonImplausible:        "implausible",
	ReasonDocumentNotFound:   "document_not_found",
	ReasonDocumentUnreadable: "document_unreadable",
	ReasonUnexpected:         "unexpected",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// NoContent reports whether the reason belongs to the set of "the registry
// has no insert text for this product" outcomes. Transitions between two
// such outcomes are not material changes.
func (r Reason) NoContent() bool {
	switch r {
	case ReasonDeadPage, ReasonImplausible, ReasonDocumentNotFound, ReasonDocumentUnreadable:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	s, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown reason %d", int(r))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(b []byte) error {
	v, ok := ParseReason(string(b))
	if !ok {
		return fmt.Errorf("unknown reason %q", string(b))
	}
	*r = v
	return nil
}

// ParseReason is the inverse of Reason.String.
func ParseReason(s string) (Reason, bool) {
	s = strings.TrimSpace(s)
	for k, v := range reasonNames {
		if v == s {
			return k, true
		}
	}
	return ReasonNone, false
}

// Sentinel messages. They are stored verbatim in the state file and shown by
// the presentation layer, so wording changes show up as text changes there.
const (
	MsgStructure          = "無法解析網頁結構"
	MsgDeadPage           = "查無電子仿單資料 (連結失效或已下架)"
	MsgImplausible        = "此藥品無電子仿單資料 (可能僅有 PDF)"
	MsgDocumentNotFound   = "此藥品無電子仿單資料，且未找到仿單 PDF 連結"
	MsgDocumentUnreadable = "系統提示：PDF 為掃描檔圖片，無法提取文字。"
)

// Result is either insert text (Reason == ReasonNone) or a sentinel whose
// Text is a short human-readable diagnostic.
type Result struct {
	Text   string
	Reason Reason
}

// Content wraps extracted insert text.
func Content(text string) Result { return Result{Text: text} }

// Sentinel builds a diagnostic result.
func Sentinel(reason Reason, msg string) Result {
	if reason == ReasonNone {
		reason = ReasonUnexpected
	}
	return Result{Text: msg, Reason: reason}
}

// IsSentinel reports whether r stands in for absent or unreadable content.
func (r Result) IsSentinel() bool { return r.Reason != ReasonNone }

// legacyNoContent lists sentinel phrasings written by earlier revisions of
// the monitor. Records from those revisions carry no reason tag.
var legacyNoContent = map[string]Reason{
	"此藥品無電子仿單資料":                            ReasonImplausible,
	MsgImplausible:                          ReasonImplausible,
	MsgDeadPage:                             ReasonDeadPage,
	MsgDocumentNotFound:                     ReasonDocumentNotFound,
	"系統提示：未找到仿單 PDF 連結，請確認衛福部網站是否僅提供圖片。": ReasonDocumentNotFound,
	MsgDocumentUnreadable:                   ReasonDocumentUnreadable,
}

// ClassifyLegacy maps untagged stored text to a reason by exact match against
// known sentinel phrasings. Anything else is treated as content.
func ClassifyLegacy(text string) Reason {
	if r, ok := legacyNoContent[strings.TrimSpace(text)]; ok {
		return r
	}
	return ReasonNone
}
