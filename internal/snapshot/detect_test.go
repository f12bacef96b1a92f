package snapshot

import (
	"testing"

	"github.com/hyperifyio/insertwatch/internal/insert"
)

const (
	yesterday = "2024-05-01"
	today     = "2024-05-02"
)

var id = Identity{License: "衛署藥製字第000001號", Name: "Testol", Code: "T001", URL: "https://mcp.fda.gov.tw/im_detail_1/x"}

func TestNext_FirstSight(t *testing.T) {
	rec := Next(id, nil, insert.Content("Indications: X"), today)
	if rec.Changed || rec.OldText != "" || rec.CurrentText != "Indications: X" {
		t.Fatalf("got %+v", rec)
	}
	if rec.LastChangeDate != today {
		t.Fatalf("date %q", rec.LastChangeDate)
	}
	if rec.License != id.License || rec.URL != id.URL || rec.Code != id.Code || rec.Name != id.Name {
		t.Fatalf("identity not copied: %+v", rec)
	}
	if rec.Status != "content" || rec.OldStatus != "" {
		t.Fatalf("tags: %q %q", rec.Status, rec.OldStatus)
	}
}

func TestNext_EmptyBaselineIsFirstSight(t *testing.T) {
	prior := &Record{License: id.License, LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Content("A"), today)
	if rec.Changed || rec.OldText != "" || rec.LastChangeDate != today {
		t.Fatalf("got %+v", rec)
	}
}

func TestNext_MaterialChange(t *testing.T) {
	prior := &Record{CurrentText: "Indications: X", LastChangeDate: yesterday, Status: "content"}
	rec := Next(id, prior, insert.Content("Indications: Y"), today)
	if !rec.Changed || rec.OldText != "Indications: X" || rec.LastChangeDate != today {
		t.Fatalf("got %+v", rec)
	}
	if rec.OldStatus != "content" {
		t.Fatalf("old status %q", rec.OldStatus)
	}
}

func TestNext_SentinelToSentinel(t *testing.T) {
	// Untagged legacy baseline, tagged current.
	prior := &Record{CurrentText: "此藥品無電子仿單資料", LastChangeDate: yesterday}
	current := insert.Sentinel(insert.ReasonDeadPage, "查無電子仿單資料 (連結失效或已下架)")
	rec := Next(id, prior, current, today)
	if rec.Changed || rec.OldText != "" || rec.LastChangeDate != yesterday {
		t.Fatalf("got %+v", rec)
	}
	if rec.Status != "dead_page" {
		t.Fatalf("status %q", rec.Status)
	}
}

func TestNext_SentinelClassifiedByTag(t *testing.T) {
	prior := &Record{CurrentText: "worded differently", Status: "document_unreadable", LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Sentinel(insert.ReasonImplausible, insert.MsgImplausible), today)
	if rec.Changed {
		t.Fatalf("tagged no-content transition reported as change: %+v", rec)
	}
}

func TestNext_TransportIsNotNoContent(t *testing.T) {
	prior := &Record{CurrentText: insert.MsgDeadPage, Status: "dead_page", LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Sentinel(insert.ReasonTransport, "連線錯誤 (Code 503)"), today)
	if !rec.Changed || rec.OldText != insert.MsgDeadPage || rec.OldStatus != "dead_page" {
		t.Fatalf("got %+v", rec)
	}
}

func TestNext_ContentToSentinelIsChange(t *testing.T) {
	prior := &Record{CurrentText: "適應症：高血壓", LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Sentinel(insert.ReasonDeadPage, insert.MsgDeadPage), today)
	if !rec.Changed || rec.OldText != "適應症：高血壓" {
		t.Fatalf("got %+v", rec)
	}
}

func TestNext_BaselineReconstruction(t *testing.T) {
	prior := &Record{OldText: "", CurrentText: "A", LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Content("A"), today)
	if rec.Changed || rec.OldText != "" || rec.LastChangeDate != yesterday {
		t.Fatalf("got %+v", rec)
	}
}

func TestNext_RetainedTextUsedAsBaseline(t *testing.T) {
	prior := &Record{OldText: "A", CurrentText: "B", LastChangeDate: yesterday}
	if rec := Next(id, prior, insert.Content("A"), today); rec.Changed {
		t.Fatalf("retained text not used as baseline: %+v", rec)
	}
	if rec := Next(id, prior, insert.Content("C"), today); !rec.Changed || rec.OldText != "A" {
		t.Fatalf("got %+v", rec)
	}
}

func TestNext_RetentionLastsOneGeneration(t *testing.T) {
	run1 := Next(id, nil, insert.Content("v1"), yesterday)
	run2 := Next(id, &run1, insert.Content("v2"), today)
	if !run2.Changed || run2.OldText != run1.CurrentText {
		t.Fatalf("run2 %+v", run2)
	}
	run3 := Next(id, &run2, insert.Content("v2"), "2024-05-03")
	if run3.Changed || run3.OldText != "" || run3.LastChangeDate != today {
		t.Fatalf("run3 %+v", run3)
	}
	run4 := Next(id, &run3, insert.Content("v3"), "2024-05-04")
	if !run4.Changed || run4.OldText != "v2" || run4.LastChangeDate != "2024-05-04" {
		t.Fatalf("run4 %+v", run4)
	}
}

func TestNext_LegacyUnchangedRecord(t *testing.T) {
	// Older revisions stored old_text == current_text when nothing changed.
	prior := &Record{OldText: "A", CurrentText: "A", LastChangeDate: yesterday}
	rec := Next(id, prior, insert.Content("A"), today)
	if rec.Changed || rec.OldText != "" || rec.LastChangeDate != yesterday {
		t.Fatalf("got %+v", rec)
	}
}
