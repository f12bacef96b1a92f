package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Missing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "data.json"))
	if err != nil || len(m) != 0 {
		t.Fatalf("got %v %v", m, err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	for name, content := range map[string]string{
		"truncated": `{"last_updated": "2024-05-01 10:00:00", "items": [{"license": "A"`,
		"empty":     "",
		"garbage":   "not json",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			m, err := Load(path)
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("want ErrCorrupt, got %v", err)
			}
			if m == nil || len(m) != 0 {
				t.Fatalf("want empty map, got %v", m)
			}
		})
	}
}

func TestLoad_LegacyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := `[{"license":"A","current_text":"x","old_text":"x","is_changed":false,"last_change_date":"2024-01-01"},{"license":"","current_text":"skip"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m["A"].CurrentText != "x" || m["A"].LastChangeDate != "2024-01-01" {
		t.Fatalf("got %+v", m)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "data.json")
	st := State{
		LastUpdated: "2024-05-02 08:00:00",
		Records: []Record{
			{License: "B", CurrentText: "<b>警語</b> & 注意", LastChangeDate: "2024-05-02", Status: "content"},
			{License: "A", OldText: "舊", CurrentText: "新", Changed: true, LastChangeDate: "2024-05-02", Status: "content", OldStatus: "content"},
		},
	}
	if err := Save(path, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, want := range []string{`"last_updated": "2024-05-02 08:00:00"`, `"items": [`, `<b>警語</b> & 注意`, `"fda_url"`, `"is_changed": true`} {
		if !strings.Contains(s, want) {
			t.Errorf("state file missing %q", want)
		}
	}
	if strings.Index(s, `"license": "B"`) > strings.Index(s, `"license": "A"`) {
		t.Error("record order not preserved")
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m["A"] != st.Records[1] || m["B"] != st.Records[0] {
		t.Fatalf("round trip mismatch: %+v", m)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestSave_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("old garbage that is longer than the new content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, State{LastUpdated: "2024-05-02 08:00:00"}); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil || len(m) != 0 {
		t.Fatalf("got %v %v", m, err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"items": []`) {
		t.Fatalf("items not an empty array: %s", raw)
	}
}
