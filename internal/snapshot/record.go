// Package snapshot holds the per-identifier change records, the rule that
// derives each run's record from the previous one, and the state file.
package snapshot

import (
	"github.com/hyperifyio/insertwatch/internal/insert"
)

// Date and timestamp layouts used in the state file.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Record is one catalog entry's persisted state. Field names follow the
// state file read by the presentation layer.
type Record struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	License        string `json:"license"`
	URL            string `json:"fda_url"`
	OldText        string `json:"old_text"`
	CurrentText    string `json:"current_text"`
	Changed        bool   `json:"is_changed"`
	LastChangeDate string `json:"last_change_date"`
	// Status and OldStatus tag CurrentText and OldText with the extraction
	// reason. Records written before tagging have neither.
	Status    string `json:"status,omitempty"`
	OldStatus string `json:"old_status,omitempty"`
}

// State is the whole state file.
type State struct {
	LastUpdated string   `json:"last_updated"`
	Records     []Record `json:"items"`
}

// Identity is the catalog-supplied part of a record.
type Identity struct {
	License string
	Name    string
	Code    string
	URL     string
}

// reasonOf resolves a stored text's reason from its tag, falling back to the
// historical sentinel phrasings for untagged records.
func reasonOf(tag, text string) insert.Reason {
	if r, ok := insert.ParseReason(tag); ok {
		return r
	}
	return insert.ClassifyLegacy(text)
}

// baseline returns the text the next fetch is compared against.
//
// A record carrying OldText from the run that detected a change already has
// its fresh text in CurrentText; OldText is kept for display for one
// generation only. Any other non-empty OldText is the retained comparison
// text.
func (r *Record) baseline() (string, insert.Reason) {
	if r.OldText != "" && !r.Changed {
		return r.OldText, reasonOf(r.OldStatus, r.OldText)
	}
	return r.CurrentText, reasonOf(r.Status, r.CurrentText)
}
