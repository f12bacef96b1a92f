package snapshot

import (
	"github.com/hyperifyio/insertwatch/internal/insert"
)

// Decision is the outcome of comparing a fresh result with the prior record.
type Decision struct {
	Changed        bool
	LastChangeDate string
	// Retained is the pre-change text kept for an old/new comparison. It is
	// empty unless Changed.
	Retained       string
	RetainedReason insert.Reason
}

// Decide applies the retention policy. prior is nil for an identifier seen
// for the first time; today is the run date.
func Decide(prior *Record, current insert.Result, today string) Decision {
	if prior == nil {
		return Decision{LastChangeDate: today}
	}
	base, baseReason := prior.baseline()
	switch {
	case base == "":
		return Decision{LastChangeDate: today}
	case current.Text == base:
		return Decision{LastChangeDate: prior.LastChangeDate}
	case current.Reason.NoContent() && baseReason.NoContent():
		return Decision{LastChangeDate: prior.LastChangeDate}
	}
	return Decision{
		Changed:        true,
		LastChangeDate: today,
		Retained:       base,
		RetainedReason: baseReason,
	}
}

// Next builds this run's record for id from the prior record and the
// normalized result.
func Next(id Identity, prior *Record, current insert.Result, today string) Record {
	d := Decide(prior, current, today)
	rec := Record{
		Code:           id.Code,
		Name:           id.Name,
		License:        id.License,
		URL:            id.URL,
		OldText:        d.Retained,
		CurrentText:    current.Text,
		Changed:        d.Changed,
		LastChangeDate: d.LastChangeDate,
		Status:         current.Reason.String(),
	}
	if d.Changed {
		rec.OldStatus = d.RetainedReason.String()
	}
	return rec
}
