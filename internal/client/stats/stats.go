// Package stats derives the operator-facing counters from the scan ledger
// and the expected-package manifest.
package stats

import "packtrack/internal/client/models"

// Counters is the aggregate view recomputed after any relevant mutation.
// Matched+NotMatched always equals Scanned.
type Counters struct {
	Scanned           int
	Cancelled         int
	Matched           int
	NotMatched        int
	ExpectedTotal     int
	ExpectedUnscanned int
}

// Aggregate is a pure function over snapshots of both sets.
func Aggregate(records []models.ScanRecord, entries []models.ExpectedEntry) Counters {
	c := Counters{
		Scanned:       len(records),
		ExpectedTotal: len(entries),
	}
	for _, r := range records {
		if r.Cancelled {
			c.Cancelled++
		}
		if r.MatchStatus == models.Matched {
			c.Matched++
		} else {
			c.NotMatched++
		}
	}
	for _, e := range entries {
		if !e.Scanned {
			c.ExpectedUnscanned++
		}
	}
	return c
}
