package models

import (
	"strings"
	"time"

	"packtrack/internal/common"
)

// SyncState tells whether the gateway has acknowledged a local scan record.
type SyncState string

const (
	SyncPending   SyncState = "pending"
	SyncConfirmed SyncState = "confirmed"
)

// MatchStatus tells whether a scanned identity currently appears in the
// expected-package manifest.
type MatchStatus string

const (
	Matched    MatchStatus = "matched"
	NotMatched MatchStatus = "not-matched"
)

// ScanRecord is one scanned package in the session ledger. Identity is stored
// as entered; comparisons fold case via FoldIdentity.
type ScanRecord struct {
	// LocalID identifies the record before the gateway assigns ServerID.
	LocalID  string
	Identity string
	// ServerID is empty until the gateway confirms persistence.
	ServerID    string
	MatchStatus MatchStatus
	ScannedAt   time.Time
	Remarks     string
	Cancelled   bool
	SyncState   SyncState
}

// Confirmed reports whether the gateway has acknowledged this record.
func (r *ScanRecord) Confirmed() bool {
	return r.SyncState == SyncConfirmed
}

// ExpectedEntry is one identifier from the expected-package manifest.
// Identity is lower-cased at ingestion.
type ExpectedEntry struct {
	Identity string
	Scanned  bool
}

// FoldIdentity normalizes an identifier for case-insensitive comparison.
func FoldIdentity(s string) string {
	return strings.ToLower(s)
}

// ApplySuffix appends the outgoing namespace marker to an identifier scanned
// on an outgoing task. It is applied exactly once, at the input boundary,
// before any comparison or storage.
func ApplySuffix(identity string, taskType TaskType) string {
	if taskType == TaskTypeOutgoing {
		return identity + common.OutgoingSuffixMarker
	}
	return identity
}
