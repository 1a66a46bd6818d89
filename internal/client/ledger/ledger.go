// Package ledger implements the in-memory scan ledger: the authoritative
// local view of packages scanned against the task currently open, merged from
// server state and optimistic local writes.
//
// Contract:
//   - Upsert: optimistic insert of a pending record; rejects an exact
//     case-sensitive duplicate identity with common.ErrDuplicateScan.
//   - Confirm: acknowledgment from the gateway, matched back to its record
//     solely by identity, never by request order.
//   - Remove / SetCancelled: local mutations keyed by the server-assigned id.
//   - Seed: bulk replace from a task fetch.
//
// The ledger is owned state: presentation code only ever sees copies taken
// via Snapshot. All methods are safe for concurrent use, which covers
// overlapping write confirmations arriving out of submission order.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"packtrack/internal/client/models"
	"packtrack/internal/common"
)

type Ledger struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*models.ScanRecord

	// now is a test seam for the client-side scan timestamp.
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		byID: make(map[string]*models.ScanRecord),
		now:  time.Now,
	}
}

// Upsert creates a pending record for identity and returns a copy of it.
// An existing record with the exact same case-sensitive identity is the
// synchronous duplicate guard against rapid double-submission; it returns
// common.ErrDuplicateScan without mutating anything.
func (l *Ledger) Upsert(identity, remarks string, cancelled bool) (models.ScanRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[identity]; ok {
		return models.ScanRecord{}, common.ErrDuplicateScan
	}

	r := &models.ScanRecord{
		LocalID:     uuid.NewString(),
		Identity:    identity,
		MatchStatus: models.NotMatched,
		ScannedAt:   l.now(),
		Remarks:     remarks,
		Cancelled:   cancelled,
		SyncState:   models.SyncPending,
	}
	l.byID[identity] = r
	l.order = append(l.order, identity)
	return *r, nil
}

// Confirm applies a gateway acknowledgment to the record with the given
// identity: the record becomes confirmed, picks up the server-assigned id and
// timestamp, and its cancelled flag is replaced by the authoritative value
// (the caller forces true when the gateway reported a duplicate at the data
// layer). A confirmation for an identity no longer present is discarded.
func (l *Ledger) Confirm(identity, serverID string, scannedAt time.Time, cancelled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[identity]
	if !ok {
		return common.ErrorNotFound
	}
	r.ServerID = serverID
	r.ScannedAt = scannedAt
	r.Cancelled = cancelled
	r.SyncState = models.SyncConfirmed
	return nil
}

// Remove deletes the record with the given server id.
func (l *Ledger) Remove(serverID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, identity := range l.order {
		r := l.byID[identity]
		if r.ServerID == serverID {
			delete(l.byID, identity)
			l.order = append(l.order[:i], l.order[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

// SetCancelled flips the cancelled flag on the record with the given server
// id and re-enters pending state until the gateway acknowledges the patch.
func (l *Ledger) SetCancelled(serverID string, cancelled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.byID {
		if r.ServerID == serverID {
			r.Cancelled = cancelled
			r.SyncState = models.SyncPending
			return nil
		}
	}
	return common.ErrorNotFound
}

// SetMatchStatus is used by the manifest reconciliation pass.
func (l *Ledger) SetMatchStatus(identity string, st models.MatchStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.byID[identity]; ok {
		r.MatchStatus = st
	}
}

// Seed replaces the ledger contents with already-persisted records from a
// task fetch. Records arrive confirmed; absent match information defaults to
// not-matched until the next reconciliation pass.
func (l *Ledger) Seed(pkgs []models.Package) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = l.order[:0]
	l.byID = make(map[string]*models.ScanRecord, len(pkgs))

	for _, p := range pkgs {
		if _, ok := l.byID[p.PackageID]; ok {
			continue
		}
		remarks := p.Remarks
		if remarks == "" {
			remarks = "NA"
		}
		r := &models.ScanRecord{
			LocalID:     uuid.NewString(),
			Identity:    p.PackageID,
			ServerID:    p.ID,
			MatchStatus: models.NotMatched,
			ScannedAt:   p.CreatedAt,
			Remarks:     remarks,
			Cancelled:   p.Cancelled,
			SyncState:   models.SyncConfirmed,
		}
		l.byID[p.PackageID] = r
		l.order = append(l.order, p.PackageID)
	}
}

// HasAnyCase reports whether identity, its all-upper or its all-lower form is
// already a ledger key. This is the strict duplicate guard used at input time.
func (l *Ledger) HasAnyCase(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, v := range []string{identity, strings.ToUpper(identity), strings.ToLower(identity)} {
		if _, ok := l.byID[v]; ok {
			return true
		}
	}
	return false
}

// Get returns a copy of the record with the given identity.
func (l *Ledger) Get(identity string) (models.ScanRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[identity]
	if !ok {
		return models.ScanRecord{}, false
	}
	return *r, true
}

// Snapshot returns copies of all records in insertion order.
func (l *Ledger) Snapshot() []models.ScanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ScanRecord, 0, len(l.order))
	for _, identity := range l.order {
		out = append(out, *l.byID[identity])
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
