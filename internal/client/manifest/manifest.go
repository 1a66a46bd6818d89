// Package manifest implements the expected-package manifest and its
// reconciliation against the scan ledger.
//
// Matching is case-insensitive on both sides: a scanned identity matches an
// expected entry when their lower-cased forms are equal. Reconciliation is a
// full pass over both sets, re-run after any mutation to either one; expected
// lists are bounded to a single courier run, so the quadratic pass is cheap
// and keeps the logic trivially idempotent.
package manifest

import (
	"strings"
	"sync"

	"packtrack/internal/client/ledger"
	"packtrack/internal/client/models"
	"packtrack/internal/common"
)

// MinIdentityLen is the minimum token length accepted on manifest submission.
const MinIdentityLen = 6

type Manifest struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*models.ExpectedEntry
}

func New() *Manifest {
	return &Manifest{entries: make(map[string]*models.ExpectedEntry)}
}

// Load replaces the manifest wholesale. Identities are lower-cased at
// ingestion; all entries start unscanned until the next reconciliation pass.
func (m *Manifest) Load(identities []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order = m.order[:0]
	m.entries = make(map[string]*models.ExpectedEntry, len(identities))
	m.mergeLocked(identities)
}

// Merge folds newly submitted identities into the existing set, keyed by
// identity, last-write-wins. Used when the gateway echoes a stored manifest.
func (m *Manifest) Merge(identities []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(identities)
}

func (m *Manifest) mergeLocked(identities []string) {
	for _, id := range identities {
		folded := models.FoldIdentity(id)
		if _, ok := m.entries[folded]; ok {
			m.entries[folded].Scanned = false
			continue
		}
		m.entries[folded] = &models.ExpectedEntry{Identity: folded}
		m.order = append(m.order, folded)
	}
}

// IsMatched reports whether identity appears in the manifest, ignoring case.
func (m *Manifest) IsMatched(identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[models.FoldIdentity(identity)]
	return ok
}

// Reconcile recomputes, for every ledger record, whether it matches a
// manifest entry, and for every manifest entry, whether it has been scanned.
// Running it twice on unchanged inputs yields identical flags.
func (m *Manifest) Reconcile(l *ledger.Ledger) {
	records := l.Snapshot()

	m.mu.Lock()
	scanned := make(map[string]bool, len(records))
	for _, r := range records {
		scanned[models.FoldIdentity(r.Identity)] = true
	}
	for _, e := range m.entries {
		e.Scanned = scanned[e.Identity]
	}
	matched := make(map[string]bool, len(records))
	for _, r := range records {
		folded := models.FoldIdentity(r.Identity)
		_, ok := m.entries[folded]
		matched[r.Identity] = ok
	}
	m.mu.Unlock()

	for _, r := range records {
		if matched[r.Identity] {
			l.SetMatchStatus(r.Identity, models.Matched)
		} else {
			l.SetMatchStatus(r.Identity, models.NotMatched)
		}
	}
}

// Entries returns copies of all manifest entries in insertion order.
func (m *Manifest) Entries() []models.ExpectedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ExpectedEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// ParseInput turns the operator's multi-line manifest input into lower-cased
// identifiers ready for submission. Tokens shorter than MinIdentityLen after
// trimming are dropped; if nothing survives, common.ErrValidation is
// returned.
func ParseInput(text string) ([]string, error) {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, token := range strings.Fields(line) {
			token = strings.TrimSpace(token)
			if len(token) < MinIdentityLen {
				continue
			}
			out = append(out, strings.ToLower(token))
		}
	}
	if len(out) == 0 {
		return nil, common.ErrValidation
	}
	return out, nil
}
