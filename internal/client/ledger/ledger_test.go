package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packtrack/internal/client/models"
	"packtrack/internal/common"
)

func TestUpsert_RejectsExactDuplicate(t *testing.T) {
	l := New()

	_, err := l.Upsert("abc123", "", false)
	require.NoError(t, err)

	_, err = l.Upsert("abc123", "", false)
	require.ErrorIs(t, err, common.ErrDuplicateScan)
	assert.Equal(t, 1, l.Len())
}

func TestUpsert_ToleratesCaseVariantsAsDistinct(t *testing.T) {
	l := New()

	_, err := l.Upsert("abc123", "", false)
	require.NoError(t, err)
	_, err = l.Upsert("ABC123", "", false)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
}

func TestUpsert_CreatesPendingRecord(t *testing.T) {
	l := New()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	r, err := l.Upsert("pkg001_", "fragile", false)
	require.NoError(t, err)

	assert.Equal(t, "pkg001_", r.Identity)
	assert.Equal(t, models.SyncPending, r.SyncState)
	assert.Equal(t, models.NotMatched, r.MatchStatus)
	assert.Equal(t, fixed, r.ScannedAt)
	assert.NotEmpty(t, r.LocalID)
	assert.Empty(t, r.ServerID)
}

func TestConfirm_OutOfOrderBindsByIdentity(t *testing.T) {
	l := New()

	_, err := l.Upsert("aaa111", "", false)
	require.NoError(t, err)
	_, err = l.Upsert("bbb222", "", false)
	require.NoError(t, err)

	tsB := time.Date(2026, 3, 1, 10, 0, 2, 0, time.UTC)
	tsA := time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)

	// confirmation for the second submission lands first
	require.NoError(t, l.Confirm("bbb222", "srv-b", tsB, false))
	require.NoError(t, l.Confirm("aaa111", "srv-a", tsA, false))

	a, ok := l.Get("aaa111")
	require.True(t, ok)
	b, ok := l.Get("bbb222")
	require.True(t, ok)

	assert.Equal(t, "srv-a", a.ServerID)
	assert.Equal(t, "srv-b", b.ServerID)
	assert.Equal(t, models.SyncConfirmed, a.SyncState)
	assert.Equal(t, models.SyncConfirmed, b.SyncState)
}

func TestConfirm_UnknownIdentityDiscarded(t *testing.T) {
	l := New()
	err := l.Confirm("ghost1", "srv-x", time.Now(), false)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestConfirm_ServerDuplicateForcesCancelled(t *testing.T) {
	l := New()

	_, err := l.Upsert("pkg009_", "", false)
	require.NoError(t, err)

	require.NoError(t, l.Confirm("pkg009_", "srv-9", time.Now(), true))

	r, ok := l.Get("pkg009_")
	require.True(t, ok)
	assert.True(t, r.Cancelled)
}

func TestSetCancelled_ReentersPending(t *testing.T) {
	l := New()

	_, err := l.Upsert("pkg010_", "", false)
	require.NoError(t, err)
	require.NoError(t, l.Confirm("pkg010_", "srv-10", time.Now(), false))

	require.NoError(t, l.SetCancelled("srv-10", true))

	r, _ := l.Get("pkg010_")
	assert.True(t, r.Cancelled)
	assert.Equal(t, models.SyncPending, r.SyncState)
}

func TestRemove_ByServerID(t *testing.T) {
	l := New()

	_, err := l.Upsert("pkg011", "", false)
	require.NoError(t, err)
	require.NoError(t, l.Confirm("pkg011", "srv-11", time.Now(), false))

	require.NoError(t, l.Remove("srv-11"))
	assert.Equal(t, 0, l.Len())
	assert.ErrorIs(t, l.Remove("srv-11"), common.ErrorNotFound)
}

func TestSeed_ReplacesAndDefaults(t *testing.T) {
	l := New()
	_, err := l.Upsert("stale1", "", false)
	require.NoError(t, err)

	l.Seed([]models.Package{
		{ID: "s1", PackageID: "pkg100", CreatedAt: time.Now()},
		{ID: "s2", PackageID: "pkg101", Remarks: "damaged", Cancelled: true, CreatedAt: time.Now()},
	})

	require.Equal(t, 2, l.Len())

	r, ok := l.Get("pkg100")
	require.True(t, ok)
	assert.Equal(t, models.SyncConfirmed, r.SyncState)
	assert.Equal(t, models.NotMatched, r.MatchStatus)
	assert.Equal(t, "NA", r.Remarks)

	r, ok = l.Get("pkg101")
	require.True(t, ok)
	assert.True(t, r.Cancelled)
	assert.Equal(t, "damaged", r.Remarks)

	_, ok = l.Get("stale1")
	assert.False(t, ok)
}

func TestHasAnyCase(t *testing.T) {
	l := New()
	_, err := l.Upsert("abc123", "", false)
	require.NoError(t, err)

	assert.True(t, l.HasAnyCase("abc123"))
	assert.True(t, l.HasAnyCase("ABC123"))
	assert.False(t, l.HasAnyCase("zzz999"))
}

func TestSnapshot_InsertionOrderAndIsolation(t *testing.T) {
	l := New()
	for _, id := range []string{"first1", "second2", "third3"} {
		_, err := l.Upsert(id, "", false)
		require.NoError(t, err)
	}

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "first1", snap[0].Identity)
	assert.Equal(t, "third3", snap[2].Identity)

	// mutating the snapshot must not leak into the ledger
	snap[0].Cancelled = true
	r, _ := l.Get("first1")
	assert.False(t, r.Cancelled)
}
