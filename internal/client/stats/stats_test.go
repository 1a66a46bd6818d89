package stats

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"packtrack/internal/client/models"
)

func TestAggregate(t *testing.T) {
	records := []models.ScanRecord{
		{Identity: "pkg001", MatchStatus: models.Matched},
		{Identity: "pkg002", MatchStatus: models.NotMatched, Cancelled: true},
		{Identity: "pkg003", MatchStatus: models.Matched},
	}
	entries := []models.ExpectedEntry{
		{Identity: "pkg001", Scanned: true},
		{Identity: "pkg003", Scanned: true},
		{Identity: "pkg005", Scanned: false},
	}

	c := Aggregate(records, entries)

	assert.Equal(t, 3, c.Scanned)
	assert.Equal(t, 1, c.Cancelled)
	assert.Equal(t, 2, c.Matched)
	assert.Equal(t, 1, c.NotMatched)
	assert.Equal(t, 3, c.ExpectedTotal)
	assert.Equal(t, 1, c.ExpectedUnscanned)
}

func TestAggregate_MatchedPlusNotMatchedEqualsScanned(t *testing.T) {
	records := []models.ScanRecord{
		{Identity: "a00001", MatchStatus: models.Matched},
		{Identity: "b00002"},
		{Identity: "c00003", MatchStatus: models.NotMatched},
	}

	c := Aggregate(records, nil)
	assert.Equal(t, c.Scanned, c.Matched+c.NotMatched)
}

func TestAggregate_Empty(t *testing.T) {
	c := Aggregate(nil, nil)
	assert.Equal(t, Counters{}, c)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var runs int32
	b := NewDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	defer b.Stop()

	for i := 0; i < 10; i++ {
		b.Trigger()
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var runs int32
	b := NewDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	b.Trigger()
	b.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}
