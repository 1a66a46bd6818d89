package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packtrack/internal/client/gateway"
	"packtrack/internal/client/models"
	"packtrack/internal/client/session"
	"packtrack/internal/common"
	"packtrack/internal/logging"
)

// fakeGateway is an in-memory gateway.Client with scriptable create behavior.
type fakeGateway struct {
	mu sync.Mutex

	task     *models.Task
	expected []string

	nextID     int
	createErr  error
	duplicate  bool // answer non-201 success
	patchErr   error
	deleteErr  error
	serverTime time.Time

	deleted []string
	patched []string
	matched [][]string
}

func newFakeGateway(taskType models.TaskType) *fakeGateway {
	return &fakeGateway{
		task: &models.Task{
			ID:     "t1",
			TaskID: "TASK-001",
			Type:   taskType,
		},
		serverTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeGateway) Login(ctx context.Context, u, p string) (string, models.AuthUser, error) {
	return "tok", models.AuthUser{Username: u}, nil
}

func (f *fakeGateway) GetTask(ctx context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.task
	cp.Packages = append([]models.Package(nil), f.task.Packages...)
	return &cp, nil
}

func (f *fakeGateway) GetExpectedPackages(ctx context.Context, taskID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.expected...), nil
}

func (f *fakeGateway) PostExpectedPackages(ctx context.Context, taskID string, ids []string, executive string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expected = append(f.expected, ids...)
	return append([]string(nil), f.expected...), nil
}

func (f *fakeGateway) MatchExpected(ctx context.Context, taskID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matched = append(f.matched, ids)
	return nil
}

func (f *fakeGateway) CreatePackage(ctx context.Context, req gateway.CreatePackageRequest) (models.Package, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return models.Package{}, false, f.createErr
	}

	f.nextID++
	pkg := models.Package{
		ID:        fmt.Sprintf("srv-%d", f.nextID),
		PackageID: req.PackageID,
		Status:    req.Status,
		Cancelled: req.Cancelled,
		Remarks:   req.Remarks,
		Task:      req.TaskID,
		CreatedAt: f.serverTime,
	}
	if f.duplicate {
		return pkg, false, nil
	}
	f.task.Packages = append(f.task.Packages, pkg)
	return pkg, true, nil
}

func (f *fakeGateway) PatchPackage(ctx context.Context, id string, cancelled bool) (models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return models.Package{}, f.patchErr
	}
	f.patched = append(f.patched, id)
	for i := range f.task.Packages {
		if f.task.Packages[i].ID == id {
			f.task.Packages[i].Cancelled = cancelled
			return f.task.Packages[i], nil
		}
	}
	return models.Package{}, common.ErrorNotFound
}

func (f *fakeGateway) DeletePackage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeGateway) GetConfig(ctx context.Context) (gateway.AppConfig, error) {
	return gateway.AppConfig{}, nil
}

func (f *fakeGateway) Ping(ctx context.Context) error { return nil }

func (f *fakeGateway) SetToken(token string) {}

// recordingCue captures feedback for assertions.
type recordingCue struct {
	success int
	errors  int
}

func (c *recordingCue) Success() { c.success++ }
func (c *recordingCue) Error()   { c.errors++ }

// newTestService wires a service whose async write path is collected into a
// queue the test drains explicitly, so confirmation ordering is controlled.
func newTestService(t *testing.T, gw gateway.Client) (*scanService, *recordingCue, *[]func()) {
	t.Helper()

	cue := &recordingCue{}
	sess := session.New(nil)
	sess.Start("tok", models.AuthUser{Username: "alice"})

	svc := NewScanService(gw, sess, logging.NewDefault(), cue, time.Millisecond).(*scanService)
	t.Cleanup(svc.Close)

	queue := &[]func(){}
	svc.spawn = func(fn func()) { *queue = append(*queue, fn) }
	return svc, cue, queue
}

func drain(queue *[]func()) {
	for _, fn := range *queue {
		fn()
	}
	*queue = (*queue)[:0]
}

func TestSubmit_OutgoingEmptyManifest(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeOutgoing)
	svc, cue, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	out := svc.Submit("pkg001", "", false)

	assert.Equal(t, ResultAccepted, out.Result)
	assert.Equal(t, "pkg001_", out.Identity)
	assert.False(t, out.Matched)
	assert.Equal(t, 1, cue.errors) // not-matched plays the error cue

	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.Equal(t, "pkg001_", recs[0].Identity)
	assert.Equal(t, models.NotMatched, recs[0].MatchStatus)
	assert.False(t, recs[0].Cancelled)
	assert.Equal(t, models.SyncPending, recs[0].SyncState)

	drain(queue)

	recs = svc.Records("")
	assert.Equal(t, models.SyncConfirmed, recs[0].SyncState)
	assert.Equal(t, "srv-1", recs[0].ServerID)
	assert.Equal(t, gw.serverTime, recs[0].ScannedAt)
}

func TestSubmit_IncomingMatchesManifestCaseInsensitive(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	gw.expected = []string{"PKG002"}
	svc, cue, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	out := svc.Submit("pkg002", "", false)
	drain(queue)

	assert.Equal(t, ResultAccepted, out.Result)
	assert.True(t, out.Matched)
	assert.Equal(t, 1, cue.success)

	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.Equal(t, models.Matched, recs[0].MatchStatus)

	entries := svc.Expected()
	require.Len(t, entries, 1)
	assert.Equal(t, "pkg002", entries[0].Identity)
	assert.True(t, entries[0].Scanned)
}

func TestSubmit_TripleCaseDuplicateGuard(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, cue, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	assert.Equal(t, ResultAccepted, svc.Submit("abc123", "", false).Result)
	assert.Equal(t, ResultDuplicate, svc.Submit("ABC123", "", false).Result)
	assert.Equal(t, ResultDuplicate, svc.Submit("abc123", "", false).Result)

	drain(queue)
	assert.Equal(t, 1, len(svc.Records("")))
	// one not-matched cue for the accepted scan, one per rejected duplicate
	assert.Equal(t, 3, cue.errors)
}

func TestSubmit_RejectsShortIdentifier(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, cue, _ := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	out := svc.Submit("short", "", false)

	assert.Equal(t, ResultInvalidFormat, out.Result)
	assert.Empty(t, svc.Records(""))
	assert.Equal(t, 1, cue.errors)
}

func TestSubmit_RejectsNonWordCharacters(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, _ := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	out := svc.Submit("pkg 001", "", false)
	assert.Equal(t, ResultInvalidFormat, out.Result)
}

func TestSubmit_ServerDuplicateForcesCancelled(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeOutgoing)
	gw.duplicate = true
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg005", "", false)
	drain(queue)

	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Cancelled)
	assert.Equal(t, models.SyncConfirmed, recs[0].SyncState)
}

func TestSubmit_WriteFailureLeavesPending(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	gw.createErr = gateway.ErrUnavailable
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	var notices []string
	svc.SetNotifier(func(msg string) { notices = append(notices, msg) })

	svc.Submit("pkg006", "", false)
	drain(queue)

	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.Equal(t, models.SyncPending, recs[0].SyncState)
	assert.Empty(t, recs[0].ServerID)
	assert.Len(t, notices, 1)
}

func TestSubmit_OutOfOrderConfirmations(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("aaa111", "", false)
	svc.Submit("bbb222", "", false)
	require.Len(t, *queue, 2)

	// gateway answers the second submission first
	(*queue)[1]()
	(*queue)[0]()
	*queue = (*queue)[:0]

	var a, b models.ScanRecord
	for _, r := range svc.Records("") {
		switch r.Identity {
		case "aaa111":
			a = r
		case "bbb222":
			b = r
		}
	}
	assert.Equal(t, models.SyncConfirmed, a.SyncState)
	assert.Equal(t, models.SyncConfirmed, b.SyncState)
	assert.Equal(t, "srv-2", a.ServerID) // aaa111 hit the gateway second
	assert.Equal(t, "srv-1", b.ServerID)
}

func TestCounterConsistency(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeOutgoing)
	gw.expected = []string{"pkg001_", "pkg404_"}
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg001", "", false)
	svc.Submit("pkg002", "", true)
	svc.Submit("pkg003", "", false)
	drain(queue)

	c := svc.Counters()
	assert.Equal(t, 3, c.Scanned)
	assert.Equal(t, c.Scanned, c.Matched+c.NotMatched)
	assert.Equal(t, 1, c.Matched)
	assert.Equal(t, 2, c.NotMatched)
	assert.Equal(t, 1, c.Cancelled)
	assert.Equal(t, 2, c.ExpectedTotal)
	assert.Equal(t, 1, c.ExpectedUnscanned)
}

func TestSubmitManifest(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg010", "", false)
	drain(queue)

	n, err := svc.SubmitManifest(context.Background(), "PKG010\npkg011\nxx")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// existing scan retroactively matched
	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.Equal(t, models.Matched, recs[0].MatchStatus)

	require.Len(t, gw.matched, 1)
	assert.Equal(t, []string{"pkg010", "pkg011"}, gw.matched[0])
}

func TestSubmitManifest_RejectsEmptyInput(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, _ := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	_, err := svc.SubmitManifest(context.Background(), "ab\n  \ncd")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, svc.Expected())
}

func TestDelete_LocalFirstNotRolledBack(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg020", "", false)
	drain(queue)
	serverID := svc.Records("")[0].ServerID

	gw.deleteErr = gateway.ErrUnavailable
	err := svc.Delete(context.Background(), serverID)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	// local removal stands even though the gateway call failed
	assert.Empty(t, svc.Records(""))
	assert.Equal(t, []string{serverID}, gw.deleted)
}

func TestSetCancelled_ReconfirmsFromServerAnswer(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeOutgoing)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg021", "", false)
	drain(queue)
	serverID := svc.Records("")[0].ServerID

	require.NoError(t, svc.SetCancelled(context.Background(), serverID, true))

	r := svc.Records("")[0]
	assert.True(t, r.Cancelled)
	assert.Equal(t, models.SyncConfirmed, r.SyncState)
	assert.Equal(t, []string{serverID}, gw.patched)
}

func TestOpen_SeedsFromTaskAndManifest(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	gw.task.Packages = []models.Package{
		{ID: "s1", PackageID: "pkg030", CreatedAt: time.Now()},
	}
	gw.expected = []string{"pkg030", "pkg031"}

	svc, _, _ := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	recs := svc.Records("")
	require.Len(t, recs, 1)
	assert.Equal(t, models.SyncConfirmed, recs[0].SyncState)
	assert.Equal(t, models.Matched, recs[0].MatchStatus)

	c := svc.Counters()
	assert.Equal(t, 2, c.ExpectedTotal)
	assert.Equal(t, 1, c.ExpectedUnscanned)
}

func TestRecords_FilterAndOrder(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("aaa111", "", false)
	svc.Submit("bbb222", "", false)
	svc.Submit("aab333", "", false)
	drain(queue)

	all := svc.Records("")
	require.Len(t, all, 3)
	assert.Equal(t, "aab333", all[0].Identity) // newest first

	filtered := svc.Records("aa")
	require.Len(t, filtered, 2)
	assert.Equal(t, "aab333", filtered[0].Identity)
	assert.Equal(t, "aaa111", filtered[1].Identity)
}

func TestRefresh_ReportsServerCount(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	svc.Submit("pkg040", "", false)
	svc.Submit("pkg041", "", false)
	drain(queue)

	n, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, len(svc.Records("")))
}

func TestPersistScan_UnauthorizedSkipsNotification(t *testing.T) {
	gw := newFakeGateway(models.TaskTypeIncoming)
	gw.createErr = common.ErrorUnauthorized
	svc, _, queue := newTestService(t, gw)
	require.NoError(t, svc.Open(context.Background(), "t1"))

	var notices []string
	svc.SetNotifier(func(msg string) { notices = append(notices, msg) })

	svc.Submit("pkg050", "", false)
	drain(queue)

	// the session teardown path owns the 401 message
	assert.Empty(t, notices)
	assert.True(t, errors.Is(gw.createErr, common.ErrorUnauthorized))
}
