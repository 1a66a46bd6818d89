// Package services contains the application services of the scanning console.
// This file defines the scanning service: the submission state machine, the
// optimistic write path against the gateway, manifest submission, and the
// derived counters.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"packtrack/internal/client/gateway"
	"packtrack/internal/client/ledger"
	"packtrack/internal/client/manifest"
	"packtrack/internal/client/models"
	"packtrack/internal/client/session"
	"packtrack/internal/client/stats"
	"packtrack/internal/common"
	"packtrack/internal/logging"
)

// SubmitResult classifies the outcome of one pass through the input state
// machine: idle → validating → accepted | rejected-duplicate |
// rejected-format → idle.
type SubmitResult string

const (
	ResultAccepted      SubmitResult = "accepted"
	ResultDuplicate     SubmitResult = "rejected-duplicate"
	ResultInvalidFormat SubmitResult = "rejected-format"
)

// identityPattern is the format rule for a scannable identifier: at least six
// word characters.
var identityPattern = regexp.MustCompile(`^\w{6,}$`)

// SubmitOutcome is what the console needs to drive its feedback: the result,
// the identity as stored (suffix applied for outgoing tasks), and whether it
// matched the expected manifest at scan time.
type SubmitOutcome struct {
	Result   SubmitResult
	Identity string
	Matched  bool
}

// ScanService drives one scanning session for an open task.
//
// Contract:
//   - Open: fetch task and expected manifest (racing independently), seed
//     local state.
//   - Submit: the synchronous input state machine plus the asynchronous
//     optimistic write. Operator feedback (cue, outcome) is produced before
//     any network I/O.
//   - Delete / SetCancelled: local-first mutations followed by a gateway
//     call; local state is not rolled back on failure.
//   - SubmitManifest: validate, submit, merge the echoed set, reconcile.
//   - Refresh: re-seed the ledger from the gateway.
type ScanService interface {
	SetNotifier(fn func(string))
	Open(ctx context.Context, taskRef string) error
	Task() *models.Task
	Submit(packageID, remarks string, cancelled bool) SubmitOutcome
	Delete(ctx context.Context, serverID string) error
	SetCancelled(ctx context.Context, serverID string, cancelled bool) error
	SubmitManifest(ctx context.Context, text string) (int, error)
	Counters() stats.Counters
	DisplayCounters() stats.Counters
	Records(filter string) []models.ScanRecord
	Expected() []models.ExpectedEntry
	Refresh(ctx context.Context) (int, error)
	Wait()
	Close()
}

type scanService struct {
	client gateway.Client
	sess   *session.Session
	log    logging.Logger
	cue    Cue

	// notify surfaces gateway failures to the operator. The console installs
	// its own printer; defaults to a no-op for headless use.
	notify func(msg string)

	led *ledger.Ledger
	man *manifest.Manifest

	mu       sync.Mutex
	task     *models.Task
	taskType models.TaskType

	unscannedMu    sync.Mutex
	staleUnscanned int
	debounce       *stats.Debouncer

	// spawn runs the asynchronous write path; a test seam (tests install a
	// synchronous runner).
	spawn func(func())
	wg    sync.WaitGroup
}

// NewScanService wires a scanning session. debounceWindow controls how long
// the expected-unscanned display may lag behind the exact counters.
func NewScanService(client gateway.Client, sess *session.Session, log logging.Logger, cue Cue, debounceWindow time.Duration) ScanService {
	s := &scanService{
		client: client,
		sess:   sess,
		log:    log,
		cue:    cue,
		notify: func(string) {},
		led:    ledger.New(),
		man:    manifest.New(),
		spawn:  func(fn func()) { go fn() },
	}
	s.debounce = stats.NewDebouncer(debounceWindow, s.refreshUnscanned)
	return s
}

// SetNotifier installs the operator notification sink.
func (s *scanService) SetNotifier(fn func(string)) {
	if fn != nil {
		s.notify = fn
	}
}

// Open fetches the task and the expected manifest. The two fetches race
// independently; whichever lands second triggers the reconciliation pass that
// makes the sets consistent. A manifest fetch failure is not fatal: scanning
// can proceed against an empty manifest and the operator can refresh later.
func (s *scanService) Open(ctx context.Context, taskRef string) error {
	var (
		wg      sync.WaitGroup
		taskErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		task, err := s.client.GetTask(ctx, taskRef)
		if err != nil {
			taskErr = err
			return
		}
		s.mu.Lock()
		s.task = task
		s.taskType = task.Type
		s.mu.Unlock()
		s.led.Seed(task.Packages)
		s.man.Reconcile(s.led)
		s.debounce.Trigger()
	}()
	go func() {
		defer wg.Done()
		ids, err := s.client.GetExpectedPackages(ctx, taskRef)
		if err != nil {
			s.log.Warn(ctx, "expected manifest fetch failed", "task", taskRef, "error", err)
			return
		}
		s.man.Load(ids)
		s.man.Reconcile(s.led)
		s.debounce.Trigger()
	}()
	wg.Wait()

	if taskErr != nil {
		return fmt.Errorf("opening task %s: %w", taskRef, taskErr)
	}
	s.refreshUnscanned()
	return nil
}

func (s *scanService) Task() *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Submit runs the input state machine. Everything the operator perceives
// (cue, outcome, match feedback) happens synchronously against the current
// manifest snapshot; persistence then proceeds in the background and is
// matched back to the record by identity when the gateway answers.
func (s *scanService) Submit(packageID, remarks string, cancelled bool) SubmitOutcome {
	raw := strings.TrimSpace(packageID)
	if !identityPattern.MatchString(raw) {
		s.cue.Error()
		return SubmitOutcome{Result: ResultInvalidFormat, Identity: raw}
	}

	s.mu.Lock()
	taskType := s.taskType
	taskID := ""
	if s.task != nil {
		taskID = s.task.ID
	}
	s.mu.Unlock()

	identity := models.ApplySuffix(raw, taskType)

	if s.led.HasAnyCase(identity) {
		s.cue.Error()
		return SubmitOutcome{Result: ResultDuplicate, Identity: identity}
	}

	matched := s.man.IsMatched(identity)
	if matched {
		s.cue.Success()
	} else {
		s.cue.Error()
	}

	if _, err := s.led.Upsert(identity, remarks, cancelled); err != nil {
		// lost a race with an identical submission
		return SubmitOutcome{Result: ResultDuplicate, Identity: identity}
	}
	s.man.Reconcile(s.led)
	s.debounce.Trigger()

	status := models.NotMatched
	if matched {
		status = models.Matched
	}

	s.wg.Add(1)
	s.spawn(func() {
		defer s.wg.Done()
		s.persistScan(gateway.CreatePackageRequest{
			TaskID:    taskID,
			PackageID: identity,
			Remarks:   remarks,
			Cancelled: cancelled,
			Status:    string(status),
		})
	})

	return SubmitOutcome{Result: ResultAccepted, Identity: identity, Matched: matched}
}

// persistScan is the asynchronous half of a submission. It runs on an
// uncancellable context: a scan that has been optimistically recorded and
// sent must not be dropped because the operator navigated away.
func (s *scanService) persistScan(req gateway.CreatePackageRequest) {
	ctx := context.Background()

	pkg, created, err := s.client.CreatePackage(ctx, req)
	if err != nil {
		// record stays pending; retry is operator-initiated (delete+rescan)
		s.log.Error(ctx, "package write failed", "package_id", req.PackageID, "error", err)
		if !errors.Is(err, common.ErrorUnauthorized) {
			s.notify(fmt.Sprintf("saving %s failed, record kept as pending", req.PackageID))
		}
		return
	}

	cancelled := pkg.Cancelled
	if !created {
		// authoritative duplicate resolution from the data layer
		cancelled = true
	}
	if err := s.led.Confirm(pkg.PackageID, pkg.ID, pkg.CreatedAt, cancelled); err != nil {
		s.log.Warn(ctx, "confirmation for unknown identity discarded", "package_id", pkg.PackageID)
		return
	}
	s.debounce.Trigger()
}

// Delete removes the record locally and then issues the gateway delete. The
// local removal is not rolled back on failure.
func (s *scanService) Delete(ctx context.Context, serverID string) error {
	if err := s.led.Remove(serverID); err != nil {
		return err
	}
	s.man.Reconcile(s.led)
	s.debounce.Trigger()

	if err := s.client.DeletePackage(ctx, serverID); err != nil {
		s.log.Error(ctx, "package delete failed", "id", serverID, "error", err)
		s.notify("delete not acknowledged by the gateway")
		return err
	}
	return nil
}

// SetCancelled flips the cancelled flag locally (record re-enters pending)
// and then issues the gateway patch, confirming on acknowledgment.
func (s *scanService) SetCancelled(ctx context.Context, serverID string, cancelled bool) error {
	if err := s.led.SetCancelled(serverID, cancelled); err != nil {
		return err
	}
	s.debounce.Trigger()

	pkg, err := s.client.PatchPackage(ctx, serverID, cancelled)
	if err != nil {
		s.log.Error(ctx, "package patch failed", "id", serverID, "error", err)
		s.notify("cancel not acknowledged by the gateway")
		return err
	}
	if err := s.led.Confirm(pkg.PackageID, pkg.ID, pkg.CreatedAt, pkg.Cancelled); err != nil {
		s.log.Warn(ctx, "confirmation for unknown identity discarded", "package_id", pkg.PackageID)
	}
	return nil
}

// SubmitManifest validates the operator's multi-line input, submits it, and
// merges the echoed stored set into the local manifest. The match-expected
// patch lets the gateway retroactively flag existing scans.
func (s *scanService) SubmitManifest(ctx context.Context, text string) (int, error) {
	ids, err := manifest.ParseInput(text)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	taskID := ""
	if s.task != nil {
		taskID = s.task.ID
	}
	s.mu.Unlock()

	echoed, err := s.client.PostExpectedPackages(ctx, taskID, ids, s.sess.User().Username)
	if err != nil {
		return 0, fmt.Errorf("submitting manifest: %w", err)
	}
	if err := s.client.MatchExpected(ctx, taskID, ids); err != nil {
		s.log.Warn(ctx, "match-expected patch failed", "task", taskID, "error", err)
	}

	s.man.Merge(echoed)
	s.man.Reconcile(s.led)
	s.debounce.Trigger()
	return len(echoed), nil
}

// Counters returns the exact aggregate. Never debounced: scan-time decisions
// and tests read precise values.
func (s *scanService) Counters() stats.Counters {
	return stats.Aggregate(s.led.Snapshot(), s.man.Entries())
}

// DisplayCounters is the operator-facing variant: ExpectedUnscanned lags
// behind mutations by the quiescence window.
func (s *scanService) DisplayCounters() stats.Counters {
	c := stats.Aggregate(s.led.Snapshot(), s.man.Entries())
	s.unscannedMu.Lock()
	c.ExpectedUnscanned = s.staleUnscanned
	s.unscannedMu.Unlock()
	return c
}

func (s *scanService) refreshUnscanned() {
	c := stats.Aggregate(nil, s.man.Entries())
	s.unscannedMu.Lock()
	s.staleUnscanned = c.ExpectedUnscanned
	s.unscannedMu.Unlock()
}

// Records returns the scanned list newest-first, optionally filtered by
// substring, as the console's list view shows it.
func (s *scanService) Records(filter string) []models.ScanRecord {
	snap := s.led.Snapshot()
	out := make([]models.ScanRecord, 0, len(snap))
	for i := len(snap) - 1; i >= 0; i-- {
		if filter == "" || strings.Contains(snap[i].Identity, filter) {
			out = append(out, snap[i])
		}
	}
	return out
}

func (s *scanService) Expected() []models.ExpectedEntry {
	return s.man.Entries()
}

// Refresh re-seeds the ledger from the gateway and returns the server-side
// package count, which the report path compares with the local count.
func (s *scanService) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	taskRef := ""
	if s.task != nil {
		taskRef = s.task.ID
	}
	s.mu.Unlock()

	task, err := s.client.GetTask(ctx, taskRef)
	if err != nil {
		return 0, fmt.Errorf("refreshing task: %w", err)
	}

	s.mu.Lock()
	s.task = task
	s.mu.Unlock()
	s.led.Seed(task.Packages)
	s.man.Reconcile(s.led)
	s.debounce.Trigger()
	return len(task.Packages), nil
}

// Wait blocks until all in-flight scan writes have completed.
func (s *scanService) Wait() {
	s.wg.Wait()
}

// Close stops the debounce timer. In-flight writes are left to finish.
func (s *scanService) Close() {
	s.debounce.Stop()
}
