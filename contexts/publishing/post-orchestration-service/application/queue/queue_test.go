package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/adapters/memory"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
)

type fakeRunner struct {
	mu           sync.Mutex
	started      []entities.PostRecord
	posting      map[string]bool
	postingTypes map[entities.SubmissionType]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		posting:      make(map[string]bool),
		postingTypes: make(map[entities.SubmissionType]bool),
	}
}

func (r *fakeRunner) StartPost(_ context.Context, record entities.PostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, record)
	return nil
}

func (r *fakeRunner) IsPosting(submissionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posting[submissionID]
}

func (r *fakeRunner) IsPostingType(submissionType entities.SubmissionType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.postingTypes[submissionType]
}

func (r *fakeRunner) startedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.started))
	for _, record := range r.started {
		ids = append(ids, record.ID)
	}
	return ids
}

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	queue   *Queue
	store   *memory.Store
	catalog *memory.Catalog
	runner  *fakeRunner
	clock   *tickClock
}

func newFixture(submissionIDs ...string) fixture {
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	clock := &tickClock{now: time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)}
	for _, submissionID := range submissionIDs {
		catalog.PutSubmission(entities.Submission{
			ID:      submissionID,
			Type:    entities.SubmissionTypeFile,
			Options: []entities.WebsiteOption{{AccountID: "acct-a"}},
		})
	}
	runner := newFakeRunner()
	f := fixture{
		store:   store,
		catalog: catalog,
		runner:  runner,
		clock:   clock,
	}
	f.queue = f.newQueue()
	return f
}

// newQueue builds a queue over the fixture's tables, as a freshly started process would.
func (f fixture) newQueue() *Queue {
	return &Queue{
		Repository:  f.store,
		Records:     f.store,
		Submissions: f.catalog,
		Builder:     resume.Builder{Records: f.store, Ledger: f.store, Clock: f.clock, IDGen: f.store},
		Runner:      f.runner,
		Clock:       f.clock,
		IDGen:       f.store,
	}
}

func (f fixture) finish(t *testing.T, postRecordID string, state entities.PostRecordState) {
	t.Helper()
	now := time.Now().UTC()
	if err := f.store.UpdatePostRecordState(context.Background(), postRecordID, state, &now); err != nil {
		t.Fatalf("update state: %v", err)
	}
}

func (f fixture) head(t *testing.T) (entities.PostQueueRecord, bool) {
	t.Helper()
	head, ok, err := f.store.HeadQueueRecord(context.Background())
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	return head, ok
}

func TestEnqueueIsIdempotentPerSubmission(t *testing.T) {
	f := newFixture("sub-1", "sub-2")
	ctx := context.Background()

	created, err := f.queue.Enqueue(ctx, []string{"sub-1", "sub-1", " sub-2 ", ""}, entities.ResumeModeRestart)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(created) != 2 || created[0].SubmissionID != "sub-1" || created[1].SubmissionID != "sub-2" {
		t.Fatalf("unexpected queue records %+v", created)
	}

	again, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeContinue)
	if err != nil {
		t.Fatalf("enqueue again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new queue record, got %+v", again)
	}
	existing, err := f.store.GetQueueRecordBySubmission(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get queue record: %v", err)
	}
	if existing.ResumeMode != entities.ResumeModeRestart {
		t.Fatalf("queued resume mode must not change, got %s", existing.ResumeMode)
	}

	if _, err := f.queue.Enqueue(ctx, []string{"sub-3"}, entities.ResumeMode("NEVER")); !errors.Is(err, domainerrors.ErrInvalidResumeMode) {
		t.Fatalf("expected invalid resume mode, got %v", err)
	}
}

func TestExecuteAdmitsHeadOnly(t *testing.T) {
	f := newFixture("sub-1", "sub-2")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1", "sub-2"}, entities.ResumeModeContinue); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	started := f.runner.startedIDs()
	if len(started) != 1 {
		t.Fatalf("expected one started attempt, got %v", started)
	}
	head, _ := f.head(t)
	if head.SubmissionID != "sub-1" || head.PostRecordID != started[0] {
		t.Fatalf("expected head linked to the new record, got %+v", head)
	}
	record, err := f.store.GetPostRecord(ctx, started[0])
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.ResumeMode != entities.ResumeModeContinue || record.State != entities.PostRecordStatePending {
		t.Fatalf("unexpected record %+v", record)
	}

	f.runner.posting["sub-1"] = true
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute while posting: %v", err)
	}
	if len(f.runner.startedIDs()) != 1 {
		t.Fatalf("sub-2 must wait behind the head")
	}

	f.runner.posting["sub-1"] = false
	f.finish(t, started[0], entities.PostRecordStateDone)
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute release: %v", err)
	}
	head, _ = f.head(t)
	if head.SubmissionID != "sub-2" {
		t.Fatalf("expected finished head to be released, got %+v", head)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute admit: %v", err)
	}
	if len(f.runner.startedIDs()) != 2 {
		t.Fatalf("expected sub-2 to be started")
	}
}

func TestExecuteHonorsPause(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	f.queue.Pause()
	if !f.queue.IsPaused() {
		t.Fatalf("expected paused queue")
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(f.runner.startedIDs()) != 0 {
		t.Fatalf("paused queue must not start attempts")
	}

	f.queue.Resume()
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(f.runner.startedIDs()) != 1 {
		t.Fatalf("expected attempt after resume")
	}
}

func TestExecuteWaitsForSubmissionTypeSlot(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.runner.postingTypes[entities.SubmissionTypeFile] = true

	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	head, _ := f.head(t)
	if head.PostRecordID != "" || len(f.runner.startedIDs()) != 0 {
		t.Fatalf("expected head to wait for the FILE slot, got %+v", head)
	}
}

func TestDequeueKeepsHistory(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	recordID := f.runner.startedIDs()[0]

	removed, err := f.queue.Dequeue(ctx, []string{"sub-1", "sub-unknown"})
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, ok := f.head(t); ok {
		t.Fatalf("expected empty queue")
	}
	if _, err := f.store.GetPostRecord(ctx, recordID); err != nil {
		t.Fatalf("post record must survive dequeue: %v", err)
	}
	if removed, _ := f.queue.Dequeue(ctx, nil); removed != 0 {
		t.Fatalf("expected no-op dequeue")
	}
}

func TestExecuteRestartsRecordLeftRunningByPreviousProcess(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	recordID := f.runner.startedIDs()[0]
	if err := f.store.UpdatePostRecordState(ctx, recordID, entities.PostRecordStateRunning, nil); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	restarted := f.newQueue()
	if err := restarted.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	started := f.runner.startedIDs()
	if len(started) != 2 || started[1] != recordID {
		t.Fatalf("expected the same record to be restarted, got %v", started)
	}
}

func TestExecuteParksRunningRecordItAlreadyStarted(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	recordID := f.runner.startedIDs()[0]
	if err := f.store.UpdatePostRecordState(ctx, recordID, entities.PostRecordStateRunning, nil); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.queue.Execute(ctx); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	if started := f.runner.startedIDs(); len(started) != 1 {
		t.Fatalf("a stalled attempt must wait for the next startup, got %v", started)
	}
	stalled, err := f.queue.Stalled(ctx)
	if err != nil {
		t.Fatalf("stalled: %v", err)
	}
	if !stalled {
		t.Fatal("expected the head to be reported as stalled")
	}
	if fresh, err := f.newQueue().Stalled(ctx); err != nil || fresh {
		t.Fatalf("a new process has not run the record yet, got %v %v", fresh, err)
	}
}

func TestExecuteRestartsPendingRecordWithNothingInFlight(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	started := f.runner.startedIDs()
	if len(started) != 2 || started[0] != started[1] {
		t.Fatalf("expected the PENDING record to be started again, got %v", started)
	}
}

func TestExecuteAdoptsActiveRecord(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	active, err := f.queue.Builder.Create(ctx, "sub-1", entities.ResumeModeContinue)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	head, _ := f.head(t)
	if head.PostRecordID != active.ID {
		t.Fatalf("expected active record to be adopted, got %+v", head)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if started := f.runner.startedIDs(); len(started) != 1 || started[0] != active.ID {
		t.Fatalf("expected adopted record to start, got %v", started)
	}
}

func TestExecuteAbandonsMissingSubmission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.queue.Enqueue(ctx, []string{"sub-gone"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, ok := f.head(t); ok {
		t.Fatalf("expected entry for a missing submission to be dropped")
	}

	record, err := f.queue.Builder.Create(ctx, "sub-ghost", entities.ResumeModeRestart)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.store.CreateQueueRecord(ctx, entities.PostQueueRecord{
		ID:           "q-ghost",
		SubmissionID: "sub-ghost",
		PostRecordID: record.ID,
		ResumeMode:   entities.ResumeModeRestart,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create queue record: %v", err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	stored, err := f.store.GetPostRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.State != entities.PostRecordStateFailed {
		t.Fatalf("expected abandoned record to be FAILED, got %s", stored.State)
	}
	if len(f.runner.startedIDs()) != 0 {
		t.Fatalf("nothing may start for a missing submission")
	}
}

func TestPeekJoinsPostRecord(t *testing.T) {
	f := newFixture("sub-1")
	ctx := context.Background()
	if head, err := f.queue.Peek(ctx); err != nil || head != nil {
		t.Fatalf("expected empty peek, got %+v %v", head, err)
	}
	if _, err := f.queue.Enqueue(ctx, []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	head, err := f.queue.Peek(ctx)
	if err != nil || head == nil || head.PostRecord != nil {
		t.Fatalf("expected unlinked head, got %+v %v", head, err)
	}
	if err := f.queue.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	head, err = f.queue.Peek(ctx)
	if err != nil || head == nil || head.PostRecord == nil {
		t.Fatalf("expected linked head, got %+v %v", head, err)
	}
	if head.PostRecord.ID != head.PostRecordID {
		t.Fatalf("joined record mismatch")
	}
}
