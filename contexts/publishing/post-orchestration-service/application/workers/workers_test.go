package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/adapters/memory"
	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	"crosspost/internal/shared/events"
)

type recordingRunner struct {
	mu      sync.Mutex
	started []string
}

func (r *recordingRunner) StartPost(_ context.Context, record entities.PostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, record.ID)
	return nil
}

func (r *recordingRunner) IsPosting(string) bool { return false }

func (r *recordingRunner) IsPostingType(entities.SubmissionType) bool { return false }

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

type captureSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, events.Envelope) error
}

func (s *captureSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

type failingQueueRepo struct {
	*memory.Store
}

func (failingQueueRepo) GetQueueRecordBySubmission(context.Context, string) (entities.PostQueueRecord, error) {
	return entities.PostQueueRecord{}, errors.New("connection reset")
}

func newPostQueue(store *memory.Store, catalog *memory.Catalog, runner queue.Runner) *queue.Queue {
	return &queue.Queue{
		Repository:  store,
		Records:     store,
		Submissions: catalog,
		Builder:     resume.Builder{Records: store, Ledger: store, Clock: store, IDGen: store},
		Runner:      runner,
		Clock:       store,
		IDGen:       store,
	}
}

func runningRecord(t *testing.T, store *memory.Store, submissionID string, createdAt time.Time) entities.PostRecord {
	t.Helper()
	ctx := context.Background()
	record := entities.PostRecord{
		ID:           "rec-" + submissionID,
		SubmissionID: submissionID,
		State:        entities.PostRecordStatePending,
		ResumeMode:   entities.ResumeModeContinue,
		CreatedAt:    createdAt,
	}
	if err := store.CreatePostRecord(ctx, record); err != nil {
		t.Fatalf("create record: %v", err)
	}
	if err := store.UpdatePostRecordState(ctx, record.ID, entities.PostRecordStateRunning, nil); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	record.State = entities.PostRecordStateRunning
	return record
}

func TestCrashRecoveryReadmitsRunningRecords(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	base := time.Date(2026, time.May, 4, 7, 0, 0, 0, time.UTC)

	fresh := runningRecord(t, store, "sub-1", base)
	queued := runningRecord(t, store, "sub-2", base.Add(time.Minute))
	if err := store.CreateQueueRecord(ctx, entities.PostQueueRecord{
		ID:           "q-2",
		SubmissionID: "sub-2",
		ResumeMode:   entities.ResumeModeRestart,
		CreatedAt:    base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create queue record: %v", err)
	}
	if err := store.CreateQueueRecord(ctx, entities.PostQueueRecord{
		ID:           "q-later",
		SubmissionID: "sub-later",
		ResumeMode:   entities.ResumeModeRestart,
		CreatedAt:    base.Add(30 * time.Second),
	}); err != nil {
		t.Fatalf("create queue record: %v", err)
	}

	recovery := CrashRecovery{Records: store, QueueRepo: store, IDGen: store}
	recovered, err := recovery.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if recovered != 2 {
		t.Fatalf("expected two recovered records, got %d", recovered)
	}

	head, ok, err := store.HeadQueueRecord(ctx)
	if err != nil || !ok {
		t.Fatalf("head: %v %v", ok, err)
	}
	if head.SubmissionID != "sub-1" || head.PostRecordID != fresh.ID {
		t.Fatalf("expected recovered work at the head, got %+v", head)
	}
	attached, err := store.GetQueueRecordBySubmission(ctx, "sub-2")
	if err != nil {
		t.Fatalf("get queue record: %v", err)
	}
	if attached.PostRecordID != queued.ID {
		t.Fatalf("expected existing entry to be linked, got %+v", attached)
	}

	again, err := recovery.RunOnce(ctx)
	if err != nil || again != 2 {
		t.Fatalf("expected idempotent rerun, got %d %v", again, err)
	}
	items, _ := store.ListQueueRecords(ctx)
	if len(items) != 3 {
		t.Fatalf("rerun must not add queue records, got %d", len(items))
	}
}

func TestCrashRecoveryStopsOnQueueError(t *testing.T) {
	store := memory.NewStore()
	runningRecord(t, store, "sub-1", time.Now().UTC())

	recovery := CrashRecovery{Records: store, QueueRepo: failingQueueRepo{store}, IDGen: store}
	if _, err := recovery.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected queue error to surface")
	}
}

func TestCrashRecoveryFeedsQueueRestart(t *testing.T) {
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	catalog.PutSubmission(entities.Submission{ID: "sub-1", Type: entities.SubmissionTypeMessage})
	record := runningRecord(t, store, "sub-1", time.Now().UTC())
	runner := &recordingRunner{}
	postQueue := newPostQueue(store, catalog, runner)

	if _, err := (CrashRecovery{Records: store, QueueRepo: store, IDGen: store}).RunOnce(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if err := (QueueTicker{Queue: postQueue}).RunOnce(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if runner.count() != 1 || runner.started[0] != record.ID {
		t.Fatalf("expected the crashed record to restart, got %v", runner.started)
	}
}

func TestAttemptFinishedConsumerTicksQueue(t *testing.T) {
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	catalog.PutSubmission(entities.Submission{ID: "sub-1", Type: entities.SubmissionTypeFile})
	runner := &recordingRunner{}
	postQueue := newPostQueue(store, catalog, runner)
	if _, err := postQueue.Enqueue(context.Background(), []string{"sub-1"}, entities.ResumeModeRestart); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	subscriber := &captureSubscriber{}
	consumer := AttemptFinishedConsumer{Subscriber: subscriber, Queue: postQueue}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if subscriber.topic != posting.TopicPostAttemptFinished || subscriber.group != "post-orchestration-queue-cg" {
		t.Fatalf("unexpected subscription %q %q", subscriber.topic, subscriber.group)
	}

	if err := subscriber.handler(context.Background(), events.Envelope{EventType: "post.something.else"}); err != nil {
		t.Fatalf("handle unrelated: %v", err)
	}
	if runner.count() != 0 {
		t.Fatalf("unrelated events must be ignored")
	}
	if err := subscriber.handler(context.Background(), events.Envelope{
		EventType:     posting.EventTypePostAttemptFinished,
		EntityID:      "rec-0",
		CorrelationID: "sub-0",
	}); err != nil {
		t.Fatalf("handle finished: %v", err)
	}
	if runner.count() != 1 {
		t.Fatalf("expected finished event to tick the queue")
	}
}

func TestAttemptFinishedConsumerWithoutSubscriber(t *testing.T) {
	if err := (AttemptFinishedConsumer{}).Start(context.Background()); err != nil {
		t.Fatalf("expected no-op start, got %v", err)
	}
}
