package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
)

func TestCreatePostRecordAllowsOneActivePerSubmission(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first := entities.PostRecord{ID: "r1", SubmissionID: "sub-1", State: entities.PostRecordStatePending, ResumeMode: entities.ResumeModeRestart, CreatedAt: now}
	if err := store.CreatePostRecord(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second := first
	second.ID = "r2"
	if err := store.CreatePostRecord(ctx, second); !errors.Is(err, domainerrors.ErrActivePostRecordExists) {
		t.Fatalf("expected active record conflict, got %v", err)
	}
	if err := store.UpdatePostRecordState(ctx, "r1", entities.PostRecordStateFailed, &now); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	second.CreatedAt = now.Add(time.Second)
	if err := store.CreatePostRecord(ctx, second); err != nil {
		t.Fatalf("create after terminal failed: %v", err)
	}

	history, err := store.ListPostRecordsBySubmission(ctx, "sub-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 2 || history[0].ID != "r2" {
		t.Fatalf("expected newest first, got %+v", history)
	}
	if err := store.UpdatePostRecordState(ctx, "missing", entities.PostRecordStateDone, nil); err != domainerrors.ErrPostRecordNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventsOrderedByTimeThenSeq(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := store.CreatePostRecord(ctx, entities.PostRecord{ID: "r1", SubmissionID: "sub-1", State: entities.PostRecordStateRunning, CreatedAt: now}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, event := range []entities.PostEvent{
		{PostRecordID: "r1", EventType: entities.PostEventFilePosted, FileID: "f2", CreatedAt: now.Add(time.Second)},
		{PostRecordID: "r1", EventType: entities.PostEventAttemptStarted, CreatedAt: now},
		{PostRecordID: "r1", EventType: entities.PostEventFilePosted, FileID: "f1", CreatedAt: now},
	} {
		if err := store.AppendEvent(ctx, event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	items, err := store.ListEventsByPostRecordIDs(ctx, []string{"r1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if items[0].EventType != entities.PostEventAttemptStarted || items[1].FileID != "f1" || items[2].FileID != "f2" {
		t.Fatalf("unexpected order %+v", items)
	}

	store.FailAppends(errors.New("disk full"))
	if err := store.AppendEvent(ctx, entities.PostEvent{PostRecordID: "r1", EventType: entities.PostEventAttemptCompleted}); err == nil {
		t.Fatal("expected append failure")
	}
	store.FailAppends(nil)
	if err := store.AppendEvent(ctx, entities.PostEvent{PostRecordID: "unknown", EventType: entities.PostEventAttemptCompleted}); err != domainerrors.ErrPostRecordNotFound {
		t.Fatalf("expected unknown record rejection, got %v", err)
	}
}

func TestUpsertWebsitePostRecordKeepsOneRowPerAccount(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := store.CreatePostRecord(ctx, entities.PostRecord{ID: "r1", SubmissionID: "sub-1", State: entities.PostRecordStateRunning, CreatedAt: now}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	child := entities.WebsitePostRecord{PostRecordID: "r1", AccountID: "acct-a", CreatedAt: now}
	if err := store.UpsertWebsitePostRecord(ctx, child); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	child.Errors = []entities.PostError{{Stage: "upload", Message: "timeout"}}
	if err := store.UpsertWebsitePostRecord(ctx, child); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	children, err := store.ListWebsitePostRecords(ctx, "r1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(children) != 1 || len(children[0].Errors) != 1 || children[0].ID == "" {
		t.Fatalf("unexpected children %+v", children)
	}
}

func TestQueueAdmissionOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, record := range []entities.PostQueueRecord{
		{ID: "q2", SubmissionID: "sub-2", CreatedAt: now},
		{ID: "q1", SubmissionID: "sub-1", CreatedAt: now},
		{ID: "q0", SubmissionID: "sub-0", CreatedAt: now.Add(-time.Minute)},
	} {
		if err := store.CreateQueueRecord(ctx, record); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if err := store.CreateQueueRecord(ctx, entities.PostQueueRecord{ID: "q3", SubmissionID: "sub-1", CreatedAt: now}); err != domainerrors.ErrQueueRecordExists {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	items, err := store.ListQueueRecords(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if items[0].ID != "q0" || items[1].ID != "q2" || items[2].ID != "q1" {
		t.Fatalf("unexpected order %+v", items)
	}

	if err := store.AttachPostRecord(ctx, "q0", "r9"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	head, ok, err := store.HeadQueueRecord(ctx)
	if err != nil || !ok || head.PostRecordID != "r9" {
		t.Fatalf("unexpected head %+v %v %v", head, ok, err)
	}
	removed, err := store.DeleteQueueRecordsBySubmission(ctx, []string{"sub-0", "sub-2", "sub-x"})
	if err != nil || removed != 2 {
		t.Fatalf("expected two removals, got %d %v", removed, err)
	}
	if err := store.DeleteQueueRecord(ctx, "q0"); err != domainerrors.ErrQueueRecordNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
