package queries

import (
	"context"
	"strings"

	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

type QueueStatus struct {
	Paused  bool
	Queued  []entities.PostQueueRecord
	Running []posting.RunningPost
}

type UseCase struct {
	Records   ports.PostRecordRepository
	Ledger    ports.EventLedger
	QueueRepo ports.PostQueueRepository
	Queue     *queue.Queue
	Registry  *posting.Registry
}

// GetPostRecord returns the attempt with its per-account children.
func (uc UseCase) GetPostRecord(ctx context.Context, postRecordID string) (entities.PostRecord, error) {
	postRecordID = strings.TrimSpace(postRecordID)
	if postRecordID == "" {
		return entities.PostRecord{}, domainerrors.ErrInvalidPostInput
	}
	record, err := uc.Records.GetPostRecord(ctx, postRecordID)
	if err != nil {
		return entities.PostRecord{}, err
	}
	children, err := uc.Records.ListWebsitePostRecords(ctx, postRecordID)
	if err != nil {
		return entities.PostRecord{}, err
	}
	record.Children = children
	return record, nil
}

// ListPostRecords returns a submission's attempts, newest first.
func (uc UseCase) ListPostRecords(ctx context.Context, submissionID string) ([]entities.PostRecord, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return nil, domainerrors.ErrInvalidPostInput
	}
	return uc.Records.ListPostRecordsBySubmission(ctx, submissionID)
}

// GetEvents returns the ledger of one attempt in write order.
func (uc UseCase) GetEvents(ctx context.Context, postRecordID string) ([]entities.PostEvent, error) {
	postRecordID = strings.TrimSpace(postRecordID)
	if postRecordID == "" {
		return nil, domainerrors.ErrInvalidPostInput
	}
	if _, err := uc.Records.GetPostRecord(ctx, postRecordID); err != nil {
		return nil, err
	}
	return uc.Ledger.ListEventsByPostRecordIDs(ctx, []string{postRecordID})
}

func (uc UseCase) Peek(ctx context.Context) (*entities.PostQueueRecord, error) {
	return uc.Queue.Peek(ctx)
}

func (uc UseCase) IsPosting(submissionID string) bool {
	if uc.Registry == nil {
		return false
	}
	return uc.Registry.IsPosting(submissionID)
}

func (uc UseCase) QueueStatus(ctx context.Context) (QueueStatus, error) {
	queued, err := uc.QueueRepo.ListQueueRecords(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	status := QueueStatus{
		Paused:  uc.Queue.IsPaused(),
		Queued:  queued,
		Running: []posting.RunningPost{},
	}
	if uc.Registry != nil {
		status.Running = uc.Registry.Running()
	}
	return status, nil
}
