package ports

import (
	"context"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	"crosspost/internal/shared/events"
)

type PostRecordRepository interface {
	// CreatePostRecord returns ErrActivePostRecordExists when the submission already
	// has a PENDING or RUNNING record.
	CreatePostRecord(ctx context.Context, record entities.PostRecord) error
	GetPostRecord(ctx context.Context, postRecordID string) (entities.PostRecord, error)
	// ListPostRecordsBySubmission returns history newest first.
	ListPostRecordsBySubmission(ctx context.Context, submissionID string) ([]entities.PostRecord, error)
	ListPostRecordsByState(ctx context.Context, state entities.PostRecordState) ([]entities.PostRecord, error)
	UpdatePostRecordState(
		ctx context.Context,
		postRecordID string,
		state entities.PostRecordState,
		completedAt *time.Time,
	) error
	UpsertWebsitePostRecord(ctx context.Context, record entities.WebsitePostRecord) error
	ListWebsitePostRecords(ctx context.Context, postRecordID string) ([]entities.WebsitePostRecord, error)
}

// EventLedger is append-only.
type EventLedger interface {
	AppendEvent(ctx context.Context, event entities.PostEvent) error
	// ListEventsByPostRecordIDs orders by CreatedAt then Seq, ascending.
	ListEventsByPostRecordIDs(ctx context.Context, postRecordIDs []string) ([]entities.PostEvent, error)
}

type PostQueueRepository interface {
	// CreateQueueRecord returns ErrQueueRecordExists when the submission is already queued.
	CreateQueueRecord(ctx context.Context, record entities.PostQueueRecord) error
	GetQueueRecordBySubmission(ctx context.Context, submissionID string) (entities.PostQueueRecord, error)
	// HeadQueueRecord returns the oldest admission, or false when the queue is empty.
	HeadQueueRecord(ctx context.Context) (entities.PostQueueRecord, bool, error)
	ListQueueRecords(ctx context.Context) ([]entities.PostQueueRecord, error)
	AttachPostRecord(ctx context.Context, queueRecordID string, postRecordID string) error
	DeleteQueueRecord(ctx context.Context, queueRecordID string) error
	DeleteQueueRecordsBySubmission(ctx context.Context, submissionIDs []string) (int, error)
}

type SubmissionReader interface {
	GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error)
}

type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (entities.Account, error)
}

// Website is a destination implementation. Capabilities are discovered through the
// optional interfaces below.
type Website interface {
	Name() string
}

type FileCapable interface {
	Website
	PostFiles(ctx context.Context, data entities.PostData, files []entities.SubmissionFile) (entities.PostResponse, error)
}

type MessageCapable interface {
	Website
	PostMessage(ctx context.Context, data entities.PostData) (entities.PostResponse, error)
}

// FileBatcher lets a destination accept several files per call.
type FileBatcher interface {
	FileBatchSize() int
}

// ResizeCapable destinations return a non-nil request when a file must be resized.
type ResizeCapable interface {
	CalculateResize(file entities.SubmissionFile) *entities.ResizeRequest
}

type WebsiteRegistry interface {
	Lookup(website string) (Website, bool)
}

type FileResizer interface {
	Resize(ctx context.Context, file entities.SubmissionFile, req entities.ResizeRequest) (entities.SubmissionFile, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, events.Envelope) error,
	) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
