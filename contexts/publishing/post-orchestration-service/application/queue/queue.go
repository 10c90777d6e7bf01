package queue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// Runner is the slice of the post manager registry the queue drives.
type Runner interface {
	StartPost(ctx context.Context, record entities.PostRecord) error
	IsPosting(submissionID string) bool
	IsPostingType(submissionType entities.SubmissionType) bool
}

// Queue admits submissions for posting and reconciles queue entries with attempt outcomes.
type Queue struct {
	Repository  ports.PostQueueRepository
	Records     ports.PostRecordRepository
	Submissions ports.SubmissionReader
	Builder     resume.Builder
	Runner      Runner
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger

	pausedMu sync.RWMutex
	paused   bool
	execMu   sync.Mutex
	// started holds records this instance handed to the runner. Guarded by execMu.
	started map[string]struct{}
}

// Enqueue adds one queue record per distinct submission. Submissions already queued are
// left untouched, including their resume mode.
func (q *Queue) Enqueue(
	ctx context.Context,
	submissionIDs []string,
	mode entities.ResumeMode,
) ([]entities.PostQueueRecord, error) {
	logger := application.ResolveLogger(q.Logger)
	resolved, ok := entities.ParseResumeMode(string(mode))
	if !ok {
		return nil, domainerrors.ErrInvalidResumeMode
	}

	created := make([]entities.PostQueueRecord, 0, len(submissionIDs))
	for _, submissionID := range normalizeIDs(submissionIDs) {
		if _, err := q.Repository.GetQueueRecordBySubmission(ctx, submissionID); err == nil {
			continue
		} else if !errors.Is(err, domainerrors.ErrQueueRecordNotFound) {
			return created, err
		}

		recordID, err := q.IDGen.NewID(ctx)
		if err != nil {
			return created, err
		}
		record := entities.PostQueueRecord{
			ID:           recordID,
			SubmissionID: submissionID,
			ResumeMode:   resolved,
			CreatedAt:    q.now(),
		}
		if err := q.Repository.CreateQueueRecord(ctx, record); err != nil {
			if errors.Is(err, domainerrors.ErrQueueRecordExists) {
				continue
			}
			logger.Error("post queue enqueue failed",
				"event", "post_queue_enqueue_failed",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"submission_id", submissionID,
				"error", err.Error(),
			)
			return created, err
		}
		created = append(created, record)
	}
	logger.Info("post queue enqueued submissions",
		"event", "post_queue_enqueued",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"requested", len(submissionIDs),
		"created", len(created),
		"resume_mode", string(resolved),
	)
	return created, nil
}

// Dequeue removes queue records only. Running attempts must be cancelled separately.
func (q *Queue) Dequeue(ctx context.Context, submissionIDs []string) (int, error) {
	logger := application.ResolveLogger(q.Logger)
	ids := normalizeIDs(submissionIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := q.Repository.DeleteQueueRecordsBySubmission(ctx, ids)
	if err != nil {
		logger.Error("post queue dequeue failed",
			"event", "post_queue_dequeue_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("post queue dequeued submissions",
		"event", "post_queue_dequeued",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"requested", len(ids),
		"removed", removed,
	)
	return removed, nil
}

func (q *Queue) Pause() {
	q.pausedMu.Lock()
	q.paused = true
	q.pausedMu.Unlock()
	application.ResolveLogger(q.Logger).Info("post queue paused",
		"event", "post_queue_paused",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
	)
}

func (q *Queue) Resume() {
	q.pausedMu.Lock()
	q.paused = false
	q.pausedMu.Unlock()
	application.ResolveLogger(q.Logger).Info("post queue resumed",
		"event", "post_queue_resumed",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
	)
}

func (q *Queue) IsPaused() bool {
	q.pausedMu.RLock()
	defer q.pausedMu.RUnlock()
	return q.paused
}

// Peek returns the head of the queue joined with its post record, or nil when empty.
func (q *Queue) Peek(ctx context.Context) (*entities.PostQueueRecord, error) {
	head, ok, err := q.Repository.HeadQueueRecord(ctx)
	if err != nil || !ok {
		return nil, err
	}
	if head.PostRecordID != "" {
		record, err := q.Records.GetPostRecord(ctx, head.PostRecordID)
		switch {
		case err == nil:
			head.PostRecord = &record
		case errors.Is(err, domainerrors.ErrPostRecordNotFound):
		default:
			return nil, err
		}
	}
	return &head, nil
}

// Execute is the queue tick. Only the head entry is considered per call.
func (q *Queue) Execute(ctx context.Context) error {
	q.execMu.Lock()
	defer q.execMu.Unlock()

	logger := application.ResolveLogger(q.Logger)
	if q.IsPaused() {
		logger.Debug("post queue tick skipped while paused",
			"event", "post_queue_tick_paused",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
		)
		return nil
	}
	head, ok, err := q.Repository.HeadQueueRecord(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if head.PostRecordID == "" {
		return q.admit(ctx, head)
	}

	record, err := q.Records.GetPostRecord(ctx, head.PostRecordID)
	if errors.Is(err, domainerrors.ErrPostRecordNotFound) {
		logger.Warn("post queue head lost its post record",
			"event", "post_queue_head_record_missing",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", head.SubmissionID,
			"post_record_id", head.PostRecordID,
		)
		return q.Repository.AttachPostRecord(ctx, head.ID, "")
	}
	if err != nil {
		return err
	}

	if q.Runner.IsPosting(head.SubmissionID) {
		return nil
	}
	if record.State.IsTerminal() {
		if err := q.Repository.DeleteQueueRecord(ctx, head.ID); err != nil && !errors.Is(err, domainerrors.ErrQueueRecordNotFound) {
			return err
		}
		logger.Info("post queue released finished submission",
			"event", "post_queue_released",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", head.SubmissionID,
			"post_record_id", record.ID,
			"state", string(record.State),
		)
		return nil
	}

	// A RUNNING record this process already ran ended on a fatal store or ledger error.
	// Only crash recovery at the next startup may resume it.
	if _, ok := q.started[record.ID]; ok && record.State == entities.PostRecordStateRunning {
		logger.Warn("post queue parked stalled attempt",
			"event", "post_queue_attempt_stalled",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", head.SubmissionID,
			"post_record_id", record.ID,
		)
		return nil
	}

	// PENDING with nothing in flight, or RUNNING left by a previous process. The manager
	// resumes RUNNING records against themselves.
	submission, err := q.Submissions.GetSubmission(ctx, head.SubmissionID)
	if errors.Is(err, domainerrors.ErrSubmissionNotFound) {
		return q.abandon(ctx, head, &record)
	}
	if err != nil {
		return err
	}
	if q.Runner.IsPostingType(submission.Type) {
		return nil
	}
	logger.Info("post queue restarting orphaned attempt",
		"event", "post_queue_orphan_restart",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", head.SubmissionID,
		"post_record_id", record.ID,
		"state", string(record.State),
	)
	return q.start(ctx, record)
}

func (q *Queue) admit(ctx context.Context, head entities.PostQueueRecord) error {
	logger := application.ResolveLogger(q.Logger)
	if q.Runner.IsPosting(head.SubmissionID) {
		return nil
	}
	submission, err := q.Submissions.GetSubmission(ctx, head.SubmissionID)
	if errors.Is(err, domainerrors.ErrSubmissionNotFound) {
		return q.abandon(ctx, head, nil)
	}
	if err != nil {
		return err
	}
	if q.Runner.IsPostingType(submission.Type) {
		return nil
	}

	mode := head.ResumeMode
	if mode == "" {
		mode = entities.ResumeModeRestart
	}
	record, err := q.Builder.Create(ctx, head.SubmissionID, mode)
	if errors.Is(err, domainerrors.ErrActivePostRecordExists) {
		// Adopt the active record so the next tick resumes it.
		active, findErr := q.findActiveRecord(ctx, head.SubmissionID)
		if findErr != nil {
			return findErr
		}
		return q.Repository.AttachPostRecord(ctx, head.ID, active.ID)
	}
	if err != nil {
		return err
	}
	if err := q.Repository.AttachPostRecord(ctx, head.ID, record.ID); err != nil {
		return err
	}
	logger.Info("post queue admitted submission",
		"event", "post_queue_admitted",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", head.SubmissionID,
		"post_record_id", record.ID,
		"resume_mode", string(mode),
	)
	return q.start(ctx, record)
}

// Stalled reports whether the head is a RUNNING attempt this process already ran and
// that is no longer in flight. Such a head stays parked until the next startup.
func (q *Queue) Stalled(ctx context.Context) (bool, error) {
	q.execMu.Lock()
	defer q.execMu.Unlock()

	head, ok, err := q.Repository.HeadQueueRecord(ctx)
	if err != nil || !ok || head.PostRecordID == "" {
		return false, err
	}
	if _, started := q.started[head.PostRecordID]; !started || q.Runner.IsPosting(head.SubmissionID) {
		return false, nil
	}
	record, err := q.Records.GetPostRecord(ctx, head.PostRecordID)
	if errors.Is(err, domainerrors.ErrPostRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.State == entities.PostRecordStateRunning, nil
}

func (q *Queue) start(ctx context.Context, record entities.PostRecord) error {
	if q.started == nil {
		q.started = make(map[string]struct{})
	}
	q.started[record.ID] = struct{}{}
	err := q.Runner.StartPost(ctx, record)
	if errors.Is(err, domainerrors.ErrPostAlreadyRunning) {
		return nil
	}
	return err
}

// abandon drops a queue entry whose submission no longer exists and closes its attempt.
func (q *Queue) abandon(ctx context.Context, head entities.PostQueueRecord, record *entities.PostRecord) error {
	application.ResolveLogger(q.Logger).Warn("post queue dropped unknown submission",
		"event", "post_queue_submission_missing",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", head.SubmissionID,
	)
	if record != nil && !record.State.IsTerminal() {
		completedAt := q.now()
		if err := q.Records.UpdatePostRecordState(ctx, record.ID, entities.PostRecordStateFailed, &completedAt); err != nil {
			return err
		}
	}
	if err := q.Repository.DeleteQueueRecord(ctx, head.ID); err != nil && !errors.Is(err, domainerrors.ErrQueueRecordNotFound) {
		return err
	}
	return nil
}

func (q *Queue) findActiveRecord(ctx context.Context, submissionID string) (entities.PostRecord, error) {
	history, err := q.Records.ListPostRecordsBySubmission(ctx, submissionID)
	if err != nil {
		return entities.PostRecord{}, err
	}
	for _, record := range history {
		if record.State.IsActive() {
			return record, nil
		}
	}
	return entities.PostRecord{}, domainerrors.ErrPostRecordNotFound
}

// SetPaused is used at startup to honor the configured initial state.
func (q *Queue) SetPaused(paused bool) {
	q.pausedMu.Lock()
	defer q.pausedMu.Unlock()
	q.paused = paused
}

func (q *Queue) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}

func normalizeIDs(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	ids := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		ids = append(ids, value)
	}
	return ids
}
