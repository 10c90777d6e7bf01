package posting

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
)

// RunningPost is the registry entry for one in-flight attempt.
type RunningPost struct {
	SubmissionID   string
	PostRecordID   string
	SubmissionType entities.SubmissionType
	StartedAt      time.Time

	token *CancellationToken
	done  chan struct{}
}

// Done is closed once the attempt has returned.
func (p *RunningPost) Done() <-chan struct{} {
	return p.done
}

func (p *RunningPost) IsCancelled() bool {
	return p.token.IsCancelled()
}

// Registry allows at most one in-flight attempt per submission. Entries are removed
// when the attempt returns.
type Registry struct {
	manager Manager
	logger  *slog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	running map[string]*RunningPost
	stopped bool
	wg      sync.WaitGroup
}

func NewRegistry(manager Manager, logger *slog.Logger) *Registry {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Registry{
		manager:    manager,
		logger:     application.ResolveLogger(logger),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		running:    make(map[string]*RunningPost),
	}
}

// StartPost launches the attempt asynchronously. It returns ErrPostAlreadyRunning when the
// submission already has an entry.
func (r *Registry) StartPost(ctx context.Context, record entities.PostRecord) error {
	submissionID := strings.TrimSpace(record.SubmissionID)
	submission, err := r.manager.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		r.logger.Warn("post registry submission lookup failed",
			"event", "post_registry_submission_lookup_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", record.ID,
			"error", err.Error(),
		)
		return err
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return domainerrors.ErrRegistryStopped
	}
	if _, exists := r.running[submissionID]; exists {
		r.mu.Unlock()
		r.logger.Warn("post registry rejected duplicate start",
			"event", "post_registry_duplicate_start",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", record.ID,
		)
		return domainerrors.ErrPostAlreadyRunning
	}
	entry := &RunningPost{
		SubmissionID:   submissionID,
		PostRecordID:   record.ID,
		SubmissionType: submission.Type,
		StartedAt:      r.manager.now(),
		token:          NewCancellationToken(r.baseCtx),
		done:           make(chan struct{}),
	}
	r.running[submissionID] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	go r.execute(entry, record, submission)
	return nil
}

func (r *Registry) execute(entry *RunningPost, record entities.PostRecord, submission entities.Submission) {
	defer r.wg.Done()

	outcome, err := r.manager.run(entry.token, record, submission)

	r.mu.Lock()
	if r.running[entry.SubmissionID] == entry {
		delete(r.running, entry.SubmissionID)
	}
	r.mu.Unlock()
	entry.token.Cancel()
	close(entry.done)

	switch {
	case err == nil:
	case errors.Is(err, domainerrors.ErrPostCancelled):
		r.logger.Info("post registry attempt cancelled",
			"event", "post_registry_attempt_cancelled",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", entry.SubmissionID,
			"post_record_id", entry.PostRecordID,
			"state", string(outcome.Record.State),
		)
	default:
		r.logger.Error("post registry attempt aborted",
			"event", "post_registry_attempt_aborted",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", entry.SubmissionID,
			"post_record_id", entry.PostRecordID,
			"state", string(outcome.Record.State),
			"error", err.Error(),
		)
	}
	// Published after release so subscribers observe the submission as idle.
	if outcome.Record.State.IsTerminal() {
		r.manager.publishFinished(context.Background(), outcome)
	}
}

// CancelIfRunning signals the submission's attempt and reports whether one was found.
func (r *Registry) CancelIfRunning(submissionID string) bool {
	r.mu.Lock()
	entry, ok := r.running[strings.TrimSpace(submissionID)]
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.token.Cancel()
	r.logger.Info("post registry cancellation requested",
		"event", "post_registry_cancel_requested",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", entry.SubmissionID,
		"post_record_id", entry.PostRecordID,
	)
	return true
}

func (r *Registry) IsPosting(submissionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[strings.TrimSpace(submissionID)]
	return ok
}

// IsPostingType reports whether any in-flight attempt occupies the submission type's slot.
func (r *Registry) IsPostingType(submissionType entities.SubmissionType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.running {
		if entry.SubmissionType == submissionType {
			return true
		}
	}
	return false
}

func (r *Registry) GetManager(submissionID string) (*RunningPost, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.running[strings.TrimSpace(submissionID)]
	return entry, ok
}

// Running lists in-flight attempts ordered by start time.
func (r *Registry) Running() []RunningPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]RunningPost, 0, len(r.running))
	for _, entry := range r.running {
		items = append(items, RunningPost{
			SubmissionID:   entry.SubmissionID,
			PostRecordID:   entry.PostRecordID,
			SubmissionType: entry.SubmissionType,
			StartedAt:      entry.StartedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartedAt.Before(items[j].StartedAt)
	})
	return items
}

// Wait blocks until no attempt is in flight.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Stop rejects new attempts, cancels running ones and waits for them until ctx expires.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	inFlight := len(r.running)
	r.mu.Unlock()
	r.cancelBase()

	r.logger.Info("post registry stopping",
		"event", "post_registry_stopping",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"in_flight", inFlight,
	)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
