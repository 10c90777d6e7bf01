package commands

import (
	"context"
	"log/slog"
	"strings"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
)

type EnqueueCommand struct {
	SubmissionIDs []string
	ResumeMode    string
}

type DequeueCommand struct {
	SubmissionIDs []string
	// CancelRunning also cancels in-flight attempts of the dequeued submissions.
	CancelRunning bool
}

type DequeueResult struct {
	Removed   int
	Cancelled []string
}

type UseCase struct {
	Queue    *queue.Queue
	Registry *posting.Registry
	Logger   *slog.Logger
}

func (uc UseCase) Enqueue(ctx context.Context, cmd EnqueueCommand) ([]entities.PostQueueRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	if len(cmd.SubmissionIDs) == 0 {
		return nil, domainerrors.ErrInvalidPostInput
	}
	mode, ok := entities.ParseResumeMode(cmd.ResumeMode)
	if !ok {
		logger.Warn("post enqueue rejected resume mode",
			"event", "post_enqueue_invalid_resume_mode",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"resume_mode", cmd.ResumeMode,
		)
		return nil, domainerrors.ErrInvalidResumeMode
	}
	return uc.Queue.Enqueue(ctx, cmd.SubmissionIDs, mode)
}

func (uc UseCase) Dequeue(ctx context.Context, cmd DequeueCommand) (DequeueResult, error) {
	if len(cmd.SubmissionIDs) == 0 {
		return DequeueResult{}, domainerrors.ErrInvalidPostInput
	}
	removed, err := uc.Queue.Dequeue(ctx, cmd.SubmissionIDs)
	if err != nil {
		return DequeueResult{}, err
	}
	result := DequeueResult{Removed: removed, Cancelled: []string{}}
	if cmd.CancelRunning && uc.Registry != nil {
		for _, submissionID := range cmd.SubmissionIDs {
			if uc.Registry.CancelIfRunning(submissionID) {
				result.Cancelled = append(result.Cancelled, strings.TrimSpace(submissionID))
			}
		}
	}
	return result, nil
}

func (uc UseCase) Pause() {
	uc.Queue.Pause()
}

func (uc UseCase) Resume() {
	uc.Queue.Resume()
}

// CancelPost reports whether an in-flight attempt was signalled.
func (uc UseCase) CancelPost(_ context.Context, submissionID string) (bool, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return false, domainerrors.ErrInvalidPostInput
	}
	if uc.Registry == nil {
		return false, nil
	}
	return uc.Registry.CancelIfRunning(submissionID), nil
}
