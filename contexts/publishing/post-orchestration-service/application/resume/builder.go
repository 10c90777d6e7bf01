package resume

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/domain/services"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// Builder creates post records and derives resume contexts from the event ledger.
type Builder struct {
	Records ports.PostRecordRepository
	Ledger  ports.EventLedger
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// Create inserts a new PENDING record for submissionID.
func (b Builder) Create(ctx context.Context, submissionID string, mode entities.ResumeMode) (entities.PostRecord, error) {
	logger := application.ResolveLogger(b.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return entities.PostRecord{}, domainerrors.ErrInvalidPostInput
	}
	resolved, ok := entities.ParseResumeMode(string(mode))
	if !ok {
		logger.Warn("post record create rejected resume mode",
			"event", "post_record_create_invalid_resume_mode",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"resume_mode", string(mode),
		)
		return entities.PostRecord{}, domainerrors.ErrInvalidResumeMode
	}

	recordID, err := b.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("post record id generation failed",
			"event", "post_record_id_generation_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"error", err.Error(),
		)
		return entities.PostRecord{}, err
	}
	record := entities.PostRecord{
		ID:           recordID,
		SubmissionID: submissionID,
		State:        entities.PostRecordStatePending,
		ResumeMode:   resolved,
		CreatedAt:    b.now(),
	}
	if err := b.Records.CreatePostRecord(ctx, record); err != nil {
		if errors.Is(err, domainerrors.ErrActivePostRecordExists) {
			logger.Warn("post record create found active attempt",
				"event", "post_record_create_active_exists",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"submission_id", submissionID,
			)
			return entities.PostRecord{}, err
		}
		logger.Error("post record create failed",
			"event", "post_record_create_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", recordID,
			"error", err.Error(),
		)
		return entities.PostRecord{}, err
	}
	logger.Info("post record created",
		"event", "post_record_created",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", submissionID,
		"post_record_id", recordID,
		"resume_mode", string(resolved),
	)
	return record, nil
}

// BuildResumeContext computes what the attempt identified by currentRecordID may skip.
// A RUNNING current record is a crash: its progress is kept whatever mode was requested.
func (b Builder) BuildResumeContext(
	ctx context.Context,
	submissionID string,
	currentRecordID string,
	mode entities.ResumeMode,
) (entities.ResumeContext, error) {
	logger := application.ResolveLogger(b.Logger)
	resolved, ok := entities.ParseResumeMode(string(mode))
	if !ok {
		return entities.ResumeContext{}, domainerrors.ErrInvalidResumeMode
	}
	resumeCtx := entities.NewResumeContext(resolved)

	history, err := b.Records.ListPostRecordsBySubmission(ctx, strings.TrimSpace(submissionID))
	if err != nil {
		logger.Error("resume context history load failed",
			"event", "resume_context_history_load_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", currentRecordID,
			"error", err.Error(),
		)
		return entities.ResumeContext{}, err
	}

	crash := services.IsCrashRecovery(history, currentRecordID)
	resumeCtx.CrashRecovery = crash
	effective := resolved
	if crash {
		effective = entities.ResumeModeContinue
	}
	if effective == entities.ResumeModeRestart {
		logger.Debug("resume context empty for restart",
			"event", "resume_context_restart_empty",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", currentRecordID,
		)
		return resumeCtx, nil
	}

	included := services.NewHistoryWalker(history, currentRecordID, crash).IncludedRecordIDs()
	if len(included) == 0 {
		return resumeCtx, nil
	}
	events, err := b.Ledger.ListEventsByPostRecordIDs(ctx, included)
	if err != nil {
		logger.Error("resume context event load failed",
			"event", "resume_context_event_load_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", submissionID,
			"post_record_id", currentRecordID,
			"error", err.Error(),
		)
		return entities.ResumeContext{}, err
	}
	services.AggregateEvents(&resumeCtx, events, effective == entities.ResumeModeContinue)

	logger.Info("resume context built",
		"event", "resume_context_built",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", submissionID,
		"post_record_id", currentRecordID,
		"resume_mode", string(resolved),
		"crash_recovery", crash,
		"included_records", len(included),
		"completed_accounts", len(resumeCtx.CompletedAccountIDs),
	)
	return resumeCtx, nil
}

func (b Builder) now() time.Time {
	if b.Clock == nil {
		return time.Now().UTC()
	}
	return b.Clock.Now().UTC()
}
