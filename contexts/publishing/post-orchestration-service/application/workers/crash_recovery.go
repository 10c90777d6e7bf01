package workers

import (
	"context"
	"errors"
	"log/slog"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// CrashRecovery re-admits attempts left RUNNING by an unclean shutdown. The queue then
// restarts each one against its own record, which keeps the progress made before the crash.
type CrashRecovery struct {
	Records   ports.PostRecordRepository
	QueueRepo ports.PostQueueRepository
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// RunOnce returns the number of recovered records.
func (c CrashRecovery) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(c.Logger)
	running, err := c.Records.ListPostRecordsByState(ctx, entities.PostRecordStateRunning)
	if err != nil {
		logger.Error("crash recovery scan failed",
			"event", "crash_recovery_scan_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	recovered := 0
	for _, record := range running {
		if err := c.readmit(ctx, record); err != nil {
			logger.Error("crash recovery readmit failed",
				"event", "crash_recovery_readmit_failed",
				"module", "publishing/post-orchestration-service",
				"layer", "worker",
				"submission_id", record.SubmissionID,
				"post_record_id", record.ID,
				"error", err.Error(),
			)
			return recovered, err
		}
		recovered++
		logger.Info("crash recovery readmitted attempt",
			"event", "crash_recovery_readmitted",
			"module", "publishing/post-orchestration-service",
			"layer", "worker",
			"submission_id", record.SubmissionID,
			"post_record_id", record.ID,
			"resume_mode", string(record.ResumeMode),
		)
	}
	return recovered, nil
}

func (c CrashRecovery) readmit(ctx context.Context, record entities.PostRecord) error {
	existing, err := c.QueueRepo.GetQueueRecordBySubmission(ctx, record.SubmissionID)
	if err == nil {
		if existing.PostRecordID == record.ID {
			return nil
		}
		return c.QueueRepo.AttachPostRecord(ctx, existing.ID, record.ID)
	}
	if !errors.Is(err, domainerrors.ErrQueueRecordNotFound) {
		return err
	}

	queueID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	// The record's creation time puts recovered work ahead of later admissions.
	err = c.QueueRepo.CreateQueueRecord(ctx, entities.PostQueueRecord{
		ID:           queueID,
		SubmissionID: record.SubmissionID,
		PostRecordID: record.ID,
		ResumeMode:   record.ResumeMode,
		CreatedAt:    record.CreatedAt,
	})
	if errors.Is(err, domainerrors.ErrQueueRecordExists) {
		return nil
	}
	return err
}
