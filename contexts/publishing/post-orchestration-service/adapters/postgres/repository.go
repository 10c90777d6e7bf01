package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
	seq    *sequence
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
		seq:    &sequence{},
	}
}

func (r *Repository) CreatePostRecord(ctx context.Context, record entities.PostRecord) error {
	row := postRecordModelFromEntity(record)
	if row.ID == "" || row.SubmissionID == "" {
		r.logWarn("post_repo_create_record_invalid_input",
			"post_record_id", row.ID,
			"submission_id", row.SubmissionID,
		)
		return domainerrors.ErrInvalidPostInput
	}

	if record.State.IsActive() {
		var active int64
		if err := r.db.WithContext(ctx).
			Model(&postRecordModel{}).
			Where("submission_id = ?", row.SubmissionID).
			Where("state IN ?", activeStates()).
			Count(&active).Error; err != nil {
			return r.logError("post_repo_create_record_active_check_failed", err,
				"submission_id", row.SubmissionID,
			)
		}
		if active > 0 {
			r.logWarn("post_repo_create_record_active_exists",
				"post_record_id", row.ID,
				"submission_id", row.SubmissionID,
			)
			return domainerrors.ErrActivePostRecordExists
		}
	}

	row.Seq = r.seq.Next()
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("post_repo_create_record_unique_conflict",
				"post_record_id", row.ID,
				"submission_id", row.SubmissionID,
			)
			return domainerrors.ErrActivePostRecordExists
		}
		return r.logError("post_repo_create_record_failed", err,
			"post_record_id", row.ID,
			"submission_id", row.SubmissionID,
		)
	}
	return nil
}

func (r *Repository) GetPostRecord(ctx context.Context, postRecordID string) (entities.PostRecord, error) {
	var row postRecordModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(postRecordID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PostRecord{}, domainerrors.ErrPostRecordNotFound
		}
		return entities.PostRecord{}, r.logError("post_repo_get_record_failed", err,
			"post_record_id", strings.TrimSpace(postRecordID),
		)
	}
	record := row.toEntity()
	children, err := r.ListWebsitePostRecords(ctx, record.ID)
	if err != nil {
		return entities.PostRecord{}, err
	}
	record.Children = children
	return record, nil
}

func (r *Repository) ListPostRecordsBySubmission(ctx context.Context, submissionID string) ([]entities.PostRecord, error) {
	var rows []postRecordModel
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("post_repo_list_records_by_submission_failed", err,
			"submission_id", strings.TrimSpace(submissionID),
		)
	}
	items := make([]entities.PostRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPostRecordsByState(ctx context.Context, state entities.PostRecordState) ([]entities.PostRecord, error) {
	var rows []postRecordModel
	if err := r.db.WithContext(ctx).
		Where("state = ?", string(state)).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("post_repo_list_records_by_state_failed", err,
			"state", string(state),
		)
	}
	items := make([]entities.PostRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdatePostRecordState(
	ctx context.Context,
	postRecordID string,
	state entities.PostRecordState,
	completedAt *time.Time,
) error {
	updates := map[string]any{"state": string(state)}
	if completedAt != nil {
		updates["completed_at"] = completedAt.UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&postRecordModel{}).
		Where("id = ?", strings.TrimSpace(postRecordID)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("post_repo_update_record_state_failed", result.Error,
			"post_record_id", strings.TrimSpace(postRecordID),
			"state", string(state),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("post_repo_update_record_state_not_found",
			"post_record_id", strings.TrimSpace(postRecordID),
		)
		return domainerrors.ErrPostRecordNotFound
	}
	return nil
}

func (r *Repository) UpsertWebsitePostRecord(ctx context.Context, record entities.WebsitePostRecord) error {
	row, err := websitePostRecordModelFromEntity(record)
	if err != nil {
		return r.logError("post_repo_upsert_website_record_marshal_failed", err,
			"post_record_id", strings.TrimSpace(record.PostRecordID),
			"account_id", strings.TrimSpace(record.AccountID),
		)
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_record_id"}, {Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"errors":        row.Errors,
			"post_data":     row.PostData,
			"post_response": row.PostResponse,
			"completed_at":  row.CompletedAt,
		}),
	}).Create(&row).Error; err != nil {
		return r.logError("post_repo_upsert_website_record_failed", err,
			"post_record_id", row.PostRecordID,
			"account_id", row.AccountID,
		)
	}
	return nil
}

func (r *Repository) ListWebsitePostRecords(ctx context.Context, postRecordID string) ([]entities.WebsitePostRecord, error) {
	var rows []websitePostRecordModel
	if err := r.db.WithContext(ctx).
		Where("post_record_id = ?", strings.TrimSpace(postRecordID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("post_repo_list_website_records_failed", err,
			"post_record_id", strings.TrimSpace(postRecordID),
		)
	}
	items := make([]entities.WebsitePostRecord, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("post_repo_decode_website_record_failed", err,
				"website_post_record_id", row.ID,
			)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) AppendEvent(ctx context.Context, event entities.PostEvent) error {
	if strings.TrimSpace(event.PostRecordID) == "" || event.EventType == "" {
		return domainerrors.ErrInvalidPostInput
	}
	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.Seq = r.seq.Next()
	row, err := postEventModelFromEntity(event)
	if err != nil {
		return r.logError("post_repo_append_event_marshal_failed", err,
			"post_record_id", strings.TrimSpace(event.PostRecordID),
			"event_type", string(event.EventType),
		)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("post_repo_append_event_failed", err,
			"post_record_id", row.PostRecordID,
			"account_id", row.AccountID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListEventsByPostRecordIDs(ctx context.Context, postRecordIDs []string) ([]entities.PostEvent, error) {
	ids := make([]string, 0, len(postRecordIDs))
	for _, id := range postRecordIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []entities.PostEvent{}, nil
	}
	var rows []postEventModel
	if err := r.db.WithContext(ctx).
		Where("post_record_id IN ?", ids).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("post_repo_list_events_failed", err,
			"post_record_ids", len(ids),
		)
	}
	items := make([]entities.PostEvent, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("post_repo_decode_event_failed", err,
				"post_event_id", row.ID,
			)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) CreateQueueRecord(ctx context.Context, record entities.PostQueueRecord) error {
	row := postQueueModel{
		ID:           strings.TrimSpace(record.ID),
		SubmissionID: strings.TrimSpace(record.SubmissionID),
		PostRecordID: optionalString(record.PostRecordID),
		ResumeMode:   string(record.ResumeMode),
		CreatedAt:    record.CreatedAt.UTC(),
		Seq:          r.seq.Next(),
	}
	if row.ID == "" || row.SubmissionID == "" {
		return domainerrors.ErrInvalidPostInput
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrQueueRecordExists
		}
		return r.logError("post_repo_create_queue_record_failed", err,
			"submission_id", row.SubmissionID,
		)
	}
	return nil
}

func (r *Repository) GetQueueRecordBySubmission(ctx context.Context, submissionID string) (entities.PostQueueRecord, error) {
	var row postQueueModel
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PostQueueRecord{}, domainerrors.ErrQueueRecordNotFound
		}
		return entities.PostQueueRecord{}, r.logError("post_repo_get_queue_record_failed", err,
			"submission_id", strings.TrimSpace(submissionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) HeadQueueRecord(ctx context.Context) (entities.PostQueueRecord, bool, error) {
	var row postQueueModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("seq ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PostQueueRecord{}, false, nil
		}
		return entities.PostQueueRecord{}, false, r.logError("post_repo_head_queue_record_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListQueueRecords(ctx context.Context) ([]entities.PostQueueRecord, error) {
	var rows []postQueueModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("post_repo_list_queue_records_failed", err)
	}
	items := make([]entities.PostQueueRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AttachPostRecord(ctx context.Context, queueRecordID string, postRecordID string) error {
	result := r.db.WithContext(ctx).
		Model(&postQueueModel{}).
		Where("id = ?", strings.TrimSpace(queueRecordID)).
		Update("post_record_id", optionalString(postRecordID))
	if result.Error != nil {
		return r.logError("post_repo_attach_post_record_failed", result.Error,
			"queue_record_id", strings.TrimSpace(queueRecordID),
			"post_record_id", strings.TrimSpace(postRecordID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrQueueRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteQueueRecord(ctx context.Context, queueRecordID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(queueRecordID)).
		Delete(&postQueueModel{})
	if result.Error != nil {
		return r.logError("post_repo_delete_queue_record_failed", result.Error,
			"queue_record_id", strings.TrimSpace(queueRecordID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrQueueRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteQueueRecordsBySubmission(ctx context.Context, submissionIDs []string) (int, error) {
	if len(submissionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Delete(&postQueueModel{})
	if result.Error != nil {
		return 0, r.logError("post_repo_delete_queue_records_failed", result.Error,
			"submissions", len(submissionIDs),
		)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error) {
	submissionID = strings.TrimSpace(submissionID)
	var row submissionModel
	// Read-only projection lookup; submissions are owned by the submission service.
	if err := r.db.WithContext(ctx).Where("id = ?", submissionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Submission{}, domainerrors.ErrSubmissionNotFound
		}
		return entities.Submission{}, r.logError("post_repo_get_submission_failed", err,
			"submission_id", submissionID,
		)
	}

	var options []websiteOptionModel
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("position ASC").
		Find(&options).Error; err != nil {
		return entities.Submission{}, r.logError("post_repo_list_submission_options_failed", err,
			"submission_id", submissionID,
		)
	}
	var files []submissionFileModel
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("position ASC").
		Find(&files).Error; err != nil {
		return entities.Submission{}, r.logError("post_repo_list_submission_files_failed", err,
			"submission_id", submissionID,
		)
	}

	submission := entities.Submission{
		ID:      row.ID,
		Type:    entities.SubmissionType(strings.ToUpper(strings.TrimSpace(row.Type))),
		Title:   row.Title,
		Options: make([]entities.WebsiteOption, 0, len(options)),
		Files:   make([]entities.SubmissionFile, 0, len(files)),
	}
	for _, option := range options {
		submission.Options = append(submission.Options, entities.WebsiteOption{
			AccountID: option.AccountID,
			Data:      map[string]any(option.Data),
		})
	}
	for _, file := range files {
		submission.Files = append(submission.Files, entities.SubmissionFile{
			ID:       file.ID,
			FileName: file.FileName,
			MimeType: file.MimeType,
			Width:    file.Width,
			Height:   file.Height,
			Size:     file.Size,
		})
	}
	return submission, nil
}

func (r *Repository) GetAccount(ctx context.Context, accountID string) (entities.Account, error) {
	var row accountModel
	if err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(accountID)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, r.logError("post_repo_get_account_failed", err,
			"account_id", strings.TrimSpace(accountID),
		)
	}
	return entities.Account{ID: row.ID, Website: row.Website, LoggedIn: row.LoggedIn}, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("post orchestration repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("post orchestration repository warning", fields...)
}

func activeStates() []string {
	return []string{string(entities.PostRecordStatePending), string(entities.PostRecordStateRunning)}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// isUniqueViolation covers raw pgx errors, gorm's translated error, and sqlite's message.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ports.PostRecordRepository = (*Repository)(nil)
var _ ports.EventLedger = (*Repository)(nil)
var _ ports.PostQueueRepository = (*Repository)(nil)
var _ ports.SubmissionReader = (*Repository)(nil)
var _ ports.AccountReader = (*Repository)(nil)
