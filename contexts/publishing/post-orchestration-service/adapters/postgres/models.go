package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"

	"gorm.io/datatypes"
)

type postRecordModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	SubmissionID string     `gorm:"column:submission_id;index:idx_post_records_submission"`
	State        string     `gorm:"column:state;index:idx_post_records_state"`
	ResumeMode   string     `gorm:"column:resume_mode"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	// Seq breaks created_at ties in insertion order.
	Seq int64 `gorm:"column:seq"`
}

func (postRecordModel) TableName() string {
	return "post_records"
}

func postRecordModelFromEntity(record entities.PostRecord) postRecordModel {
	return postRecordModel{
		ID:           strings.TrimSpace(record.ID),
		SubmissionID: strings.TrimSpace(record.SubmissionID),
		State:        string(record.State),
		ResumeMode:   string(record.ResumeMode),
		CreatedAt:    record.CreatedAt.UTC(),
		CompletedAt:  normalizeOptionalTime(record.CompletedAt),
	}
}

func (m postRecordModel) toEntity() entities.PostRecord {
	return entities.PostRecord{
		ID:           m.ID,
		SubmissionID: m.SubmissionID,
		State:        entities.PostRecordState(m.State),
		ResumeMode:   entities.ResumeMode(m.ResumeMode),
		CreatedAt:    m.CreatedAt.UTC(),
		CompletedAt:  normalizeOptionalTime(m.CompletedAt),
	}
}

type websitePostRecordModel struct {
	ID           string         `gorm:"column:id;primaryKey"`
	PostRecordID string         `gorm:"column:post_record_id;uniqueIndex:ux_website_post_records_account,priority:1"`
	AccountID    string         `gorm:"column:account_id;uniqueIndex:ux_website_post_records_account,priority:2"`
	Errors       datatypes.JSON `gorm:"column:errors"`
	PostData     datatypes.JSON `gorm:"column:post_data"`
	PostResponse datatypes.JSON `gorm:"column:post_response"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	CompletedAt  *time.Time     `gorm:"column:completed_at"`
}

func (websitePostRecordModel) TableName() string {
	return "website_post_records"
}

func websitePostRecordModelFromEntity(record entities.WebsitePostRecord) (websitePostRecordModel, error) {
	errs := record.Errors
	if errs == nil {
		errs = []entities.PostError{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return websitePostRecordModel{}, err
	}
	postData, err := json.Marshal(record.PostData)
	if err != nil {
		return websitePostRecordModel{}, err
	}
	var response datatypes.JSON
	if record.PostResponse != nil {
		if response, err = json.Marshal(record.PostResponse); err != nil {
			return websitePostRecordModel{}, err
		}
	}
	return websitePostRecordModel{
		ID:           strings.TrimSpace(record.ID),
		PostRecordID: strings.TrimSpace(record.PostRecordID),
		AccountID:    strings.TrimSpace(record.AccountID),
		Errors:       errorsJSON,
		PostData:     postData,
		PostResponse: response,
		CreatedAt:    record.CreatedAt.UTC(),
		CompletedAt:  normalizeOptionalTime(record.CompletedAt),
	}, nil
}

func (m websitePostRecordModel) toEntity() (entities.WebsitePostRecord, error) {
	record := entities.WebsitePostRecord{
		ID:           m.ID,
		PostRecordID: m.PostRecordID,
		AccountID:    m.AccountID,
		Errors:       []entities.PostError{},
		CreatedAt:    m.CreatedAt.UTC(),
		CompletedAt:  normalizeOptionalTime(m.CompletedAt),
	}
	if len(m.Errors) > 0 {
		if err := json.Unmarshal(m.Errors, &record.Errors); err != nil {
			return entities.WebsitePostRecord{}, err
		}
	}
	if len(m.PostData) > 0 {
		if err := json.Unmarshal(m.PostData, &record.PostData); err != nil {
			return entities.WebsitePostRecord{}, err
		}
	}
	if len(m.PostResponse) > 0 && string(m.PostResponse) != "null" {
		var response entities.PostResponse
		if err := json.Unmarshal(m.PostResponse, &response); err != nil {
			return entities.WebsitePostRecord{}, err
		}
		record.PostResponse = &response
	}
	return record, nil
}

type postEventModel struct {
	ID           string            `gorm:"column:id;primaryKey"`
	PostRecordID string            `gorm:"column:post_record_id;index:idx_post_events_record_type,priority:1;index:idx_post_events_record_account_type,priority:1"`
	AccountID    string            `gorm:"column:account_id;index:idx_post_events_record_account_type,priority:2"`
	EventType    string            `gorm:"column:event_type;index:idx_post_events_record_type,priority:2;index:idx_post_events_record_account_type,priority:3"`
	FileID       string            `gorm:"column:file_id"`
	SourceURL    string            `gorm:"column:source_url"`
	Error        datatypes.JSON    `gorm:"column:error"`
	Metadata     datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	Seq          int64             `gorm:"column:seq"`
}

func (postEventModel) TableName() string {
	return "post_events"
}

func postEventModelFromEntity(event entities.PostEvent) (postEventModel, error) {
	row := postEventModel{
		ID:           strings.TrimSpace(event.ID),
		PostRecordID: strings.TrimSpace(event.PostRecordID),
		AccountID:    strings.TrimSpace(event.AccountID),
		EventType:    string(event.EventType),
		FileID:       strings.TrimSpace(event.FileID),
		SourceURL:    strings.TrimSpace(event.SourceURL),
		CreatedAt:    event.CreatedAt.UTC(),
		Seq:          event.Seq,
	}
	if event.Error != nil {
		payload, err := json.Marshal(event.Error)
		if err != nil {
			return postEventModel{}, err
		}
		row.Error = payload
	}
	if len(event.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(event.Metadata)
	}
	return row, nil
}

func (m postEventModel) toEntity() (entities.PostEvent, error) {
	event := entities.PostEvent{
		ID:           m.ID,
		PostRecordID: m.PostRecordID,
		AccountID:    m.AccountID,
		EventType:    entities.PostEventType(m.EventType),
		FileID:       m.FileID,
		SourceURL:    m.SourceURL,
		CreatedAt:    m.CreatedAt.UTC(),
		Seq:          m.Seq,
	}
	if len(m.Error) > 0 && string(m.Error) != "null" {
		var eventErr entities.EventError
		if err := json.Unmarshal(m.Error, &eventErr); err != nil {
			return entities.PostEvent{}, err
		}
		event.Error = &eventErr
	}
	if len(m.Metadata) > 0 {
		event.Metadata = map[string]any(m.Metadata)
	}
	return event, nil
}

type postQueueModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	SubmissionID string    `gorm:"column:submission_id;uniqueIndex:ux_post_queue_submission"`
	PostRecordID *string   `gorm:"column:post_record_id"`
	ResumeMode   string    `gorm:"column:resume_mode"`
	CreatedAt    time.Time `gorm:"column:created_at;index:idx_post_queue_order,priority:1"`
	Seq          int64     `gorm:"column:seq;index:idx_post_queue_order,priority:2"`
}

func (postQueueModel) TableName() string {
	return "post_queue"
}

func (m postQueueModel) toEntity() entities.PostQueueRecord {
	record := entities.PostQueueRecord{
		ID:           m.ID,
		SubmissionID: m.SubmissionID,
		ResumeMode:   entities.ResumeMode(m.ResumeMode),
		CreatedAt:    m.CreatedAt.UTC(),
		Seq:          m.Seq,
	}
	if m.PostRecordID != nil {
		record.PostRecordID = *m.PostRecordID
	}
	return record
}

// Read-only projections of tables owned by the submission and account services.

type submissionModel struct {
	ID    string `gorm:"column:id;primaryKey"`
	Type  string `gorm:"column:type"`
	Title string `gorm:"column:title"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

type websiteOptionModel struct {
	ID           string            `gorm:"column:id;primaryKey"`
	SubmissionID string            `gorm:"column:submission_id;index:idx_submission_website_options_submission"`
	AccountID    string            `gorm:"column:account_id"`
	Position     int               `gorm:"column:position"`
	Data         datatypes.JSONMap `gorm:"column:data"`
}

func (websiteOptionModel) TableName() string {
	return "submission_website_options"
}

type submissionFileModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	SubmissionID string `gorm:"column:submission_id;index:idx_submission_files_submission"`
	FileName     string `gorm:"column:file_name"`
	MimeType     string `gorm:"column:mime_type"`
	Width        int    `gorm:"column:width"`
	Height       int    `gorm:"column:height"`
	Size         int64  `gorm:"column:size"`
	Position     int    `gorm:"column:position"`
}

func (submissionFileModel) TableName() string {
	return "submission_files"
}

type accountModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	Website  string `gorm:"column:website"`
	LoggedIn bool   `gorm:"column:logged_in"`
}

func (accountModel) TableName() string {
	return "accounts"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	t := value.UTC()
	return &t
}
