package entities

import (
	"strings"
	"time"
)

type PostRecordState string

const (
	PostRecordStatePending PostRecordState = "PENDING"
	PostRecordStateRunning PostRecordState = "RUNNING"
	PostRecordStateDone    PostRecordState = "DONE"
	PostRecordStateFailed  PostRecordState = "FAILED"
)

// IsTerminal reports whether the attempt can no longer change state.
func (s PostRecordState) IsTerminal() bool {
	return s == PostRecordStateDone || s == PostRecordStateFailed
}

// IsActive reports whether the state counts toward the single active attempt per submission.
func (s PostRecordState) IsActive() bool {
	return s == PostRecordStatePending || s == PostRecordStateRunning
}

type ResumeMode string

const (
	ResumeModeRestart       ResumeMode = "RESTART"
	ResumeModeContinue      ResumeMode = "CONTINUE"
	ResumeModeContinueRetry ResumeMode = "CONTINUE_RETRY"
)

// ParseResumeMode accepts the canonical names case-insensitively.
// An empty value resolves to RESTART.
func ParseResumeMode(raw string) (ResumeMode, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch ResumeMode(value) {
	case "":
		return ResumeModeRestart, true
	case ResumeModeRestart, ResumeModeContinue, ResumeModeContinueRetry:
		return ResumeMode(value), true
	default:
		return "", false
	}
}

// PostRecord is one posting attempt for a submission. Records are permanent history.
type PostRecord struct {
	ID           string
	SubmissionID string
	State        PostRecordState
	ResumeMode   ResumeMode
	CreatedAt    time.Time
	CompletedAt  *time.Time

	Children []WebsitePostRecord
}

// WebsitePostRecord captures what happened for one destination account within an attempt.
type WebsitePostRecord struct {
	ID           string
	PostRecordID string
	AccountID    string
	Errors       []PostError
	PostData     PostData
	PostResponse *PostResponse
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type PostError struct {
	FileID  string `json:"file_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}
