package entities

import "time"

type PostEventType string

const (
	PostEventAttemptStarted   PostEventType = "POST_ATTEMPT_STARTED"
	PostEventAttemptCompleted PostEventType = "POST_ATTEMPT_COMPLETED"
	PostEventAttemptFailed    PostEventType = "POST_ATTEMPT_FAILED"
	PostEventFilePosted       PostEventType = "FILE_POSTED"
	PostEventFileFailed       PostEventType = "FILE_FAILED"
	PostEventMessagePosted    PostEventType = "MESSAGE_POSTED"
	PostEventMessageFailed    PostEventType = "MESSAGE_FAILED"
)

// PostEvent is an immutable ledger entry. Seq breaks ties between equal CreatedAt values.
type PostEvent struct {
	ID           string
	PostRecordID string
	AccountID    string
	EventType    PostEventType
	FileID       string
	SourceURL    string
	Error        *EventError
	Metadata     map[string]any
	CreatedAt    time.Time
	Seq          int64
}

type EventError struct {
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}
