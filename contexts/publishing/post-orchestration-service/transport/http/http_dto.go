package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type EnqueueRequest struct {
	SubmissionIDs []string `json:"submission_ids"`
	ResumeMode    string   `json:"resume_mode,omitempty"`
}

type EnqueueResponse struct {
	Queued []QueueRecordDTO `json:"queued"`
}

type DequeueRequest struct {
	SubmissionIDs []string `json:"submission_ids"`
	CancelRunning bool     `json:"cancel_running"`
}

type DequeueResponse struct {
	Removed   int      `json:"removed"`
	Cancelled []string `json:"cancelled"`
}

type QueueStateResponse struct {
	Paused bool `json:"paused"`
}

type PeekResponse struct {
	Item *QueueRecordDTO `json:"item"`
}

type QueueRecordDTO struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	PostRecordID string `json:"post_record_id,omitempty"`
	ResumeMode   string `json:"resume_mode"`
	CreatedAt    string `json:"created_at"`
}

type RunningPostDTO struct {
	SubmissionID   string `json:"submission_id"`
	PostRecordID   string `json:"post_record_id"`
	SubmissionType string `json:"submission_type"`
	StartedAt      string `json:"started_at"`
	Cancelled      bool   `json:"cancelled"`
}

type QueueStatusResponse struct {
	Paused  bool             `json:"paused"`
	Queued  []QueueRecordDTO `json:"queued"`
	Running []RunningPostDTO `json:"running"`
}

type CancelResponse struct {
	SubmissionID string `json:"submission_id"`
	Cancelled    bool   `json:"cancelled"`
}

type PostErrorDTO struct {
	FileID  string `json:"file_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

type PostResponseDTO struct {
	SourceURL      string         `json:"source_url,omitempty"`
	Message        string         `json:"message,omitempty"`
	Errors         []string       `json:"errors,omitempty"`
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

type WebsitePostRecordDTO struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	Website      string           `json:"website,omitempty"`
	Errors       []PostErrorDTO   `json:"errors"`
	PostResponse *PostResponseDTO `json:"post_response,omitempty"`
	CreatedAt    string           `json:"created_at"`
	CompletedAt  string           `json:"completed_at,omitempty"`
}

type PostRecordDTO struct {
	ID           string                 `json:"id"`
	SubmissionID string                 `json:"submission_id"`
	State        string                 `json:"state"`
	ResumeMode   string                 `json:"resume_mode"`
	CreatedAt    string                 `json:"created_at"`
	CompletedAt  string                 `json:"completed_at,omitempty"`
	Children     []WebsitePostRecordDTO `json:"children,omitempty"`
}

type ListPostRecordsResponse struct {
	Items []PostRecordDTO `json:"items"`
}

type EventErrorDTO struct {
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

type PostEventDTO struct {
	ID           string         `json:"id"`
	PostRecordID string         `json:"post_record_id"`
	AccountID    string         `json:"account_id,omitempty"`
	EventType    string         `json:"event_type"`
	FileID       string         `json:"file_id,omitempty"`
	SourceURL    string         `json:"source_url,omitempty"`
	Error        *EventErrorDTO `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

type ListPostEventsResponse struct {
	Items []PostEventDTO `json:"items"`
}
