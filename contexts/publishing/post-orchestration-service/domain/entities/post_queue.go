package entities

import "time"

// PostQueueRecord is an admission entry. SubmissionID is unique while queued.
type PostQueueRecord struct {
	ID           string
	SubmissionID string
	PostRecordID string
	ResumeMode   ResumeMode
	CreatedAt    time.Time
	Seq          int64

	// PostRecord is populated by Peek when an attempt is linked.
	PostRecord *PostRecord
}
