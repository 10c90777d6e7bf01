package errors

import "errors"

var (
	ErrPostRecordNotFound        = errors.New("post record not found")
	ErrActivePostRecordExists    = errors.New("submission already has an active post record")
	ErrPostAlreadyRunning        = errors.New("submission is already posting")
	ErrPostCancelled             = errors.New("post cancelled")
	ErrQueueRecordNotFound       = errors.New("post queue record not found")
	ErrQueueRecordExists         = errors.New("submission is already queued")
	ErrInvalidResumeMode         = errors.New("invalid resume mode")
	ErrInvalidPostInput          = errors.New("invalid post input")
	ErrSubmissionNotFound        = errors.New("submission not found")
	ErrAccountNotFound           = errors.New("account not found")
	ErrAccountNotLoggedIn        = errors.New("account is not logged in")
	ErrWebsiteNotFound           = errors.New("website not registered")
	ErrUnsupportedSubmissionType = errors.New("website does not support submission type")
	ErrLedgerWriteFailed         = errors.New("post event ledger write failed")
	ErrRegistryStopped           = errors.New("post manager registry stopped")
	ErrPostAttemptStalled        = errors.New("post attempt stalled until restart")
	ErrFileTooLarge              = errors.New("file exceeds destination size limit")
)
