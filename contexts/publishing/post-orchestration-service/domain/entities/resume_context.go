package entities

// ResumeContext is derived from the ledger when an attempt starts and is never persisted.
type ResumeContext struct {
	ResumeMode ResumeMode
	// CrashRecovery is set when the attempt resumes a record left RUNNING.
	CrashRecovery        bool
	CompletedAccountIDs  map[string]struct{}
	PostedFilesByAccount map[string]map[string]struct{}
	SourceURLsByAccount  map[string][]string
}

func NewResumeContext(mode ResumeMode) ResumeContext {
	return ResumeContext{
		ResumeMode:           mode,
		CompletedAccountIDs:  make(map[string]struct{}),
		PostedFilesByAccount: make(map[string]map[string]struct{}),
		SourceURLsByAccount:  make(map[string][]string),
	}
}
