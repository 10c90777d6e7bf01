package services

import (
	"sort"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
)

// IsCrashRecovery reports whether resuming currentRecordID means picking up a RUNNING attempt.
func IsCrashRecovery(history []entities.PostRecord, currentRecordID string) bool {
	for _, record := range history {
		if record.ID == currentRecordID {
			return record.State == entities.PostRecordStateRunning
		}
	}
	return false
}

// AggregateEvents folds ledger events, oldest first, into a resume context.
// keepFiles controls whether posted files are remembered for skipping.
func AggregateEvents(ctx *entities.ResumeContext, events []entities.PostEvent, keepFiles bool) {
	for _, event := range events {
		switch event.EventType {
		case entities.PostEventAttemptCompleted:
			if event.AccountID != "" {
				ctx.CompletedAccountIDs[event.AccountID] = struct{}{}
			}
		case entities.PostEventFilePosted:
			if keepFiles && event.AccountID != "" && event.FileID != "" {
				files, ok := ctx.PostedFilesByAccount[event.AccountID]
				if !ok {
					files = make(map[string]struct{})
					ctx.PostedFilesByAccount[event.AccountID] = files
				}
				files[event.FileID] = struct{}{}
			}
			appendSourceURL(ctx, event.AccountID, event.SourceURL)
		case entities.PostEventMessagePosted:
			appendSourceURL(ctx, event.AccountID, event.SourceURL)
		}
	}
}

func appendSourceURL(ctx *entities.ResumeContext, accountID, sourceURL string) {
	if accountID == "" || sourceURL == "" {
		return
	}
	for _, existing := range ctx.SourceURLsByAccount[accountID] {
		if existing == sourceURL {
			return
		}
	}
	ctx.SourceURLsByAccount[accountID] = append(ctx.SourceURLsByAccount[accountID], sourceURL)
}

func ShouldSkipAccount(ctx entities.ResumeContext, accountID string) bool {
	_, ok := ctx.CompletedAccountIDs[accountID]
	return ok
}

// ShouldSkipFile only honors posted files in CONTINUE mode or when recovering a crashed attempt.
// A crash overrides RESTART and CONTINUE_RETRY: files the crashed attempt already posted
// are skipped whatever mode was requested, so recovery never uploads them twice.
func ShouldSkipFile(ctx entities.ResumeContext, accountID, fileID string) bool {
	if !ctx.CrashRecovery {
		switch ctx.ResumeMode {
		case entities.ResumeModeRestart, entities.ResumeModeContinueRetry:
			return false
		}
	}
	files, ok := ctx.PostedFilesByAccount[accountID]
	if !ok {
		return false
	}
	_, posted := files[fileID]
	return posted
}

func SourceURLsForAccount(ctx entities.ResumeContext, accountID string) []string {
	urls := ctx.SourceURLsByAccount[accountID]
	if len(urls) == 0 {
		return []string{}
	}
	return append([]string(nil), urls...)
}

// AllSourceURLs flattens every account's URLs, ordered by account id.
func AllSourceURLs(ctx entities.ResumeContext) []string {
	accountIDs := make([]string, 0, len(ctx.SourceURLsByAccount))
	for accountID := range ctx.SourceURLsByAccount {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)
	urls := make([]string, 0)
	for _, accountID := range accountIDs {
		urls = append(urls, ctx.SourceURLsByAccount[accountID]...)
	}
	return urls
}
