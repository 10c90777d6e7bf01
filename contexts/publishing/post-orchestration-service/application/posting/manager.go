package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/domain/services"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
	"crosspost/internal/shared/events"
)

const (
	TopicPostAttemptFinished     = "post.attempt.finished"
	EventTypePostAttemptFinished = "post.attempt.finished"

	stageAccount = "account"
	stageResize  = "resize"
	stageUpload  = "upload"
	stageMessage = "message"
)

// AttemptFinishedPayload is published once an attempt reaches a terminal state.
type AttemptFinishedPayload struct {
	PostRecordID   string   `json:"post_record_id"`
	SubmissionID   string   `json:"submission_id"`
	State          string   `json:"state"`
	Cancelled      bool     `json:"cancelled"`
	FailedAccounts []string `json:"failed_accounts,omitempty"`
	SourceURLs     []string `json:"source_urls,omitempty"`
}

// Manager executes one attempt for one submission against its destination accounts.
// Accounts and files are processed sequentially so ledger order matches attachment order.
type Manager struct {
	Records     ports.PostRecordRepository
	Ledger      ports.EventLedger
	Submissions ports.SubmissionReader
	Accounts    ports.AccountReader
	Websites    ports.WebsiteRegistry
	Resizer     ports.FileResizer
	Resume      resume.Builder
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// StartPost runs the attempt on the calling goroutine. A cancelled attempt ends FAILED
// and returns ErrPostCancelled. Ledger or store failures are returned as-is and leave the
// record in its last durable state.
func (m Manager) StartPost(ctx context.Context, record entities.PostRecord) (entities.PostRecord, error) {
	submission, err := m.Submissions.GetSubmission(ctx, record.SubmissionID)
	if err != nil {
		return record, err
	}
	outcome, err := m.run(NewCancellationToken(ctx), record, submission)
	if outcome.Record.State.IsTerminal() {
		m.publishFinished(context.WithoutCancel(ctx), outcome)
	}
	return outcome.Record, err
}

// attemptOutcome is what a finished run reports to its caller.
type attemptOutcome struct {
	Record         entities.PostRecord
	Cancelled      bool
	FailedAccounts []string
	SourceURLs     []string
}

func (m Manager) run(
	token *CancellationToken,
	record entities.PostRecord,
	submission entities.Submission,
) (attemptOutcome, error) {
	logger := application.ResolveLogger(m.Logger)
	if record.State.IsTerminal() {
		logger.Warn("post attempt already terminal",
			"event", "post_attempt_already_terminal",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"submission_id", record.SubmissionID,
			"post_record_id", record.ID,
			"state", string(record.State),
		)
		return attemptOutcome{Record: record}, domainerrors.ErrInvalidPostInput
	}

	a := &attempt{
		m:          m,
		logger:     logger,
		token:      token,
		persistCtx: context.WithoutCancel(token.Context()),
		record:     record,
		submission: submission,
	}

	// The context is built before the RUNNING transition so a fresh record is never
	// mistaken for a crashed one.
	resumeCtx, err := m.Resume.BuildResumeContext(a.persistCtx, record.SubmissionID, record.ID, record.ResumeMode)
	if err != nil {
		return attemptOutcome{Record: record}, err
	}
	a.resumeCtx = resumeCtx
	a.sourceURLs = services.AllSourceURLs(resumeCtx)

	if record.State == entities.PostRecordStatePending {
		if err := m.Records.UpdatePostRecordState(a.persistCtx, record.ID, entities.PostRecordStateRunning, nil); err != nil {
			logger.Error("post attempt running transition failed",
				"event", "post_attempt_running_transition_failed",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"submission_id", record.SubmissionID,
				"post_record_id", record.ID,
				"error", err.Error(),
			)
			return attemptOutcome{Record: record}, err
		}
		a.record.State = entities.PostRecordStateRunning
	}
	logger.Info("post attempt started",
		"event", "post_attempt_started",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", record.SubmissionID,
		"post_record_id", record.ID,
		"submission_type", string(submission.Type),
		"resume_mode", string(record.ResumeMode),
		"crash_recovery", resumeCtx.CrashRecovery,
		"accounts", len(submission.Options),
	)

	for _, option := range submission.Options {
		if token.IsCancelled() {
			a.cancelled = true
			break
		}
		if services.ShouldSkipAccount(resumeCtx, option.AccountID) {
			logger.Debug("post attempt skipped completed account",
				"event", "post_attempt_account_skipped",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"post_record_id", record.ID,
				"account_id", option.AccountID,
			)
			continue
		}
		if err := a.postToAccount(option); err != nil {
			return a.outcome(), err
		}
		if a.cancelled {
			break
		}
	}
	return a.finish()
}

type attempt struct {
	m          Manager
	logger     *slog.Logger
	token      *CancellationToken
	persistCtx context.Context

	record     entities.PostRecord
	submission entities.Submission
	resumeCtx  entities.ResumeContext

	sourceURLs     []string
	failedAccounts []string
	cancelled      bool
}

// postToAccount returns an error only for failures that abort the whole attempt.
func (a *attempt) postToAccount(option entities.WebsiteOption) error {
	accountID := strings.TrimSpace(option.AccountID)
	child := entities.WebsitePostRecord{
		PostRecordID: a.record.ID,
		AccountID:    accountID,
		CreatedAt:    a.m.now(),
	}

	account, website, accountErr := a.resolveAccount(accountID)
	data := entities.PostData{
		SubmissionID: a.submission.ID,
		AccountID:    accountID,
		Website:      account.Website,
		Title:        a.submission.Title,
		Options:      option.Data,
	}
	if err := a.appendEvent(entities.PostEventAttemptStarted, accountID, "", "", nil, map[string]any{
		"website":        account.Website,
		"resume_mode":    string(a.resumeCtx.ResumeMode),
		"crash_recovery": a.resumeCtx.CrashRecovery,
	}); err != nil {
		return err
	}
	if accountErr != nil {
		return a.finishAccount(&child, data, nil, accountErr)
	}

	var (
		response *entities.PostResponse
		err      error
	)
	switch a.submission.Type {
	case entities.SubmissionTypeFile:
		site, ok := website.(ports.FileCapable)
		if !ok {
			return a.finishAccount(&child, data, nil, domainerrors.ErrUnsupportedSubmissionType)
		}
		response, err = a.postFiles(site, data, &child)
	case entities.SubmissionTypeMessage:
		site, ok := website.(ports.MessageCapable)
		if !ok {
			return a.finishAccount(&child, data, nil, domainerrors.ErrUnsupportedSubmissionType)
		}
		response, err = a.postMessage(site, data, &child)
	default:
		return a.finishAccount(&child, data, nil, domainerrors.ErrUnsupportedSubmissionType)
	}
	if err != nil {
		return err
	}
	return a.finishAccount(&child, data, response, nil)
}

func (a *attempt) resolveAccount(accountID string) (entities.Account, ports.Website, error) {
	if accountID == "" {
		return entities.Account{}, nil, domainerrors.ErrAccountNotFound
	}
	account, err := a.m.Accounts.GetAccount(a.persistCtx, accountID)
	if err != nil {
		return entities.Account{ID: accountID}, nil, err
	}
	if !account.LoggedIn {
		return account, nil, domainerrors.ErrAccountNotLoggedIn
	}
	website, ok := a.m.Websites.Lookup(account.Website)
	if !ok {
		return account, nil, domainerrors.ErrWebsiteNotFound
	}
	return account, website, nil
}

func (a *attempt) postFiles(
	site ports.FileCapable,
	data entities.PostData,
	child *entities.WebsitePostRecord,
) (*entities.PostResponse, error) {
	pending := make([]entities.SubmissionFile, 0, len(a.submission.Files))
	skipped := 0
	for _, file := range a.submission.Files {
		if services.ShouldSkipFile(a.resumeCtx, data.AccountID, file.ID) {
			skipped++
			continue
		}
		pending = append(pending, file)
	}
	if skipped > 0 {
		a.logger.Info("post attempt reused posted files",
			"event", "post_attempt_files_reused",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", a.record.ID,
			"account_id", data.AccountID,
			"skipped_files", skipped,
		)
	}

	batchSize := 1
	if batcher, ok := site.(ports.FileBatcher); ok && batcher.FileBatchSize() > 0 {
		batchSize = batcher.FileBatchSize()
	}

	var last *entities.PostResponse
	for start, batchIndex := 0, 0; start < len(pending); start, batchIndex = start+batchSize, batchIndex+1 {
		batch := pending[start:min(start+batchSize, len(pending))]
		if a.token.IsCancelled() {
			a.cancelled = true
			return last, nil
		}

		prepared, ok, err := a.prepareFiles(site, data.AccountID, batch, child)
		if err != nil {
			return last, err
		}
		if !ok {
			return last, nil
		}

		call := a.token.Child()
		response, callErr := site.PostFiles(call.Context(), a.withSourceURLs(data), prepared)
		call.Cancel()
		callErr = responseError(response, callErr)
		if callErr != nil {
			if a.token.IsCancelled() {
				a.cancelled = true
				return last, nil
			}
			for _, file := range batch {
				if err := a.appendEvent(entities.PostEventFileFailed, data.AccountID, file.ID, "",
					&entities.EventError{Message: callErr.Error(), Stage: stageUpload},
					map[string]any{"batch_index": batchIndex, "file_name": file.FileName},
				); err != nil {
					return last, err
				}
				child.Errors = append(child.Errors, entities.PostError{
					FileID:  file.ID,
					Stage:   stageUpload,
					Message: callErr.Error(),
				})
			}
			a.logger.Warn("post attempt file batch failed",
				"event", "post_attempt_file_batch_failed",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"post_record_id", a.record.ID,
				"account_id", data.AccountID,
				"batch_index", batchIndex,
				"files", len(batch),
				"error", callErr.Error(),
			)
			return &response, nil
		}

		for _, file := range batch {
			if err := a.appendEvent(entities.PostEventFilePosted, data.AccountID, file.ID, response.SourceURL, nil,
				map[string]any{"batch_index": batchIndex, "file_name": file.FileName},
			); err != nil {
				return last, err
			}
		}
		a.rememberSourceURL(response.SourceURL)
		last = &response
	}

	if last == nil && skipped > 0 {
		reused := entities.PostResponse{Message: "files already posted"}
		if urls := services.SourceURLsForAccount(a.resumeCtx, data.AccountID); len(urls) > 0 {
			reused.SourceURL = urls[len(urls)-1]
		}
		last = &reused
	}
	return last, nil
}

// prepareFiles applies destination resize requests. ok is false when a file could not be
// prepared; the failure is already recorded on the ledger and the child record.
func (a *attempt) prepareFiles(
	site ports.FileCapable,
	accountID string,
	batch []entities.SubmissionFile,
	child *entities.WebsitePostRecord,
) ([]entities.SubmissionFile, bool, error) {
	resizable, canResize := site.(ports.ResizeCapable)
	prepared := make([]entities.SubmissionFile, 0, len(batch))
	for _, file := range batch {
		if !canResize {
			prepared = append(prepared, file)
			continue
		}
		req := resizable.CalculateResize(file)
		if req == nil {
			prepared = append(prepared, file)
			continue
		}
		resized, err := a.resize(file, *req)
		if err != nil {
			if appendErr := a.appendEvent(entities.PostEventFileFailed, accountID, file.ID, "",
				&entities.EventError{Message: err.Error(), Stage: stageResize},
				map[string]any{"file_name": file.FileName},
			); appendErr != nil {
				return nil, false, appendErr
			}
			child.Errors = append(child.Errors, entities.PostError{
				FileID:  file.ID,
				Stage:   stageResize,
				Message: err.Error(),
			})
			a.logger.Warn("post attempt file resize failed",
				"event", "post_attempt_file_resize_failed",
				"module", "publishing/post-orchestration-service",
				"layer", "application",
				"post_record_id", a.record.ID,
				"account_id", accountID,
				"file_id", file.ID,
				"error", err.Error(),
			)
			return nil, false, nil
		}
		prepared = append(prepared, resized)
	}
	return prepared, true, nil
}

func (a *attempt) resize(file entities.SubmissionFile, req entities.ResizeRequest) (entities.SubmissionFile, error) {
	if a.m.Resizer == nil {
		return entities.SubmissionFile{}, errors.New("resize requested but no file resizer is configured")
	}
	call := a.token.Child()
	defer call.Cancel()
	return a.m.Resizer.Resize(call.Context(), file, req)
}

func (a *attempt) postMessage(
	site ports.MessageCapable,
	data entities.PostData,
	child *entities.WebsitePostRecord,
) (*entities.PostResponse, error) {
	if a.token.IsCancelled() {
		a.cancelled = true
		return nil, nil
	}
	call := a.token.Child()
	response, callErr := site.PostMessage(call.Context(), a.withSourceURLs(data))
	call.Cancel()
	callErr = responseError(response, callErr)
	if callErr != nil {
		if a.token.IsCancelled() {
			a.cancelled = true
			return nil, nil
		}
		if err := a.appendEvent(entities.PostEventMessageFailed, data.AccountID, "", "",
			&entities.EventError{Message: callErr.Error(), Stage: stageMessage}, nil,
		); err != nil {
			return nil, err
		}
		child.Errors = append(child.Errors, entities.PostError{Stage: stageMessage, Message: callErr.Error()})
		return &response, nil
	}
	if err := a.appendEvent(entities.PostEventMessagePosted, data.AccountID, "", response.SourceURL, nil, nil); err != nil {
		return nil, err
	}
	a.rememberSourceURL(response.SourceURL)
	return &response, nil
}

func (a *attempt) finishAccount(
	child *entities.WebsitePostRecord,
	data entities.PostData,
	response *entities.PostResponse,
	accountErr error,
) error {
	if accountErr == nil && a.cancelled {
		accountErr = domainerrors.ErrPostCancelled
	}
	if accountErr != nil {
		child.Errors = append(child.Errors, entities.PostError{Stage: stageAccount, Message: accountErr.Error()})
	}
	completedAt := a.m.now()
	child.PostData = a.withSourceURLs(data)
	child.PostResponse = response
	child.CompletedAt = &completedAt
	if err := a.m.Records.UpsertWebsitePostRecord(a.persistCtx, *child); err != nil {
		a.logger.Error("post attempt website record write failed",
			"event", "post_attempt_website_record_write_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", a.record.ID,
			"account_id", child.AccountID,
			"error", err.Error(),
		)
		return err
	}

	if len(child.Errors) == 0 {
		if err := a.appendEvent(entities.PostEventAttemptCompleted, child.AccountID, "", "", nil, nil); err != nil {
			return err
		}
		a.logger.Info("post attempt account completed",
			"event", "post_attempt_account_completed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", a.record.ID,
			"account_id", child.AccountID,
		)
		return nil
	}

	a.failedAccounts = append(a.failedAccounts, child.AccountID)
	message := summarizeErrors(child.Errors)
	if err := a.appendEvent(entities.PostEventAttemptFailed, child.AccountID, "", "",
		&entities.EventError{Message: message, Stage: child.Errors[len(child.Errors)-1].Stage}, nil,
	); err != nil {
		return err
	}
	a.logger.Warn("post attempt account failed",
		"event", "post_attempt_account_failed",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"post_record_id", a.record.ID,
		"account_id", child.AccountID,
		"error", message,
	)
	return nil
}

func (a *attempt) finish() (attemptOutcome, error) {
	state := entities.PostRecordStateDone
	if a.cancelled || len(a.failedAccounts) > 0 {
		state = entities.PostRecordStateFailed
	}
	completedAt := a.m.now()
	if err := a.m.Records.UpdatePostRecordState(a.persistCtx, a.record.ID, state, &completedAt); err != nil {
		a.logger.Error("post attempt terminal transition failed",
			"event", "post_attempt_terminal_transition_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", a.record.ID,
			"state", string(state),
			"error", err.Error(),
		)
		return a.outcome(), err
	}
	a.record.State = state
	a.record.CompletedAt = &completedAt

	a.logger.Info("post attempt finished",
		"event", "post_attempt_finished",
		"module", "publishing/post-orchestration-service",
		"layer", "application",
		"submission_id", a.record.SubmissionID,
		"post_record_id", a.record.ID,
		"state", string(state),
		"cancelled", a.cancelled,
		"failed_accounts", len(a.failedAccounts),
	)
	if a.cancelled {
		return a.outcome(), domainerrors.ErrPostCancelled
	}
	return a.outcome(), nil
}

func (a *attempt) outcome() attemptOutcome {
	return attemptOutcome{
		Record:         a.record,
		Cancelled:      a.cancelled,
		FailedAccounts: append([]string(nil), a.failedAccounts...),
		SourceURLs:     append([]string(nil), a.sourceURLs...),
	}
}

// publishFinished is best effort: a missing or failing publisher never affects the attempt.
func (m Manager) publishFinished(ctx context.Context, outcome attemptOutcome) {
	if m.Publisher == nil {
		return
	}
	logger := application.ResolveLogger(m.Logger)
	record := outcome.Record
	eventID, err := m.IDGen.NewID(ctx)
	if err != nil {
		eventID = record.ID + ":finished"
	}
	envelope := events.Envelope{
		EventID:        eventID,
		EventType:      EventTypePostAttemptFinished,
		SourceService:  "post-orchestration-service",
		OccurredAtUTC:  m.now(),
		CorrelationID:  record.SubmissionID,
		EntityType:     "post_record",
		EntityID:       record.ID,
		PayloadVersion: 1,
		Payload: AttemptFinishedPayload{
			PostRecordID:   record.ID,
			SubmissionID:   record.SubmissionID,
			State:          string(record.State),
			Cancelled:      outcome.Cancelled,
			FailedAccounts: outcome.FailedAccounts,
			SourceURLs:     outcome.SourceURLs,
		},
	}
	if err := m.Publisher.Publish(ctx, TopicPostAttemptFinished, envelope); err != nil {
		logger.Warn("post attempt finished notification failed",
			"event", "post_attempt_finished_publish_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", record.ID,
			"error", err.Error(),
		)
	}
}

func (a *attempt) appendEvent(
	eventType entities.PostEventType,
	accountID string,
	fileID string,
	sourceURL string,
	eventErr *entities.EventError,
	metadata map[string]any,
) error {
	eventID, err := a.m.IDGen.NewID(a.persistCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrLedgerWriteFailed, err)
	}
	event := entities.PostEvent{
		ID:           eventID,
		PostRecordID: a.record.ID,
		AccountID:    accountID,
		EventType:    eventType,
		FileID:       fileID,
		SourceURL:    sourceURL,
		Error:        eventErr,
		Metadata:     metadata,
		CreatedAt:    a.m.now(),
	}
	if err := a.m.Ledger.AppendEvent(a.persistCtx, event); err != nil {
		a.logger.Error("post event append failed",
			"event", "post_event_append_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "application",
			"post_record_id", a.record.ID,
			"account_id", accountID,
			"event_type", string(eventType),
			"error", err.Error(),
		)
		return fmt.Errorf("%w: %w", domainerrors.ErrLedgerWriteFailed, err)
	}
	return nil
}

func (a *attempt) rememberSourceURL(sourceURL string) {
	if sourceURL == "" {
		return
	}
	for _, existing := range a.sourceURLs {
		if existing == sourceURL {
			return
		}
	}
	a.sourceURLs = append(a.sourceURLs, sourceURL)
}

func (a *attempt) withSourceURLs(data entities.PostData) entities.PostData {
	data.SourceURLs = append([]string(nil), a.sourceURLs...)
	return data
}

func responseError(response entities.PostResponse, err error) error {
	if err != nil {
		return err
	}
	if len(response.Errors) > 0 {
		return errors.New(strings.Join(response.Errors, "; "))
	}
	return nil
}

func summarizeErrors(items []entities.PostError) string {
	messages := make([]string, 0, len(items))
	for _, item := range items {
		if item.FileID != "" {
			messages = append(messages, item.FileID+": "+item.Message)
			continue
		}
		messages = append(messages, item.Message)
	}
	return strings.Join(messages, "; ")
}

func (m Manager) now() time.Time {
	if m.Clock == nil {
		return time.Now().UTC()
	}
	return m.Clock.Now().UTC()
}
