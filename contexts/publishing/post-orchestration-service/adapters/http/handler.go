package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "crosspost/contexts/publishing/post-orchestration-service/application"
	"crosspost/contexts/publishing/post-orchestration-service/application/commands"
	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queries"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	httptransport "crosspost/contexts/publishing/post-orchestration-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

// EnqueueHandler godoc
// @Summary Enqueue submissions for posting
// @Description Admits submissions to the post queue. Submissions already queued are skipped.
// @Tags post-queue
// @Accept json
// @Produce json
// @Param request body httptransport.EnqueueRequest true "Submissions and resume mode"
// @Success 202 {object} httptransport.EnqueueResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/post-queue/enqueue [post]
func (h Handler) EnqueueHandler(
	ctx context.Context,
	req httptransport.EnqueueRequest,
) (httptransport.EnqueueResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	created, err := h.Commands.Enqueue(ctx, commands.EnqueueCommand{
		SubmissionIDs: req.SubmissionIDs,
		ResumeMode:    req.ResumeMode,
	})
	if err != nil {
		logger.Warn("post queue http enqueue failed",
			"event", "post_queue_http_enqueue_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "adapter",
			"submissions", len(req.SubmissionIDs),
			"resume_mode", strings.TrimSpace(req.ResumeMode),
			"error", err.Error(),
		)
		return httptransport.EnqueueResponse{}, err
	}
	logger.Info("post queue http enqueue completed",
		"event", "post_queue_http_enqueue_completed",
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
		"submissions", len(req.SubmissionIDs),
		"admitted", len(created),
	)
	return httptransport.EnqueueResponse{Queued: mapQueueRecords(created)}, nil
}

// DequeueHandler godoc
// @Summary Dequeue submissions
// @Description Removes queued entries. Post history is kept. Optionally cancels in-flight attempts.
// @Tags post-queue
// @Accept json
// @Produce json
// @Param request body httptransport.DequeueRequest true "Submissions to remove"
// @Success 200 {object} httptransport.DequeueResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/post-queue/dequeue [post]
func (h Handler) DequeueHandler(
	ctx context.Context,
	req httptransport.DequeueRequest,
) (httptransport.DequeueResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.Commands.Dequeue(ctx, commands.DequeueCommand{
		SubmissionIDs: req.SubmissionIDs,
		CancelRunning: req.CancelRunning,
	})
	if err != nil {
		logger.Warn("post queue http dequeue failed",
			"event", "post_queue_http_dequeue_failed",
			"module", "publishing/post-orchestration-service",
			"layer", "adapter",
			"submissions", len(req.SubmissionIDs),
			"error", err.Error(),
		)
		return httptransport.DequeueResponse{}, err
	}
	logger.Info("post queue http dequeue completed",
		"event", "post_queue_http_dequeue_completed",
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
		"removed", result.Removed,
		"cancelled", len(result.Cancelled),
	)
	return httptransport.DequeueResponse{
		Removed:   result.Removed,
		Cancelled: result.Cancelled,
	}, nil
}

// PauseHandler godoc
// @Summary Pause the post queue
// @Tags post-queue
// @Produce json
// @Success 200 {object} httptransport.QueueStateResponse
// @Router /v1/post-queue/pause [post]
func (h Handler) PauseHandler(_ context.Context) httptransport.QueueStateResponse {
	h.Commands.Pause()
	return httptransport.QueueStateResponse{Paused: true}
}

// ResumeHandler godoc
// @Summary Resume the post queue
// @Tags post-queue
// @Produce json
// @Success 200 {object} httptransport.QueueStateResponse
// @Router /v1/post-queue/resume [post]
func (h Handler) ResumeHandler(_ context.Context) httptransport.QueueStateResponse {
	h.Commands.Resume()
	return httptransport.QueueStateResponse{Paused: false}
}

// PeekHandler godoc
// @Summary Peek the queue head
// @Tags post-queue
// @Produce json
// @Success 200 {object} httptransport.PeekResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/post-queue/peek [get]
func (h Handler) PeekHandler(ctx context.Context) (httptransport.PeekResponse, error) {
	head, err := h.Queries.Peek(ctx)
	if err != nil {
		return httptransport.PeekResponse{}, err
	}
	if head == nil {
		return httptransport.PeekResponse{}, nil
	}
	item := mapQueueRecord(*head)
	return httptransport.PeekResponse{Item: &item}, nil
}

// StatusHandler godoc
// @Summary Post queue status
// @Description Returns the pause flag, queued entries in admission order and in-flight attempts.
// @Tags post-queue
// @Produce json
// @Success 200 {object} httptransport.QueueStatusResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/post-queue/status [get]
func (h Handler) StatusHandler(ctx context.Context) (httptransport.QueueStatusResponse, error) {
	status, err := h.Queries.QueueStatus(ctx)
	if err != nil {
		return httptransport.QueueStatusResponse{}, err
	}
	return httptransport.QueueStatusResponse{
		Paused:  status.Paused,
		Queued:  mapQueueRecords(status.Queued),
		Running: mapRunningPosts(status.Running),
	}, nil
}

// CancelHandler godoc
// @Summary Cancel an in-flight attempt
// @Tags submissions
// @Produce json
// @Param submission_id path string true "Submission id"
// @Success 200 {object} httptransport.CancelResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/submissions/{submission_id}/cancel [post]
func (h Handler) CancelHandler(ctx context.Context, submissionID string) (httptransport.CancelResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	cancelled, err := h.Commands.CancelPost(ctx, submissionID)
	if err != nil {
		return httptransport.CancelResponse{}, err
	}
	logger.Info("post http cancel handled",
		"event", "post_http_cancel_handled",
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
		"submission_id", strings.TrimSpace(submissionID),
		"cancelled", cancelled,
	)
	return httptransport.CancelResponse{
		SubmissionID: strings.TrimSpace(submissionID),
		Cancelled:    cancelled,
	}, nil
}

// ListPostRecordsHandler godoc
// @Summary List post attempts of a submission
// @Tags post-records
// @Produce json
// @Param submission_id path string true "Submission id"
// @Success 200 {object} httptransport.ListPostRecordsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/submissions/{submission_id}/post-records [get]
func (h Handler) ListPostRecordsHandler(
	ctx context.Context,
	submissionID string,
) (httptransport.ListPostRecordsResponse, error) {
	records, err := h.Queries.ListPostRecords(ctx, submissionID)
	if err != nil {
		return httptransport.ListPostRecordsResponse{}, err
	}
	items := make([]httptransport.PostRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, mapPostRecord(record))
	}
	return httptransport.ListPostRecordsResponse{Items: items}, nil
}

// GetPostRecordHandler godoc
// @Summary Get a post attempt with per-account results
// @Tags post-records
// @Produce json
// @Param post_record_id path string true "Post record id"
// @Success 200 {object} httptransport.PostRecordDTO
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/post-records/{post_record_id} [get]
func (h Handler) GetPostRecordHandler(ctx context.Context, postRecordID string) (httptransport.PostRecordDTO, error) {
	record, err := h.Queries.GetPostRecord(ctx, postRecordID)
	if err != nil {
		return httptransport.PostRecordDTO{}, err
	}
	return mapPostRecord(record), nil
}

// ListPostEventsHandler godoc
// @Summary List ledger events of a post attempt
// @Tags post-records
// @Produce json
// @Param post_record_id path string true "Post record id"
// @Success 200 {object} httptransport.ListPostEventsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/post-records/{post_record_id}/events [get]
func (h Handler) ListPostEventsHandler(
	ctx context.Context,
	postRecordID string,
) (httptransport.ListPostEventsResponse, error) {
	events, err := h.Queries.GetEvents(ctx, postRecordID)
	if err != nil {
		return httptransport.ListPostEventsResponse{}, err
	}
	items := make([]httptransport.PostEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, mapPostEvent(event))
	}
	return httptransport.ListPostEventsResponse{Items: items}, nil
}

func mapQueueRecords(records []entities.PostQueueRecord) []httptransport.QueueRecordDTO {
	items := make([]httptransport.QueueRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, mapQueueRecord(record))
	}
	return items
}

func mapQueueRecord(record entities.PostQueueRecord) httptransport.QueueRecordDTO {
	return httptransport.QueueRecordDTO{
		ID:           record.ID,
		SubmissionID: record.SubmissionID,
		PostRecordID: record.PostRecordID,
		ResumeMode:   string(record.ResumeMode),
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func mapRunningPosts(running []posting.RunningPost) []httptransport.RunningPostDTO {
	items := make([]httptransport.RunningPostDTO, 0, len(running))
	for i := range running {
		items = append(items, httptransport.RunningPostDTO{
			SubmissionID:   running[i].SubmissionID,
			PostRecordID:   running[i].PostRecordID,
			SubmissionType: string(running[i].SubmissionType),
			StartedAt:      running[i].StartedAt.UTC().Format(time.RFC3339Nano),
			Cancelled:      running[i].IsCancelled(),
		})
	}
	return items
}

func mapPostRecord(record entities.PostRecord) httptransport.PostRecordDTO {
	dto := httptransport.PostRecordDTO{
		ID:           record.ID,
		SubmissionID: record.SubmissionID,
		State:        string(record.State),
		ResumeMode:   string(record.ResumeMode),
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt:  formatOptionalTime(record.CompletedAt),
	}
	for _, child := range record.Children {
		dto.Children = append(dto.Children, mapWebsitePostRecord(child))
	}
	return dto
}

func mapWebsitePostRecord(record entities.WebsitePostRecord) httptransport.WebsitePostRecordDTO {
	dto := httptransport.WebsitePostRecordDTO{
		ID:          record.ID,
		AccountID:   record.AccountID,
		Website:     record.PostData.Website,
		Errors:      make([]httptransport.PostErrorDTO, 0, len(record.Errors)),
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt: formatOptionalTime(record.CompletedAt),
	}
	for _, item := range record.Errors {
		dto.Errors = append(dto.Errors, httptransport.PostErrorDTO{
			FileID:  item.FileID,
			Stage:   item.Stage,
			Message: item.Message,
		})
	}
	if record.PostResponse != nil {
		dto.PostResponse = &httptransport.PostResponseDTO{
			SourceURL:      record.PostResponse.SourceURL,
			Message:        record.PostResponse.Message,
			Errors:         record.PostResponse.Errors,
			AdditionalInfo: record.PostResponse.AdditionalInfo,
		}
	}
	return dto
}

func mapPostEvent(event entities.PostEvent) httptransport.PostEventDTO {
	dto := httptransport.PostEventDTO{
		ID:           event.ID,
		PostRecordID: event.PostRecordID,
		AccountID:    event.AccountID,
		EventType:    string(event.EventType),
		FileID:       event.FileID,
		SourceURL:    event.SourceURL,
		Metadata:     event.Metadata,
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.Error != nil {
		dto.Error = &httptransport.EventErrorDTO{
			Message: event.Error.Message,
			Stage:   event.Error.Stage,
		}
	}
	return dto
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
