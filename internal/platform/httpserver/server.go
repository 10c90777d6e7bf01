package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	postorchestration "crosspost/contexts/publishing/post-orchestration-service"
	postdomainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	posthttp "crosspost/contexts/publishing/post-orchestration-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "crosspost/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	http   *http.Server
	logger *slog.Logger
	addr   string
	posts  postorchestration.Module
}

func New(
	posts postorchestration.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		posts:  posts,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/post-queue/enqueue", s.handleEnqueue)
	s.mux.HandleFunc("POST /v1/post-queue/dequeue", s.handleDequeue)
	s.mux.HandleFunc("POST /v1/post-queue/pause", s.handlePause)
	s.mux.HandleFunc("POST /v1/post-queue/resume", s.handleResume)
	s.mux.HandleFunc("GET /v1/post-queue/peek", s.handlePeek)
	s.mux.HandleFunc("GET /v1/post-queue/status", s.handleQueueStatus)

	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/cancel", s.handleCancelPost)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}/post-records", s.handleListPostRecords)
	s.mux.HandleFunc("GET /v1/post-records/{post_record_id}", s.handleGetPostRecord)
	s.mux.HandleFunc("GET /v1/post-records/{post_record_id}/events", s.handleListPostEvents)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req posthttp.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePostError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.posts.Handler.EnqueueHandler(r.Context(), req)
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleDequeue(w http.ResponseWriter, r *http.Request) {
	var req posthttp.DequeueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePostError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.posts.Handler.DequeueHandler(r.Context(), req)
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.posts.Handler.PauseHandler(r.Context()))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.posts.Handler.ResumeHandler(r.Context()))
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.PeekHandler(r.Context())
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.StatusHandler(r.Context())
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelPost(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.CancelHandler(r.Context(), r.PathValue("submission_id"))
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPostRecords(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.ListPostRecordsHandler(r.Context(), r.PathValue("submission_id"))
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPostRecord(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.GetPostRecordHandler(r.Context(), r.PathValue("post_record_id"))
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPostEvents(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.ListPostEventsHandler(r.Context(), r.PathValue("post_record_id"))
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePostDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postdomainerrors.ErrInvalidPostInput):
		writePostError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, postdomainerrors.ErrInvalidResumeMode):
		writePostError(w, http.StatusBadRequest, "invalid_resume_mode", err.Error())
	case errors.Is(err, postdomainerrors.ErrPostRecordNotFound):
		writePostError(w, http.StatusNotFound, "post_record_not_found", err.Error())
	case errors.Is(err, postdomainerrors.ErrSubmissionNotFound):
		writePostError(w, http.StatusNotFound, "submission_not_found", err.Error())
	case errors.Is(err, postdomainerrors.ErrQueueRecordNotFound):
		writePostError(w, http.StatusNotFound, "queue_record_not_found", err.Error())
	case errors.Is(err, postdomainerrors.ErrActivePostRecordExists),
		errors.Is(err, postdomainerrors.ErrPostAlreadyRunning),
		errors.Is(err, postdomainerrors.ErrQueueRecordExists):
		writePostError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, postdomainerrors.ErrRegistryStopped):
		writePostError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	default:
		writePostError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePostError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, posthttp.ErrorResponse{
		Code:    code,
		Message: strings.TrimSpace(message),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
