package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	postorchestration "crosspost/contexts/publishing/post-orchestration-service"
	"crosspost/contexts/publishing/post-orchestration-service/adapters/websites"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	posthttp "crosspost/contexts/publishing/post-orchestration-service/transport/http"
)

func newTestServer() (*Server, postorchestration.Module) {
	module := postorchestration.NewInMemoryModule(slog.Default(),
		websites.NewSimulated("gallery", websites.SimulatedOptions{Files: true}),
	)
	module.Catalog.PutAccount(entities.Account{ID: "acct-a", Website: "gallery", LoggedIn: true})
	module.Catalog.PutSubmission(entities.Submission{
		ID:      "sub-1",
		Type:    entities.SubmissionTypeFile,
		Title:   "Sketch",
		Options: []entities.WebsiteOption{{AccountID: "acct-a"}},
		Files:   []entities.SubmissionFile{{ID: "file-1", FileName: "a.png", Width: 100, Height: 100}},
	})
	return New(module, slog.Default(), ":0"), module
}

func serve(server *Server, method string, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestEnqueueRejectsInvalidJSON(t *testing.T) {
	server, _ := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/post-queue/enqueue", []byte(`{`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEnqueueRejectsUnknownResumeMode(t *testing.T) {
	server, _ := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/post-queue/enqueue",
		[]byte(`{"submission_ids":["sub-1"],"resume_mode":"SOMETIMES"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp posthttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "invalid_resume_mode" {
		t.Fatalf("expected invalid_resume_mode, got %q", resp.Code)
	}
}

func TestEnqueueRejectsEmptySubmissionList(t *testing.T) {
	server, _ := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/post-queue/enqueue", []byte(`{"submission_ids":[]}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEnqueuePostAndInspectHistory(t *testing.T) {
	server, module := newTestServer()
	ctx := context.Background()

	rr := serve(server, http.MethodPost, "/v1/post-queue/enqueue",
		[]byte(`{"submission_ids":["sub-1","sub-1"],"resume_mode":"CONTINUE"}`))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}
	var enqueued posthttp.EnqueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &enqueued); err != nil {
		t.Fatalf("decode enqueue: %v", err)
	}
	if len(enqueued.Queued) != 1 || enqueued.Queued[0].ResumeMode != "CONTINUE" {
		t.Fatalf("unexpected enqueue response: %+v", enqueued)
	}

	rr = serve(server, http.MethodGet, "/v1/post-queue/peek", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var peek posthttp.PeekResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &peek)
	if peek.Item == nil || peek.Item.SubmissionID != "sub-1" {
		t.Fatalf("unexpected head: %+v", peek)
	}

	if err := module.Queue.Execute(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	module.Registry.Wait()
	if err := module.Queue.Execute(ctx); err != nil {
		t.Fatalf("release tick: %v", err)
	}

	rr = serve(server, http.MethodGet, "/v1/submissions/sub-1/post-records", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var records posthttp.ListPostRecordsResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &records)
	if len(records.Items) != 1 || records.Items[0].State != "DONE" {
		t.Fatalf("expected one DONE record, got %+v", records.Items)
	}
	recordID := records.Items[0].ID

	rr = serve(server, http.MethodGet, "/v1/post-records/"+recordID, nil)
	var record posthttp.PostRecordDTO
	_ = json.Unmarshal(rr.Body.Bytes(), &record)
	if len(record.Children) != 1 || record.Children[0].AccountID != "acct-a" {
		t.Fatalf("expected one child for acct-a, got %+v", record.Children)
	}

	rr = serve(server, http.MethodGet, "/v1/post-records/"+recordID+"/events", nil)
	var events posthttp.ListPostEventsResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &events)
	if len(events.Items) == 0 {
		t.Fatalf("expected ledger events")
	}
	if events.Items[0].EventType != string(entities.PostEventAttemptStarted) {
		t.Fatalf("expected first event %s, got %s", entities.PostEventAttemptStarted, events.Items[0].EventType)
	}

	rr = serve(server, http.MethodGet, "/v1/post-queue/status", nil)
	var status posthttp.QueueStatusResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &status)
	if len(status.Queued) != 0 || len(status.Running) != 0 {
		t.Fatalf("expected drained queue, got %+v", status)
	}
}

func TestGetPostRecordNotFound(t *testing.T) {
	server, _ := newTestServer()
	rr := serve(server, http.MethodGet, "/v1/post-records/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodGet, "/v1/post-records/missing/events", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for events, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPauseResumeAndDequeue(t *testing.T) {
	server, module := newTestServer()

	rr := serve(server, http.MethodPost, "/v1/post-queue/pause", nil)
	if rr.Code != http.StatusOK || !module.Queue.IsPaused() {
		t.Fatalf("expected paused queue, got %d", rr.Code)
	}
	_ = serve(server, http.MethodPost, "/v1/post-queue/enqueue", []byte(`{"submission_ids":["sub-1"]}`))
	if err := module.Queue.Execute(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if module.Registry.IsPosting("sub-1") {
		t.Fatalf("paused queue must not start attempts")
	}

	rr = serve(server, http.MethodPost, "/v1/post-queue/dequeue", []byte(`{"submission_ids":["sub-1"]}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var dequeued posthttp.DequeueResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &dequeued)
	if dequeued.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", dequeued.Removed)
	}

	rr = serve(server, http.MethodPost, "/v1/post-queue/resume", nil)
	if rr.Code != http.StatusOK || module.Queue.IsPaused() {
		t.Fatalf("expected resumed queue, got %d", rr.Code)
	}
}

func TestCancelWithoutRunningAttempt(t *testing.T) {
	server, _ := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/submissions/sub-1/cancel", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp posthttp.CancelResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Cancelled {
		t.Fatalf("expected cancelled=false with nothing in flight")
	}
}
