package posting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/adapters/memory"
	"crosspost/contexts/publishing/post-orchestration-service/adapters/websites"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
	"crosspost/internal/shared/events"
)

// scriptedSite is a destination whose failures and blocking are set per test.
type scriptedSite struct {
	name      string
	batchSize int
	maxDim    int

	mu          sync.Mutex
	failFiles   map[string]string
	failMessage string
	block       bool
	started     chan struct{}
	fileCalls   [][]entities.SubmissionFile
	messages    []entities.PostData
}

func newScriptedSite(name string) *scriptedSite {
	return &scriptedSite{
		name:      name,
		failFiles: make(map[string]string),
		started:   make(chan struct{}, 16),
	}
}

func (s *scriptedSite) Name() string { return s.name }

func (s *scriptedSite) FileBatchSize() int { return s.batchSize }

func (s *scriptedSite) CalculateResize(file entities.SubmissionFile) *entities.ResizeRequest {
	if s.maxDim <= 0 || (file.Width <= s.maxDim && file.Height <= s.maxDim) {
		return nil
	}
	return &entities.ResizeRequest{MaxWidth: s.maxDim, MaxHeight: s.maxDim}
}

func (s *scriptedSite) PostFiles(
	ctx context.Context,
	data entities.PostData,
	files []entities.SubmissionFile,
) (entities.PostResponse, error) {
	s.mu.Lock()
	s.fileCalls = append(s.fileCalls, append([]entities.SubmissionFile(nil), files...))
	block := s.block
	var failure string
	for _, file := range files {
		if message, ok := s.failFiles[file.ID]; ok {
			failure = message
		}
	}
	n := len(s.fileCalls)
	s.mu.Unlock()

	if block {
		s.started <- struct{}{}
		<-ctx.Done()
		return entities.PostResponse{}, ctx.Err()
	}
	if failure != "" {
		return entities.PostResponse{}, errors.New(failure)
	}
	return entities.PostResponse{SourceURL: fmt.Sprintf("https://%s/%s/%d", s.name, data.AccountID, n)}, nil
}

func (s *scriptedSite) PostMessage(ctx context.Context, data entities.PostData) (entities.PostResponse, error) {
	s.mu.Lock()
	s.messages = append(s.messages, data)
	failure := s.failMessage
	n := len(s.messages)
	s.mu.Unlock()

	if failure != "" {
		return entities.PostResponse{Errors: []string{failure}}, nil
	}
	return entities.PostResponse{SourceURL: fmt.Sprintf("https://%s/%s/m%d", s.name, data.AccountID, n)}, nil
}

func (s *scriptedSite) uploadedFileIDs() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([][]string, 0, len(s.fileCalls))
	for _, call := range s.fileCalls {
		ids := make([]string, 0, len(call))
		for _, file := range call {
			ids = append(ids, file.ID)
		}
		calls = append(calls, ids)
	}
	return calls
}

func (s *scriptedSite) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFiles = make(map[string]string)
	s.failMessage = ""
	s.fileCalls = nil
	s.messages = nil
}

type capturePublisher struct {
	mu       sync.Mutex
	envelope []events.Envelope
	onPublish func(events.Envelope)
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event events.Envelope) error {
	if p.onPublish != nil {
		p.onPublish(event)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelope = append(p.envelope, event)
	return nil
}

func (p *capturePublisher) published() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Envelope(nil), p.envelope...)
}

type harness struct {
	store     *memory.Store
	catalog   *memory.Catalog
	sites     *websites.Registry
	publisher *capturePublisher
	manager   Manager
}

func newHarness(sites ...ports.Website) harness {
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	registry := websites.NewRegistry(nil, sites...)
	publisher := &capturePublisher{}
	builder := resume.Builder{Records: store, Ledger: store, Clock: store, IDGen: store}
	return harness{
		store:     store,
		catalog:   catalog,
		sites:     registry,
		publisher: publisher,
		manager: Manager{
			Records:     store,
			Ledger:      store,
			Submissions: catalog,
			Accounts:    catalog,
			Websites:    registry,
			Resizer:     websites.DimensionResizer{},
			Resume:      builder,
			Publisher:   publisher,
			Clock:       store,
			IDGen:       store,
		},
	}
}

func (h harness) seedFileSubmission(website string, accountIDs []string, files ...entities.SubmissionFile) {
	options := make([]entities.WebsiteOption, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		h.catalog.PutAccount(entities.Account{ID: accountID, Website: website, LoggedIn: true})
		options = append(options, entities.WebsiteOption{AccountID: accountID})
	}
	h.catalog.PutSubmission(entities.Submission{
		ID:      "sub-1",
		Type:    entities.SubmissionTypeFile,
		Title:   "harbor at dusk",
		Options: options,
		Files:   files,
	})
}

func (h harness) createRecord(t *testing.T, mode entities.ResumeMode) entities.PostRecord {
	t.Helper()
	record, err := h.manager.Resume.Create(context.Background(), "sub-1", mode)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}

func (h harness) events(t *testing.T, postRecordID string) []entities.PostEvent {
	t.Helper()
	items, err := h.store.ListEventsByPostRecordIDs(context.Background(), []string{postRecordID})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return items
}

func eventTypes(items []entities.PostEvent, accountID string) []entities.PostEventType {
	types := make([]entities.PostEventType, 0, len(items))
	for _, item := range items {
		if item.AccountID == accountID {
			types = append(types, item.EventType)
		}
	}
	return types
}

func file(id string, width, height int) entities.SubmissionFile {
	return entities.SubmissionFile{ID: id, FileName: id + ".png", MimeType: "image/png", Width: width, Height: height}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
