package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"

	"github.com/google/uuid"
)

// Store keeps every engine table in process. Insertion order backs the seq columns.
type Store struct {
	mu sync.RWMutex

	seq            int64
	records        map[string]entities.PostRecord
	recordSeq      map[string]int64
	websiteRecords map[string]entities.WebsitePostRecord
	websiteSeq     map[string]int64
	events         []entities.PostEvent
	queue          map[string]entities.PostQueueRecord
	failAppend     error
}

func NewStore() *Store {
	return &Store{
		records:        make(map[string]entities.PostRecord),
		recordSeq:      make(map[string]int64),
		websiteRecords: make(map[string]entities.WebsitePostRecord),
		websiteSeq:     make(map[string]int64),
		queue:          make(map[string]entities.PostQueueRecord),
	}
}

// FailAppends makes every later AppendEvent return err. Passing nil restores writes.
func (s *Store) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = err
}

func (s *Store) CreatePostRecord(_ context.Context, record entities.PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.ID) == "" || strings.TrimSpace(record.SubmissionID) == "" {
		return domainerrors.ErrInvalidPostInput
	}
	if _, exists := s.records[record.ID]; exists {
		return domainerrors.ErrInvalidPostInput
	}
	if record.State.IsActive() {
		for _, existing := range s.records {
			if existing.SubmissionID == record.SubmissionID && existing.State.IsActive() {
				return domainerrors.ErrActivePostRecordExists
			}
		}
	}
	record.Children = nil
	s.seq++
	s.recordSeq[record.ID] = s.seq
	s.records[record.ID] = record
	return nil
}

func (s *Store) GetPostRecord(_ context.Context, postRecordID string) (entities.PostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[strings.TrimSpace(postRecordID)]
	if !ok {
		return entities.PostRecord{}, domainerrors.ErrPostRecordNotFound
	}
	record.Children = s.childrenLocked(record.ID)
	return record, nil
}

func (s *Store) ListPostRecordsBySubmission(_ context.Context, submissionID string) ([]entities.PostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.PostRecord, 0)
	for _, record := range s.records {
		if record.SubmissionID == strings.TrimSpace(submissionID) {
			items = append(items, record)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return s.recordSeq[items[i].ID] > s.recordSeq[items[j].ID]
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListPostRecordsByState(_ context.Context, state entities.PostRecordState) ([]entities.PostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.PostRecord, 0)
	for _, record := range s.records {
		if record.State == state {
			items = append(items, record)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return s.recordSeq[items[i].ID] < s.recordSeq[items[j].ID]
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdatePostRecordState(
	_ context.Context,
	postRecordID string,
	state entities.PostRecordState,
	completedAt *time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[strings.TrimSpace(postRecordID)]
	if !ok {
		return domainerrors.ErrPostRecordNotFound
	}
	record.State = state
	if completedAt != nil {
		value := completedAt.UTC()
		record.CompletedAt = &value
	}
	s.records[record.ID] = record
	return nil
}

func (s *Store) UpsertWebsitePostRecord(_ context.Context, record entities.WebsitePostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.PostRecordID]; !ok {
		return domainerrors.ErrPostRecordNotFound
	}
	key := record.PostRecordID + "|" + record.AccountID
	if existing, ok := s.websiteRecords[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		s.seq++
		s.websiteSeq[key] = s.seq
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Errors = append([]entities.PostError(nil), record.Errors...)
	s.websiteRecords[key] = record
	return nil
}

func (s *Store) ListWebsitePostRecords(_ context.Context, postRecordID string) ([]entities.WebsitePostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.childrenLocked(strings.TrimSpace(postRecordID)), nil
}

func (s *Store) childrenLocked(postRecordID string) []entities.WebsitePostRecord {
	items := make([]entities.WebsitePostRecord, 0)
	for _, record := range s.websiteRecords {
		if record.PostRecordID == postRecordID {
			items = append(items, record)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return s.websiteSeq[items[i].PostRecordID+"|"+items[i].AccountID] <
			s.websiteSeq[items[j].PostRecordID+"|"+items[j].AccountID]
	})
	return items
}

func (s *Store) AppendEvent(_ context.Context, event entities.PostEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppend != nil {
		return s.failAppend
	}
	if _, ok := s.records[event.PostRecordID]; !ok {
		return domainerrors.ErrPostRecordNotFound
	}
	s.seq++
	event.Seq = s.seq
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListEventsByPostRecordIDs(_ context.Context, postRecordIDs []string) ([]entities.PostEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(postRecordIDs))
	for _, id := range postRecordIDs {
		wanted[strings.TrimSpace(id)] = struct{}{}
	}
	items := make([]entities.PostEvent, 0)
	for _, event := range s.events {
		if _, ok := wanted[event.PostRecordID]; ok {
			items = append(items, event)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Seq < items[j].Seq
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateQueueRecord(_ context.Context, record entities.PostQueueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.queue {
		if existing.SubmissionID == record.SubmissionID {
			return domainerrors.ErrQueueRecordExists
		}
	}
	s.seq++
	record.Seq = s.seq
	record.PostRecord = nil
	s.queue[record.ID] = record
	return nil
}

func (s *Store) GetQueueRecordBySubmission(_ context.Context, submissionID string) (entities.PostQueueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.queue {
		if record.SubmissionID == strings.TrimSpace(submissionID) {
			return record, nil
		}
	}
	return entities.PostQueueRecord{}, domainerrors.ErrQueueRecordNotFound
}

func (s *Store) HeadQueueRecord(ctx context.Context) (entities.PostQueueRecord, bool, error) {
	items, err := s.ListQueueRecords(ctx)
	if err != nil || len(items) == 0 {
		return entities.PostQueueRecord{}, false, err
	}
	return items[0], true, nil
}

func (s *Store) ListQueueRecords(_ context.Context) ([]entities.PostQueueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.PostQueueRecord, 0, len(s.queue))
	for _, record := range s.queue {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Seq < items[j].Seq
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) AttachPostRecord(_ context.Context, queueRecordID string, postRecordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.queue[strings.TrimSpace(queueRecordID)]
	if !ok {
		return domainerrors.ErrQueueRecordNotFound
	}
	record.PostRecordID = strings.TrimSpace(postRecordID)
	s.queue[record.ID] = record
	return nil
}

func (s *Store) DeleteQueueRecord(_ context.Context, queueRecordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[strings.TrimSpace(queueRecordID)]; !ok {
		return domainerrors.ErrQueueRecordNotFound
	}
	delete(s.queue, strings.TrimSpace(queueRecordID))
	return nil
}

func (s *Store) DeleteQueueRecordsBySubmission(_ context.Context, submissionIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]struct{}, len(submissionIDs))
	for _, id := range submissionIDs {
		wanted[strings.TrimSpace(id)] = struct{}{}
	}
	removed := 0
	for id, record := range s.queue {
		if _, ok := wanted[record.SubmissionID]; ok {
			delete(s.queue, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.PostRecordRepository = (*Store)(nil)
var _ ports.EventLedger = (*Store)(nil)
var _ ports.PostQueueRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
