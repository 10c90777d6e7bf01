package services

import (
	"reflect"
	"testing"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
)

func record(id string, state entities.PostRecordState, mode entities.ResumeMode) entities.PostRecord {
	return entities.PostRecord{ID: id, SubmissionID: "sub-1", State: state, ResumeMode: mode}
}

func TestDecideWalkStep(t *testing.T) {
	cases := []struct {
		name     string
		record   entities.PostRecord
		current  string
		crash    bool
		expected WalkStep
	}{
		{"older done stops", record("r1", entities.PostRecordStateDone, entities.ResumeModeContinue), "r2", false, WalkExcludeAndStop},
		{"current done is included", record("r2", entities.PostRecordStateDone, entities.ResumeModeContinue), "r2", false, WalkContinue},
		{"failed restart origin", record("r1", entities.PostRecordStateFailed, entities.ResumeModeRestart), "r2", false, WalkIncludeAndStop},
		{"failed continue keeps walking", record("r1", entities.PostRecordStateFailed, entities.ResumeModeContinue), "r2", false, WalkContinue},
		{"running restart under recovery", record("r2", entities.PostRecordStateRunning, entities.ResumeModeRestart), "r2", true, WalkIncludeAndStop},
		{"pending restart current", record("r2", entities.PostRecordStatePending, entities.ResumeModeRestart), "r2", false, WalkContinue},
	}
	for _, tc := range cases {
		got := DecideWalkStep(tc.record, tc.current, tc.crash)
		if got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}

func TestHistoryWalkerStopsAtRestartOrigin(t *testing.T) {
	history := []entities.PostRecord{
		record("r4", entities.PostRecordStatePending, entities.ResumeModeContinue),
		record("r3", entities.PostRecordStateFailed, entities.ResumeModeContinue),
		record("r2", entities.PostRecordStateFailed, entities.ResumeModeRestart),
		record("r1", entities.PostRecordStateFailed, entities.ResumeModeContinue),
	}
	got := NewHistoryWalker(history, "r4", false).IncludedRecordIDs()
	expected := []string{"r4", "r3", "r2"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestHistoryWalkerStopsBeforeDoneRecord(t *testing.T) {
	history := []entities.PostRecord{
		record("r3", entities.PostRecordStatePending, entities.ResumeModeContinue),
		record("r2", entities.PostRecordStateFailed, entities.ResumeModeContinue),
		record("r1", entities.PostRecordStateDone, entities.ResumeModeRestart),
	}
	got := NewHistoryWalker(history, "r3", false).IncludedRecordIDs()
	expected := []string{"r3", "r2"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestHistoryWalkerSkipsNewerRecords(t *testing.T) {
	history := []entities.PostRecord{
		record("r3", entities.PostRecordStatePending, entities.ResumeModeContinue),
		record("r2", entities.PostRecordStateRunning, entities.ResumeModeRestart),
		record("r1", entities.PostRecordStateFailed, entities.ResumeModeRestart),
	}
	got := NewHistoryWalker(history, "r2", true).IncludedRecordIDs()
	if !reflect.DeepEqual(got, []string{"r2"}) {
		t.Fatalf("expected only the recovered record, got %v", got)
	}
}

func TestHistoryWalkerUnknownCurrentStartsAtNewest(t *testing.T) {
	history := []entities.PostRecord{
		record("r2", entities.PostRecordStateFailed, entities.ResumeModeContinue),
		record("r1", entities.PostRecordStateFailed, entities.ResumeModeRestart),
	}
	got := NewHistoryWalker(history, "missing", false).IncludedRecordIDs()
	if !reflect.DeepEqual(got, []string{"r2", "r1"}) {
		t.Fatalf("unexpected walk %v", got)
	}
	if ids := NewHistoryWalker(nil, "r1", false).IncludedRecordIDs(); len(ids) != 0 {
		t.Fatalf("expected empty walk, got %v", ids)
	}
}
