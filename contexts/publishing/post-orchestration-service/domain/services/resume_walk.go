package services

import "crosspost/contexts/publishing/post-orchestration-service/domain/entities"

// WalkStep is the decision taken for one record of the backward history walk.
type WalkStep int

const (
	WalkContinue WalkStep = iota
	WalkIncludeAndStop
	WalkExcludeAndStop
)

func (s WalkStep) String() string {
	switch s {
	case WalkContinue:
		return "continue"
	case WalkIncludeAndStop:
		return "include-and-stop"
	case WalkExcludeAndStop:
		return "exclude-and-stop"
	default:
		return "unknown"
	}
}

// DecideWalkStep classifies a record visited while walking newest to oldest.
// A DONE record ends the walk without contributing events unless it is the record
// being resumed. A RESTART-mode record contributes its events and ends the walk once
// it is terminal, or when it is the RUNNING record being recovered.
func DecideWalkStep(record entities.PostRecord, currentRecordID string, crashRecovery bool) WalkStep {
	isCurrent := record.ID == currentRecordID
	if !isCurrent && record.State == entities.PostRecordStateDone {
		return WalkExcludeAndStop
	}
	if record.ResumeMode == entities.ResumeModeRestart {
		if record.State.IsTerminal() || (isCurrent && crashRecovery) {
			return WalkIncludeAndStop
		}
	}
	return WalkContinue
}

// HistoryWalker iterates a newest-first history starting at the record being resumed.
type HistoryWalker struct {
	history         []entities.PostRecord
	currentRecordID string
	crashRecovery   bool
	pos             int
	done            bool
}

// NewHistoryWalker positions the walk at currentRecordID. Records newer than it are
// skipped; when it is absent from history the walk starts at the newest record.
func NewHistoryWalker(history []entities.PostRecord, currentRecordID string, crashRecovery bool) *HistoryWalker {
	start := 0
	for i, record := range history {
		if record.ID == currentRecordID {
			start = i
			break
		}
	}
	return &HistoryWalker{
		history:         history,
		currentRecordID: currentRecordID,
		crashRecovery:   crashRecovery,
		pos:             start,
	}
}

// Next returns the next record whose events belong in the context.
func (w *HistoryWalker) Next() (entities.PostRecord, bool) {
	for !w.done && w.pos < len(w.history) {
		record := w.history[w.pos]
		w.pos++
		switch DecideWalkStep(record, w.currentRecordID, w.crashRecovery) {
		case WalkExcludeAndStop:
			w.done = true
			return entities.PostRecord{}, false
		case WalkIncludeAndStop:
			w.done = true
			return record, true
		default:
			return record, true
		}
	}
	return entities.PostRecord{}, false
}

// IncludedRecordIDs drains the walker, newest first.
func (w *HistoryWalker) IncludedRecordIDs() []string {
	ids := make([]string, 0, len(w.history))
	for {
		record, ok := w.Next()
		if !ok {
			return ids
		}
		ids = append(ids, record.ID)
	}
}
