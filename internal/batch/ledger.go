package batch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// Field is a teacher-editable essay field.
type Field string

const (
	FieldStudent  Field = "student"
	FieldScore    Field = "score"
	FieldFeedback Field = "feedback"
)

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldStudent, FieldScore, FieldFeedback:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Ledger holds every essay of one batch in intake order. All methods are
// synchronous and safe for concurrent use; readers get copies.
type Ledger struct {
	target *Target

	mu    sync.RWMutex
	items map[string]*entity.ProcessedEssay
	order []string
}

func NewLedger(target *Target) *Ledger {
	return &Ledger{target: target, items: map[string]*entity.ProcessedEssay{}}
}

// Add inserts a new record. TempIDs must be unique.
func (l *Ledger) Add(e entity.ProcessedEssay) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[e.TempID]; ok {
		return fmt.Errorf("duplicate temp id %q", e.TempID)
	}
	rec := e.Clone()
	l.items[e.TempID] = &rec
	l.order = append(l.order, e.TempID)
	return nil
}

func (l *Ledger) Get(tempID string) (entity.ProcessedEssay, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.items[tempID]
	if !ok {
		return entity.ProcessedEssay{}, false
	}
	return e.Clone(), true
}

func (l *Ledger) Has(tempID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[tempID]
	return ok
}

// List returns copies of all records in intake order.
func (l *Ledger) List() []entity.ProcessedEssay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.ProcessedEssay, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id].Clone())
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// apply runs fn on the live record under the write lock. It reports false,
// without calling fn, when the record was removed.
func (l *Ledger) apply(tempID string, fn func(e *entity.ProcessedEssay)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[tempID]
	if !ok {
		return false
	}
	fn(e)
	return true
}

// Update sets one teacher-editable field. Setting the student also resolves
// the display name from the roster; an empty value clears the field.
// Repeating the same call leaves the record unchanged.
func (l *Ledger) Update(tempID string, field Field, value string) (entity.ProcessedEssay, error) {
	value = strings.TrimSpace(value)

	var student *entity.Student
	if field == FieldStudent && value != "" {
		s, ok := l.target.LookupStudent(value)
		if !ok {
			return entity.ProcessedEssay{}, fmt.Errorf("%w: %s", ErrUnknownStudent, value)
		}
		student = s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[tempID]
	if !ok {
		return entity.ProcessedEssay{}, fmt.Errorf("%w: %s", ErrEssayNotFound, tempID)
	}
	if e.Status != constants.EssayStatusReview {
		return entity.ProcessedEssay{}, fmt.Errorf("%w: %s is %s", ErrNotEditable, tempID, e.Status)
	}

	switch field {
	case FieldStudent:
		if student == nil {
			e.FinalStudentID, e.FinalStudentName = nil, nil
		} else {
			e.FinalStudentID, e.FinalStudentName = strPtr(student.ID), strPtr(student.Name)
		}
	case FieldScore:
		e.FinalScore = optional(value)
	case FieldFeedback:
		e.FinalFeedback = optional(value)
	default:
		return entity.ProcessedEssay{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return e.Clone(), nil
}

// Remove deletes a record and drops its image bytes. It reports whether the
// record existed.
func (l *Ledger) Remove(tempID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remove(tempID)
}

func (l *Ledger) remove(tempID string) bool {
	e, ok := l.items[tempID]
	if !ok {
		return false
	}
	release(e)
	delete(l.items, tempID)
	for i, id := range l.order {
		if id == tempID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every record and its image bytes.
func (l *Ledger) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.order)
	for _, e := range l.items {
		release(e)
	}
	l.items = map[string]*entity.ProcessedEssay{}
	l.order = nil
	return n
}

// Complete returns the records eligible for commit, in intake order.
func (l *Ledger) Complete() []entity.ProcessedEssay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.complete()
}

func (l *Ledger) complete() []entity.ProcessedEssay {
	var out []entity.ProcessedEssay
	for _, id := range l.order {
		if e := l.items[id]; e.IsComplete() {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (l *Ledger) CompleteCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.items {
		if e.IsComplete() {
			n++
		}
	}
	return n
}

// Blocking lists records that prevent a commit: review records that are not
// complete and records still processing. Error records never block.
func (l *Ledger) Blocking() []Blocker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocking()
}

func (l *Ledger) blocking() []Blocker {
	var out []Blocker
	for _, id := range l.order {
		e := l.items[id]
		switch e.Status {
		case constants.EssayStatusProcessing:
			out = append(out, Blocker{TempID: id, Filename: e.Filename, Reasons: []string{"still processing"}})
		case constants.EssayStatusReview:
			if missing := e.MissingFields(); len(missing) > 0 {
				reasons := make([]string, len(missing))
				for i, m := range missing {
					reasons[i] = "missing " + m
				}
				out = append(out, Blocker{TempID: id, Filename: e.Filename, Reasons: reasons})
			}
		}
	}
	return out
}

// CommitSet is a consistent view of the ledger taken for one commit.
type CommitSet struct {
	Complete []entity.ProcessedEssay
	Errored  []string
	Blocking []Blocker
}

// IDs lists the records a successful commit settles: the complete ones and
// the errored ones.
func (cs CommitSet) IDs() []string {
	ids := make([]string, 0, len(cs.Complete)+len(cs.Errored))
	for _, e := range cs.Complete {
		ids = append(ids, e.TempID)
	}
	return append(ids, cs.Errored...)
}

// Snapshot classifies every record under one lock, so no record can move
// between the complete and blocking sets while they are computed.
func (l *Ledger) Snapshot() CommitSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cs := CommitSet{Complete: l.complete(), Blocking: l.blocking()}
	for _, id := range l.order {
		if l.items[id].Status == constants.EssayStatusError {
			cs.Errored = append(cs.Errored, id)
		}
	}
	return cs
}

// Settle removes the named records and reports how many were still present.
// Records added after the snapshot are kept.
func (l *Ledger) Settle(tempIDs []string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, id := range tempIDs {
		if l.remove(id) {
			n++
		}
	}
	return n
}

// Counts tallies records by display status.
func (l *Ledger) Counts() map[constants.EssayStatus]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := map[constants.EssayStatus]int{}
	for _, e := range l.items {
		out[e.DisplayStatus()]++
	}
	return out
}

func release(e *entity.ProcessedEssay) {
	if e.Source != nil {
		e.Source.Data = nil
		e.Source = nil
	}
	e.ImageURL = ""
}

func strPtr(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
