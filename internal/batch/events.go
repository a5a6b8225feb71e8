package batch

import (
	"context"
	"time"
)

type EventType string

const (
	EventEssayReviewed  EventType = "essay.reviewed"
	EventEssayFailed    EventType = "essay.failed"
	EventBatchCommitted EventType = "batch.committed"
)

// Event is a batch lifecycle notification.
type Event struct {
	Type       EventType `json:"type"`
	BatchID    string    `json:"batch_id"`
	TeacherID  string    `json:"teacher_id,omitempty"`
	ClassID    string    `json:"class_id"`
	ActivityID string    `json:"activity_id"`
	TempID     string    `json:"temp_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier receives batch events. Implementations must not block for long;
// delivery failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
