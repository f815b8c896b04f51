// Package events publishes quiz lifecycle events over watermill, backed by
// Kafka in production and an in-process channel otherwise.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const Source = "quiz-service"

type EventType string

const (
	AttemptStarted   EventType = "attempt.started"
	AttemptSubmitted EventType = "attempt.submitted"
	QuizUpdated      EventType = "quiz.updated"
)

// Event is the envelope carried on every topic. The topic name equals Type.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Source    string         `json:"source"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      datatypes.JSON `json:"data"`
}

// Decode unmarshals the payload into dest.
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

func NewEvent(eventType EventType, userID string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    Source,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      datatypes.JSON(data),
	}, nil
}

type AttemptStartedData struct {
	AttemptID     uint      `json:"attempt_id"`
	QuizID        uint      `json:"quiz_id"`
	UserID        string    `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
}

type AttemptSubmittedData struct {
	AttemptID   uint      `json:"attempt_id"`
	QuizID      uint      `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percentage  int       `json:"percentage"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
}

type QuizUpdatedData struct {
	QuizID     uint      `json:"quiz_id"`
	UpdatedBy  string    `json:"updated_by"`
	TotalMarks int       `json:"total_marks"`
	Change     string    `json:"change"` // "quiz", "question_added", "question_updated", "question_deleted", "deleted"
	UpdatedAt  time.Time `json:"updated_at"`
}

// EventPublisher is what services depend on.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
