package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

type QuizAttempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	QuizID        uint          `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_attempt_quiz_user_number,priority:1"`
	UserID        string        `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_attempt_quiz_user_number,priority:2"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_quiz_user_number,priority:3"`
	Status        AttemptStatus `json:"status" gorm:"size:20;not null;index"`

	// Submission, keyed by question id
	Answers datatypes.JSON `json:"answers"`

	// Scoring
	Score       int  `json:"score"`
	TotalPoints int  `json:"total_points"`
	IsPassed    bool `json:"is_passed"`

	// Timing
	TimeTaken   int        `json:"time_taken"` // seconds
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// ReferenceTime is the instant quiz edits are compared against when deciding
// whether the attempt has been superseded.
func (a *QuizAttempt) ReferenceTime() time.Time {
	if a.CompletedAt != nil {
		return *a.CompletedAt
	}
	return a.CreatedAt
}

func (a *QuizAttempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

// Percentage is derived on read; it is not stored.
func (a *QuizAttempt) Percentage() int {
	if a.TotalPoints <= 0 {
		return 0
	}
	return int(math.Round(float64(a.Score) / float64(a.TotalPoints) * 100))
}
