package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizType string

const (
	QuizTypeQuiz       QuizType = "quiz"
	QuizTypeAssignment QuizType = "assignment"
)

func (t QuizType) IsValid() bool {
	return t == QuizTypeQuiz || t == QuizTypeAssignment
}

type Quiz struct {
	ID          uint     `json:"id" gorm:"primaryKey"`
	ChapterID   uint     `json:"chapter_id" gorm:"not null;index"`
	CourseID    uint     `json:"course_id" gorm:"index"`
	Title       string   `json:"title" gorm:"not null;size:200"`
	Description *string  `json:"description" gorm:"type:text"`
	Type        QuizType `json:"type" gorm:"size:20;not null;index"`

	// Settings
	TimeLimit    *int `json:"time_limit"`                        // minutes, nil when untimed
	TotalMarks   int  `json:"total_marks" gorm:"not null"`       // sum of question points
	PassingMarks int  `json:"passing_marks" gorm:"not null"`     // percentage 0-100
	MaxAttempts  int  `json:"max_attempts" gorm:"not null"`      // 0 means unlimited
	IsActive     bool `json:"is_active" gorm:"not null;index"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Retakeable reports whether content edits can unlock another attempt.
// Assignments are graded manually and never qualify.
func (q *Quiz) Retakeable() bool {
	return q.Type == QuizTypeQuiz
}

// EditedAfter reports whether the quiz changed after the given attempt.
func (q *Quiz) EditedAfter(attempt *QuizAttempt) bool {
	if attempt == nil {
		return false
	}
	return q.UpdatedAt.After(attempt.ReferenceTime())
}

func (q *Quiz) HasTimeLimit() bool {
	return q.TimeLimit != nil && *q.TimeLimit > 0
}
