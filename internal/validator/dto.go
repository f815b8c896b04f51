package validator

import (
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuizCreateRequest is the payload for creating a quiz.
type QuizCreateRequest struct {
	ChapterID    uint            `json:"chapter_id" validate:"required"`
	CourseID     uint            `json:"course_id"`
	Title        string          `json:"title" validate:"required,min=1,max=200"`
	Description  *string         `json:"description" validate:"omitempty,max=2000"`
	Type         models.QuizType `json:"type" validate:"required,quiz_type"`
	TimeLimit    *int            `json:"time_limit" validate:"omitempty,time_limit"`
	PassingMarks int             `json:"passing_marks" validate:"passing_marks"`
	MaxAttempts  int             `json:"max_attempts" validate:"max_attempts"`
	IsActive     *bool           `json:"is_active"`
}

// QuizUpdateRequest is a partial quiz update.
type QuizUpdateRequest struct {
	Title        *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string          `json:"description" validate:"omitempty,max=2000"`
	Type         *models.QuizType `json:"type" validate:"omitempty,quiz_type"`
	TimeLimit    *int             `json:"time_limit" validate:"omitempty,time_limit"`
	PassingMarks *int             `json:"passing_marks" validate:"omitempty,passing_marks"`
	MaxAttempts  *int             `json:"max_attempts" validate:"omitempty,max_attempts"`
	IsActive     *bool            `json:"is_active"`
}

// QuestionRequest creates or replaces a question and its options.
type QuestionRequest struct {
	Text       string              `json:"text" validate:"required,min=1,max=2000"`
	Type       models.QuestionType `json:"type" validate:"required,question_type"`
	Points     int                 `json:"points" validate:"required,points_range"`
	OrderIndex *int                `json:"order_index" validate:"omitempty,min=0"`
	Options    []OptionRequest     `json:"options" validate:"required,min=1,max=10,dive"`
}

type OptionRequest struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}
