package models

import (
	"time"
)

type QuestionType string

const (
	SingleCorrect   QuestionType = "single_correct"
	MultipleCorrect QuestionType = "multiple_correct"
	TrueFalse       QuestionType = "true_false"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case SingleCorrect, MultipleCorrect, TrueFalse:
		return true
	}
	return false
}

type Question struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	QuizID     uint         `json:"quiz_id" gorm:"not null;index"`
	Text       string       `json:"text" gorm:"type:text;not null"`
	Type       QuestionType `json:"type" gorm:"size:30;not null;index"`
	Points     int          `json:"points" gorm:"not null"`
	OrderIndex int          `json:"order_index" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Options []Option `json:"options" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null"`
	OrderIndex int    `json:"order_index" gorm:"not null"`
}

func (Option) TableName() string {
	return "question_options"
}

// CorrectOption returns the first option flagged correct, in stored order.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// CorrectTexts returns the distinct texts of all correct options.
func (q *Question) CorrectTexts() []string {
	seen := make(map[string]bool)
	texts := make([]string, 0)
	for _, opt := range q.Options {
		if opt.IsCorrect && !seen[opt.Text] {
			seen[opt.Text] = true
			texts = append(texts, opt.Text)
		}
	}
	return texts
}
