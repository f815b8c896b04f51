package grading

import (
	"math"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuestionResult is the outcome for a single question.
type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Answered   bool `json:"answered"`
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	MaxPoints  int  `json:"max_points"`
}

// Result is the graded outcome of a submission.
type Result struct {
	Score       int              `json:"score"`
	TotalPoints int              `json:"total_points"`
	Percentage  int              `json:"percentage"`
	Passed      bool             `json:"passed"`
	Questions   []QuestionResult `json:"questions"`
	Warnings    []Warning        `json:"warnings,omitempty"`
}

// Evaluate grades answers against questions. It has no side effects and
// returns identical results for identical input.
func Evaluate(questions []models.Question, answers AnswerSheet, passingMarks int) Result {
	result := Result{
		Questions: make([]QuestionResult, 0, len(questions)),
	}

	for i := range questions {
		question := &questions[i]
		answer, answered := answers[question.ID]

		qr := QuestionResult{
			QuestionID: question.ID,
			Answered:   answered,
			MaxPoints:  question.Points,
		}
		if answered && isCorrect(question, answer) {
			qr.Correct = true
			qr.Points = question.Points
		}

		result.TotalPoints += question.Points
		result.Score += qr.Points
		result.Questions = append(result.Questions, qr)
	}

	result.Percentage = Percentage(result.Score, result.TotalPoints)
	result.Passed = result.Percentage >= passingMarks

	return result
}

// Percentage rounds score/total to the nearest whole percent; 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func isCorrect(question *models.Question, answer Answer) bool {
	switch question.Type {
	case models.SingleCorrect:
		a, ok := answer.(SingleChoice)
		if !ok {
			return false
		}
		return matchesCorrectOption(question, a.Text)

	case models.TrueFalse:
		a, ok := answer.(TrueFalse)
		if !ok || !a.IsLiteral() {
			return false
		}
		return matchesCorrectOption(question, a.Value)

	case models.MultipleCorrect:
		a, ok := answer.(MultipleChoice)
		if !ok {
			return false
		}
		return matchesCorrectSet(question, a.Texts)
	}

	return false
}

func matchesCorrectOption(question *models.Question, text string) bool {
	correct := question.CorrectOption()
	if correct == nil {
		return false
	}
	return correct.Text == text
}

func matchesCorrectSet(question *models.Question, submitted []string) bool {
	correct := question.CorrectTexts()
	if len(correct) == 0 || len(submitted) != len(correct) {
		return false
	}

	given := make(map[string]bool, len(submitted))
	for _, text := range submitted {
		given[text] = true
	}
	for _, text := range correct {
		if !given[text] {
			return false
		}
	}
	return true
}
