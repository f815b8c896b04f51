package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// BusinessValidator checks authoring rules that span several fields.
type BusinessValidator struct{}

func registerRules(validate *validator.Validate) {
	validate.RegisterValidation("passing_marks", func(fl validator.FieldLevel) bool {
		marks := fl.Field().Int()
		return marks >= 0 && marks <= 100
	})

	// 0 means unlimited
	validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts >= 0 && attempts <= 20
	})

	validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	validate.RegisterValidation("time_limit", func(fl validator.FieldLevel) bool {
		minutes := fl.Field().Int()
		return minutes >= 1 && minutes <= 600
	})

	validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("quiz_type", func(fl validator.FieldLevel) bool {
		return models.QuizType(fl.Field().String()).IsValid()
	})
}

// ValidateQuestion checks option consistency for the question type. Grading
// itself stays lenient; these rules only apply when authoring.
func (bv *BusinessValidator) ValidateQuestion(questionType models.QuestionType, options []OptionRequest) ValidationErrors {
	var errors ValidationErrors

	correct := 0
	seen := make(map[string]bool, len(options))
	for i, opt := range options {
		text := strings.TrimSpace(opt.Text)
		if text == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d].text", i),
				Message: "option text cannot be empty",
				Rule:    "business_logic",
			})
			continue
		}
		if seen[opt.Text] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d].text", i),
				Message: "duplicate option text",
				Value:   opt.Text,
				Rule:    "business_logic",
			})
		}
		seen[opt.Text] = true
		if opt.IsCorrect {
			correct++
		}
	}

	switch questionType {
	case models.SingleCorrect:
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "single_correct questions need exactly one correct option",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	case models.TrueFalse:
		if len(options) != 2 || !seen["true"] || !seen["false"] {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: `true_false questions need the options "true" and "false"`,
				Rule:    "business_logic",
			})
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "true_false questions need exactly one correct option",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	case models.MultipleCorrect:
		if correct < 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "multiple_correct questions need at least one correct option",
				Value:   correct,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateQuizUpdate rejects changes that would strand existing attempts.
func (bv *BusinessValidator) ValidateQuizUpdate(req *QuizUpdateRequest, existing *models.Quiz, attemptCount int64) ValidationErrors {
	var errors ValidationErrors

	if req.Type != nil && *req.Type != existing.Type && attemptCount > 0 {
		errors = append(errors, ValidationError{
			Field:   "type",
			Message: "cannot change quiz type once attempts exist",
			Value:   *req.Type,
			Rule:    "business_logic",
		})
	}

	return errors
}
