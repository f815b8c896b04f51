package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func intPtr(v int) *int { return &v }

func TestValidator_QuizCreateRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       QuizCreateRequest
		wantField string
	}{
		{
			name: "valid",
			req:  QuizCreateRequest{ChapterID: 1, Title: "Week 1", Type: models.QuizTypeQuiz, PassingMarks: 60, MaxAttempts: 3},
		},
		{
			name: "zero passing marks and unlimited attempts allowed",
			req:  QuizCreateRequest{ChapterID: 1, Title: "Open", Type: models.QuizTypeAssignment},
		},
		{
			name:      "passing marks above 100",
			req:       QuizCreateRequest{ChapterID: 1, Title: "Week 1", Type: models.QuizTypeQuiz, PassingMarks: 101},
			wantField: "passing_marks",
		},
		{
			name:      "unknown quiz type",
			req:       QuizCreateRequest{ChapterID: 1, Title: "Week 1", Type: "exam"},
			wantField: "type",
		},
		{
			name:      "missing chapter",
			req:       QuizCreateRequest{Title: "Week 1", Type: models.QuizTypeQuiz},
			wantField: "chapter_id",
		},
		{
			name:      "time limit out of range",
			req:       QuizCreateRequest{ChapterID: 1, Title: "Week 1", Type: models.QuizTypeQuiz, TimeLimit: intPtr(0)},
			wantField: "time_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ve ValidationErrors
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve[0].Field)
		})
	}
}

func TestValidator_QuestionRequest(t *testing.T) {
	v := New()

	valid := QuestionRequest{
		Text:    "2+2?",
		Type:    models.SingleCorrect,
		Points:  5,
		Options: []OptionRequest{{Text: "4", IsCorrect: true}, {Text: "5"}},
	}
	assert.NoError(t, v.Validate(&valid))

	invalid := valid
	invalid.Type = "essay"
	invalid.Points = 0
	err := v.Validate(&invalid)
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve, 2)
}

func TestBusinessValidator_ValidateQuestion(t *testing.T) {
	bv := New().Business()

	tests := []struct {
		name    string
		qType   models.QuestionType
		options []OptionRequest
		wantErr bool
	}{
		{
			name:    "single with one correct",
			qType:   models.SingleCorrect,
			options: []OptionRequest{{Text: "A", IsCorrect: true}, {Text: "B"}},
		},
		{
			name:    "single with two correct",
			qType:   models.SingleCorrect,
			options: []OptionRequest{{Text: "A", IsCorrect: true}, {Text: "B", IsCorrect: true}},
			wantErr: true,
		},
		{
			name:    "multiple without correct",
			qType:   models.MultipleCorrect,
			options: []OptionRequest{{Text: "A"}, {Text: "B"}},
			wantErr: true,
		},
		{
			name:    "true false literal options",
			qType:   models.TrueFalse,
			options: []OptionRequest{{Text: "true"}, {Text: "false", IsCorrect: true}},
		},
		{
			name:    "true false with capitalised options",
			qType:   models.TrueFalse,
			options: []OptionRequest{{Text: "True", IsCorrect: true}, {Text: "False"}},
			wantErr: true,
		},
		{
			name:    "duplicate options",
			qType:   models.MultipleCorrect,
			options: []OptionRequest{{Text: "A", IsCorrect: true}, {Text: "A"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateQuestion(tt.qType, tt.options)
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestBusinessValidator_ValidateQuizUpdate(t *testing.T) {
	bv := New().Business()
	existing := &models.Quiz{Type: models.QuizTypeQuiz}
	assignment := models.QuizTypeAssignment

	assert.Empty(t, bv.ValidateQuizUpdate(&QuizUpdateRequest{Type: &assignment}, existing, 0))
	assert.NotEmpty(t, bv.ValidateQuizUpdate(&QuizUpdateRequest{Type: &assignment}, existing, 2))
}
