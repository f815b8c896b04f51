// Package testutil provides fixtures shared by repository, service and
// handler tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

// NewTestDB opens an isolated in-memory sqlite database with the schema migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database consistent
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, pkg.Migrate(db))
	return db
}

// QuizOption customises a quiz fixture.
type QuizOption func(*models.Quiz)

func WithMaxAttempts(n int) QuizOption {
	return func(q *models.Quiz) { q.MaxAttempts = n }
}

func WithType(t models.QuizType) QuizOption {
	return func(q *models.Quiz) { q.Type = t }
}

func WithTimeLimit(minutes int) QuizOption {
	return func(q *models.Quiz) { q.TimeLimit = &minutes }
}

func WithPassingMarks(p int) QuizOption {
	return func(q *models.Quiz) { q.PassingMarks = p }
}

func Inactive() QuizOption {
	return func(q *models.Quiz) { q.IsActive = false }
}

// SeedQuiz inserts an active quiz with three questions:
// a single_correct worth 2, a multiple_correct worth 3 and a true_false worth 1.
func SeedQuiz(t *testing.T, db *gorm.DB, owner string, opts ...QuizOption) *models.Quiz {
	t.Helper()

	quiz := &models.Quiz{
		ChapterID:    1,
		CourseID:     1,
		Title:        "Cell biology basics",
		Type:         models.QuizTypeQuiz,
		PassingMarks: 50,
		MaxAttempts:  1,
		IsActive:     true,
		CreatedBy:    owner,
		TotalMarks:   6,
		Questions: []models.Question{
			{
				Text: "Powerhouse of the cell?", Type: models.SingleCorrect, Points: 2, OrderIndex: 1,
				Options: []models.Option{
					{Text: "Nucleus", OrderIndex: 1},
					{Text: "Mitochondria", IsCorrect: true, OrderIndex: 2},
					{Text: "Ribosome", OrderIndex: 3},
				},
			},
			{
				Text: "Which are organelles?", Type: models.MultipleCorrect, Points: 3, OrderIndex: 2,
				Options: []models.Option{
					{Text: "Golgi", IsCorrect: true, OrderIndex: 1},
					{Text: "Lysosome", IsCorrect: true, OrderIndex: 2},
					{Text: "Plasma", OrderIndex: 3},
				},
			},
			{
				Text: "DNA is double stranded", Type: models.TrueFalse, Points: 1, OrderIndex: 3,
				Options: []models.Option{
					{Text: "true", IsCorrect: true, OrderIndex: 1},
					{Text: "false", OrderIndex: 2},
				},
			},
		},
	}
	for _, opt := range opts {
		opt(quiz)
	}

	require.NoError(t, db.Create(quiz).Error)
	return quiz
}
