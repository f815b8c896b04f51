package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	ChapterID *uint            `json:"chapter_id"`
	CourseID  *uint            `json:"course_id"`
	CreatedBy *string          `json:"created_by"`
	Type      *models.QuizType `json:"type"`
	IsActive  *bool            `json:"is_active"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`    // "created_at", "updated_at", "title"
	SortOrder string           `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	UserID    *string               `json:"user_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "completed_at", "score", "attempt_number"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====
// Every method accepts an optional transaction; nil means the default connection.

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	// GetByIDWithQuestions loads questions and options in display order.
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)

	// RecalculateTotalMarks rewrites total_marks from question points and
	// bumps updated_at. Returns the new total.
	RecalculateTotalMarks(ctx context.Context, tx *gorm.DB, quizID uint) (int, error)
	InvalidateCache(ctx context.Context, quizID uint)
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]models.Question, error)
	// Update saves the question and replaces its options.
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	SumPointsByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int, error)
	NextOrderIndex(ctx context.Context, tx *gorm.DB, quizID uint) (int, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	// Complete persists the graded submission only while the attempt is still
	// in progress. It returns false when another writer closed it first.
	Complete(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (bool, error)

	// GetLatest orders by completion (or creation) time, newest first.
	GetLatest(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error)
	GetInProgress(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error)
	CountByQuizAndUser(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error)
	CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
	NextAttemptNumber(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int, error)

	ListByQuizAndUser(ctx context.Context, tx *gorm.DB, quizID uint, userID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	// AbandonInProgress closes any open attempt for the learner on this quiz.
	AbandonInProgress(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error)
	// ListInProgressStartedBefore returns open attempts with their quiz preloaded.
	ListInProgressStartedBefore(ctx context.Context, tx *gorm.DB, before time.Time, limit int) ([]*models.QuizAttempt, error)
	MarkAbandoned(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error)
}
