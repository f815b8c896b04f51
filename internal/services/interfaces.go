package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/grading"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type QuestionRequest = validator.QuestionRequest

type QuizResponse struct {
	*models.Quiz
	CanEdit      bool  `json:"can_edit"`
	AttemptCount int64 `json:"attempt_count"`
}

type QuizListResponse struct {
	Quizzes []*models.Quiz `json:"quizzes"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type QuestionResponse struct {
	*models.Question
	QuizTotalMarks int `json:"quiz_total_marks"`
}

// ===== ATTEMPT RELATED DTOs =====

type AttemptStatusResponse struct {
	LatestAttempt *models.QuizAttempt `json:"latestAttempt"`
	HasAttempted  bool                `json:"hasAttempted"`
	CanRetake     bool                `json:"canRetake"`
	QuizVersion   time.Time           `json:"quizVersion"`

	AttemptsUsed      int64  `json:"attemptsUsed"`
	AttemptsRemaining *int64 `json:"attemptsRemaining"` // nil when unlimited
	CanStart          bool   `json:"canStart"`
}

// ClientQuiz is the quiz as handed to the learner when an attempt starts.
type ClientQuiz struct {
	ID           uint             `json:"id"`
	Title        string           `json:"title"`
	TimeLimit    *int             `json:"timeLimit"`
	TotalMarks   int              `json:"totalMarks"`
	PassingMarks int              `json:"passingMarks"`
	Type         models.QuizType  `json:"type"`
	Questions    []ClientQuestion `json:"questions"`
}

type ClientQuestion struct {
	ID       uint                `json:"id"`
	Question string              `json:"question"`
	Type     models.QuestionType `json:"type"`
	Marks    int                 `json:"marks"`
	Options  []string            `json:"options"`
	// CorrectAnswer is a string, or []string for multiple_correct
	CorrectAnswer interface{} `json:"correctAnswer"`
}

type StartAttemptResponse struct {
	AttemptID     uint        `json:"attemptId"`
	AttemptNumber int         `json:"attemptNumber"`
	StartedAt     time.Time   `json:"startedAt"`
	Quiz          *ClientQuiz `json:"quiz"`
}

// SubmitAttemptRequest is graded leniently: missing or null answers score zero.
type SubmitAttemptRequest struct {
	Answers   map[string]json.RawMessage `json:"answers"`
	TimeTaken int                        `json:"timeTaken" validate:"min=0"`
}

type SubmitAttemptResponse struct {
	AttemptID     uint                     `json:"attemptId"`
	AttemptNumber int                      `json:"attemptNumber"`
	Score         int                      `json:"score"`
	TotalPoints   int                      `json:"totalPoints"`
	Percentage    int                      `json:"percentage"`
	Passed        bool                     `json:"passed"`
	CompletedAt   time.Time                `json:"completedAt"`
	Results       []grading.QuestionResult `json:"results"`
	Warnings      []grading.Warning        `json:"warnings,omitempty"`
}

type AttemptResponse struct {
	*models.QuizAttempt
	Percentage int `json:"percentage"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type GradePreviewRequest struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

// SweepResult summarises one stale-attempt sweep.
type SweepResult struct {
	Scanned   int   `json:"scanned"`
	Abandoned int64 `json:"abandoned"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string, role models.UserRole) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string, role models.UserRole) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string, role models.UserRole) error
	List(ctx context.Context, filters repositories.QuizFilters, userID string, role models.UserRole) (*QuizListResponse, error)
}

type QuestionService interface {
	Add(ctx context.Context, quizID uint, req *QuestionRequest, userID string, role models.UserRole) (*QuestionResponse, error)
	Update(ctx context.Context, quizID, questionID uint, req *QuestionRequest, userID string, role models.UserRole) (*QuestionResponse, error)
	Delete(ctx context.Context, quizID, questionID uint, userID string, role models.UserRole) error
}

type AttemptService interface {
	GetAttemptStatus(ctx context.Context, quizID uint, userID string) (*AttemptStatusResponse, error)
	StartAttempt(ctx context.Context, quizID uint, userID string) (*StartAttemptResponse, error)
	SubmitAttempt(ctx context.Context, quizID uint, req *SubmitAttemptRequest, userID string) (*SubmitAttemptResponse, error)

	GetAttempt(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error)
	ListMyAttempts(ctx context.Context, quizID uint, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	ListQuizAttempts(ctx context.Context, quizID uint, requesterID string, role models.UserRole, filters repositories.AttemptFilters) (*AttemptListResponse, error)

	// SweepStaleAttempts abandons open attempts that can no longer be submitted in time.
	SweepStaleAttempts(ctx context.Context, now time.Time) (*SweepResult, error)
}

type GradingService interface {
	Preview(ctx context.Context, quizID uint, req *GradePreviewRequest, userID string, role models.UserRole) (*grading.Result, error)
}

type ExportService interface {
	// ExportQuizAttempts renders completed attempts as an xlsx workbook.
	ExportQuizAttempts(ctx context.Context, quizID uint, requesterID string, role models.UserRole) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Quiz() QuizService
	Question() QuestionService
	Attempt() AttemptService
	Grading() GradingService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
