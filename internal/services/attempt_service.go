package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/grading"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// SweepPolicy decides when an open attempt is considered stale.
type SweepPolicy struct {
	// Grace is added to a timed quiz's limit before its attempts are abandoned
	Grace time.Duration
	// UntimedMaxAge bounds attempts on quizzes without a time limit
	UntimedMaxAge time.Duration
}

var DefaultSweepPolicy = SweepPolicy{
	Grace:         5 * time.Minute,
	UntimedMaxAge: 24 * time.Hour,
}

type AttemptOption func(*attemptService)

func WithSweepPolicy(policy SweepPolicy) AttemptOption {
	return func(s *attemptService) { s.sweep = policy }
}

func WithClock(now func() time.Time) AttemptOption {
	return func(s *attemptService) { s.now = now }
}

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	sweep SweepPolicy
	now   func() time.Time
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, opts ...AttemptOption) AttemptService {
	s := &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		sweep:     DefaultSweepPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) GetAttemptStatus(ctx context.Context, quizID uint, userID string) (*AttemptStatusResponse, error) {
	quiz, err := getQuiz(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, err
	}

	latest, err := s.getLatestAttempt(ctx, nil, quizID, userID)
	if err != nil {
		return nil, err
	}

	used, err := s.repo.Attempt().CountByQuizAndUser(ctx, nil, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	status := &AttemptStatusResponse{
		LatestAttempt: latest,
		HasAttempted:  latest != nil,
		CanRetake:     canRetake(quiz, latest),
		QuizVersion:   quiz.UpdatedAt,
		AttemptsUsed:  used,
		CanStart:      quiz.IsActive && allowsNewAttempt(quiz, used, latest),
	}
	if quiz.MaxAttempts > 0 {
		remaining := max(int64(quiz.MaxAttempts)-used, 0)
		status.AttemptsRemaining = &remaining
	}

	return status, nil
}

func (s *attemptService) StartAttempt(ctx context.Context, quizID uint, userID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting quiz attempt", "quiz_id", quizID, "user_id", userID)

	quiz, err := getQuizWithQuestions(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, ErrQuizNotActive
	}

	var attempt *models.QuizAttempt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.checkAttemptPolicy(ctx, tx, quizID, userID)
		if err != nil {
			return err
		}

		abandoned, err := s.repo.Attempt().AbandonInProgress(ctx, tx, quizID, userID)
		if err != nil {
			return fmt.Errorf("failed to abandon open attempts: %w", err)
		}
		if abandoned > 0 {
			s.logger.Info("Abandoned previous open attempt", "quiz_id", quizID, "user_id", userID, "count", abandoned)
		}

		attempt, err = s.createAttempt(ctx, tx, current.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.AttemptStarted, userID, events.AttemptStartedData{
		AttemptID:     attempt.ID,
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
	})

	s.logger.Info("Quiz attempt started successfully",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"quiz_id", quizID,
		"user_id", userID)

	return &StartAttemptResponse{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		Quiz:          toClientQuiz(quiz),
	}, nil
}

func (s *attemptService) SubmitAttempt(ctx context.Context, quizID uint, req *SubmitAttemptRequest, userID string) (*SubmitAttemptResponse, error) {
	s.logger.Info("Submitting quiz attempt",
		"quiz_id", quizID,
		"user_id", userID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := getQuizWithQuestions(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, err
	}

	sheet, warnings := grading.DecodeAnswers(quiz.Questions, req.Answers)
	for _, w := range warnings {
		s.logger.Warn("Submitted answer ignored or coerced",
			"quiz_id", quizID,
			"user_id", userID,
			"question_id", w.QuestionID,
			"reason", w.Reason)
	}

	result := grading.Evaluate(quiz.Questions, sheet, quiz.PassingMarks)
	result.Warnings = warnings

	if req.Answers == nil {
		req.Answers = map[string]json.RawMessage{}
	}
	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	completedAt := s.now()
	var attempt *models.QuizAttempt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempt().GetInProgress(ctx, tx, quizID, userID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get open attempt: %w", err)
		}

		// Submitting without starting opens an attempt under the same policy
		if attempt == nil {
			if !quiz.IsActive {
				return ErrQuizNotActive
			}
			if _, err := s.checkAttemptPolicy(ctx, tx, quizID, userID); err != nil {
				return err
			}
			if attempt, err = s.createAttempt(ctx, tx, quizID, userID); err != nil {
				return err
			}
		}

		attempt.Answers = answers
		attempt.Score = result.Score
		attempt.TotalPoints = result.TotalPoints
		attempt.IsPassed = result.Passed
		attempt.TimeTaken = req.TimeTaken
		attempt.CompletedAt = &completedAt

		completed, err := s.repo.Attempt().Complete(ctx, tx, attempt)
		if err != nil {
			return err
		}
		if !completed {
			return ErrAttemptAlreadySubmitted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.AttemptSubmitted, userID, events.AttemptSubmittedData{
		AttemptID:   attempt.ID,
		QuizID:      quizID,
		QuizTitle:   quiz.Title,
		UserID:      userID,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Percentage:  result.Percentage,
		Passed:      result.Passed,
		CompletedAt: completedAt,
	})

	s.logger.Info("Quiz attempt submitted successfully",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"user_id", userID,
		"score", result.Score,
		"total_points", result.TotalPoints,
		"passed", result.Passed)

	return &SubmitAttemptResponse{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         result.Score,
		TotalPoints:   result.TotalPoints,
		Percentage:    result.Percentage,
		Passed:        result.Passed,
		CompletedAt:   completedAt,
		Results:       result.Questions,
		Warnings:      warnings,
	}, nil
}

// ===== READ OPERATIONS =====

func (s *attemptService) GetAttempt(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID && role != models.RoleAdmin {
		quiz, err := getQuiz(ctx, s.repo, nil, attempt.QuizID)
		if err != nil && !errors.Is(err, ErrQuizNotFound) {
			return nil, err
		}
		if quiz == nil || quiz.CreatedBy != userID {
			return nil, NewPermissionError(userID, attemptID, "attempt", "view", "not owned by user")
		}
	}

	return toAttemptResponse(attempt), nil
}

func (s *attemptService) ListMyAttempts(ctx context.Context, quizID uint, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	if _, err := getQuiz(ctx, s.repo, nil, quizID); err != nil {
		return nil, err
	}

	filters = normalizeAttemptFilters(filters)
	attempts, total, err := s.repo.Attempt().ListByQuizAndUser(ctx, nil, quizID, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return toAttemptList(attempts, total, filters), nil
}

func (s *attemptService) ListQuizAttempts(ctx context.Context, quizID uint, requesterID string, role models.UserRole, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	quiz, err := getQuiz(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, err
	}
	if err := ensureCanManageQuiz(quiz, requesterID, role, "view_attempts"); err != nil {
		return nil, err
	}

	filters = normalizeAttemptFilters(filters)
	attempts, total, err := s.repo.Attempt().ListByQuiz(ctx, nil, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return toAttemptList(attempts, total, filters), nil
}

// ===== MAINTENANCE =====

func (s *attemptService) SweepStaleAttempts(ctx context.Context, now time.Time) (*SweepResult, error) {
	// Nothing younger than the grace period can be stale
	open, err := s.repo.Attempt().ListInProgressStartedBefore(ctx, nil, now.Add(-s.sweep.Grace), 0)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(open))
	for _, attempt := range open {
		if s.isStale(attempt, now) {
			ids = append(ids, attempt.ID)
		}
	}

	abandoned, err := s.repo.Attempt().MarkAbandoned(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to abandon stale attempts: %w", err)
	}

	if abandoned > 0 {
		s.logger.Info("Abandoned stale attempts", "scanned", len(open), "abandoned", abandoned)
	}

	return &SweepResult{Scanned: len(open), Abandoned: abandoned}, nil
}
