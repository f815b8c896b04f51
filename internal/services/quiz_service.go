package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz", "title", req.Title, "chapter_id", req.ChapterID, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		ChapterID:    req.ChapterID,
		CourseID:     req.CourseID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		TimeLimit:    req.TimeLimit,
		PassingMarks: req.PassingMarks,
		MaxAttempts:  req.MaxAttempts,
		IsActive:     true,
		CreatedBy:    creatorID,
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}

	if err := s.repo.Quiz().Create(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID, "creator_id", creatorID)

	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string, role models.UserRole) (*QuizResponse, error) {
	quiz, err := getQuizWithQuestions(ctx, s.repo, nil, id)
	if err != nil {
		return nil, err
	}

	canEdit := canManageQuiz(quiz, userID, role)
	// Inactive quizzes are hidden from everyone but their managers
	if !quiz.IsActive && !canEdit {
		return nil, ErrQuizNotFound
	}

	response := &QuizResponse{Quiz: quiz, CanEdit: canEdit}
	if canEdit {
		count, err := s.repo.Attempt().CountByQuiz(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		response.AttemptCount = count
	}

	return response, nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string, role models.UserRole) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var quiz *models.Quiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quiz, err = getQuiz(ctx, s.repo, tx, id)
		if err != nil {
			return err
		}
		if err := ensureCanManageQuiz(quiz, userID, role, "update"); err != nil {
			return err
		}

		attemptCount, err := s.repo.Attempt().CountByQuiz(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if errs := s.validator.Business().ValidateQuizUpdate(req, quiz, attemptCount); len(errs) > 0 {
			return errs
		}

		applyQuizUpdate(quiz, req)
		return s.repo.Quiz().Update(ctx, tx, quiz)
	})
	if err != nil {
		return nil, err
	}

	s.repo.Quiz().InvalidateCache(ctx, id)
	publishEvent(ctx, s.publisher, s.logger, events.QuizUpdated, userID, events.QuizUpdatedData{
		QuizID:     quiz.ID,
		UpdatedBy:  userID,
		TotalMarks: quiz.TotalMarks,
		Change:     "quiz",
		UpdatedAt:  quiz.UpdatedAt,
	})

	s.logger.Info("Quiz updated successfully", "quiz_id", id)

	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string, role models.UserRole) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	quiz, err := getQuiz(ctx, s.repo, nil, id)
	if err != nil {
		return err
	}
	if err := ensureCanManageQuiz(quiz, userID, role, "delete"); err != nil {
		return err
	}

	if err := s.repo.Quiz().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.QuizUpdated, userID, events.QuizUpdatedData{
		QuizID:    id,
		UpdatedBy: userID,
		Change:    "deleted",
		UpdatedAt: time.Now(),
	})

	s.logger.Info("Quiz deleted successfully", "quiz_id", id)
	return nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, userID string, role models.UserRole) (*QuizListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	// Learners only ever see active quizzes
	if role == models.RoleStudent {
		active := true
		filters.IsActive = &active
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return &QuizListResponse{
		Quizzes: quizzes,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

func applyQuizUpdate(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Type != nil {
		quiz.Type = *req.Type
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.PassingMarks != nil {
		quiz.PassingMarks = *req.PassingMarks
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
}
