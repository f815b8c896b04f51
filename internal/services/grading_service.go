package services

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/grading"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type gradingService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewGradingService(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) GradingService {
	return &gradingService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// Preview grades a sample submission against the current quiz content
// without recording an attempt.
func (s *gradingService) Preview(ctx context.Context, quizID uint, req *GradePreviewRequest, userID string, role models.UserRole) (*grading.Result, error) {
	s.logger.Info("Previewing grade", "quiz_id", quizID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := getQuizWithQuestions(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, err
	}
	if err := ensureCanManageQuiz(quiz, userID, role, "preview_grading"); err != nil {
		return nil, err
	}

	sheet, warnings := grading.DecodeAnswers(quiz.Questions, req.Answers)
	result := grading.Evaluate(quiz.Questions, sheet, quiz.PassingMarks)
	result.Warnings = warnings

	return &result, nil
}
