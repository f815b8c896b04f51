package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *questionService) Add(ctx context.Context, quizID uint, req *QuestionRequest, userID string, role models.UserRole) (*QuestionResponse, error) {
	s.logger.Info("Adding question", "quiz_id", quizID, "type", req.Type, "user_id", userID)

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	question := &models.Question{
		QuizID:  quizID,
		Text:    req.Text,
		Type:    req.Type,
		Points:  req.Points,
		Options: buildOptions(req.Options),
	}

	var total int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := getQuiz(ctx, s.repo, tx, quizID)
		if err != nil {
			return err
		}
		if err := ensureCanManageQuiz(quiz, userID, role, "add_question"); err != nil {
			return err
		}

		if req.OrderIndex != nil {
			question.OrderIndex = *req.OrderIndex
		} else {
			next, err := s.repo.Question().NextOrderIndex(ctx, tx, quizID)
			if err != nil {
				return fmt.Errorf("failed to compute order index: %w", err)
			}
			question.OrderIndex = next
		}

		if err := s.repo.Question().Create(ctx, tx, question); err != nil {
			return err
		}

		total, err = s.repo.Quiz().RecalculateTotalMarks(ctx, tx, quizID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterQuizContentChange(ctx, quizID, userID, total, "question_added")

	s.logger.Info("Question added successfully", "quiz_id", quizID, "question_id", question.ID, "total_marks", total)

	return &QuestionResponse{Question: question, QuizTotalMarks: total}, nil
}

func (s *questionService) Update(ctx context.Context, quizID, questionID uint, req *QuestionRequest, userID string, role models.UserRole) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "quiz_id", quizID, "question_id", questionID, "user_id", userID)

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	var question *models.Question
	var total int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := getQuiz(ctx, s.repo, tx, quizID)
		if err != nil {
			return err
		}
		if err := ensureCanManageQuiz(quiz, userID, role, "update_question"); err != nil {
			return err
		}

		question, err = s.getQuestion(ctx, tx, quizID, questionID)
		if err != nil {
			return err
		}

		question.Text = req.Text
		question.Type = req.Type
		question.Points = req.Points
		if req.OrderIndex != nil {
			question.OrderIndex = *req.OrderIndex
		}
		question.Options = buildOptions(req.Options)

		if err := s.repo.Question().Update(ctx, tx, question); err != nil {
			return err
		}

		total, err = s.repo.Quiz().RecalculateTotalMarks(ctx, tx, quizID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterQuizContentChange(ctx, quizID, userID, total, "question_updated")

	s.logger.Info("Question updated successfully", "quiz_id", quizID, "question_id", questionID)

	return &QuestionResponse{Question: question, QuizTotalMarks: total}, nil
}

func (s *questionService) Delete(ctx context.Context, quizID, questionID uint, userID string, role models.UserRole) error {
	s.logger.Info("Deleting question", "quiz_id", quizID, "question_id", questionID, "user_id", userID)

	var total int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := getQuiz(ctx, s.repo, tx, quizID)
		if err != nil {
			return err
		}
		if err := ensureCanManageQuiz(quiz, userID, role, "delete_question"); err != nil {
			return err
		}

		if _, err := s.getQuestion(ctx, tx, quizID, questionID); err != nil {
			return err
		}

		if err := s.repo.Question().Delete(ctx, tx, questionID); err != nil {
			return err
		}

		total, err = s.repo.Quiz().RecalculateTotalMarks(ctx, tx, quizID)
		return err
	})
	if err != nil {
		return err
	}

	s.afterQuizContentChange(ctx, quizID, userID, total, "question_deleted")

	s.logger.Info("Question deleted successfully", "quiz_id", quizID, "question_id", questionID)
	return nil
}

// ===== HELPERS =====

func (s *questionService) validateRequest(req *QuestionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if errs := s.validator.Business().ValidateQuestion(req.Type, req.Options); len(errs) > 0 {
		return errs
	}
	return nil
}

// getQuestion loads a question and checks it belongs to the quiz.
func (s *questionService) getQuestion(ctx context.Context, tx *gorm.DB, quizID, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, tx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.QuizID != quizID {
		return nil, ErrQuestionNotFound
	}
	return question, nil
}

// afterQuizContentChange runs once the transaction has committed.
func (s *questionService) afterQuizContentChange(ctx context.Context, quizID uint, userID string, total int, change string) {
	s.repo.Quiz().InvalidateCache(ctx, quizID)

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		s.logger.Warn("Failed to reload quiz after change", "quiz_id", quizID, "error", err)
		return
	}

	publishEvent(ctx, s.publisher, s.logger, events.QuizUpdated, userID, events.QuizUpdatedData{
		QuizID:     quizID,
		UpdatedBy:  userID,
		TotalMarks: total,
		Change:     change,
		UpdatedAt:  quiz.UpdatedAt,
	})
}

func buildOptions(reqs []validator.OptionRequest) []models.Option {
	options := make([]models.Option, 0, len(reqs))
	for i, opt := range reqs {
		options = append(options, models.Option{
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			OrderIndex: i + 1,
		})
	}
	return options
}
