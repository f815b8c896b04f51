package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

func getQuiz(ctx context.Context, repo repositories.Repository, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByID(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func getQuizWithQuestions(ctx context.Context, repo repositories.Repository, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByIDWithQuestions(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

// canManageQuiz: the creating instructor or any admin.
func canManageQuiz(quiz *models.Quiz, userID string, role models.UserRole) bool {
	return role == models.RoleAdmin || quiz.CreatedBy == userID
}

func ensureCanManageQuiz(quiz *models.Quiz, userID string, role models.UserRole, action string) error {
	if !canManageQuiz(quiz, userID, role) {
		return NewPermissionError(userID, quiz.ID, "quiz", action, "not owner or insufficient permissions")
	}
	return nil
}

// publishEvent is fire-and-forget: delivery failures are logged, never returned.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, userID string, payload interface{}) {
	if publisher == nil {
		return
	}
	event, err := events.NewEvent(eventType, userID, payload)
	if err == nil {
		err = publisher.Publish(ctx, event)
	}
	if err != nil {
		logger.Error("Failed to publish event", "type", eventType, "error", err)
	}
}
