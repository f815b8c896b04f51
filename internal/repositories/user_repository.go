package repositories

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// UserRepository reads users from the identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
