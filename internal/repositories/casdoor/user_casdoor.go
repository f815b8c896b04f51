package casdoor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// userSource is the subset of the Casdoor client the repository needs.
type userSource interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetUserByEmail(email string) (*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userSource
	cache  *cache.CacheHelper
}

func NewUserCasdoor(cfg config.CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return newUserCasdoor(client, cache.NewCacheManager(redisClient).User)
}

func newUserCasdoor(client userSource, helper *cache.CacheHelper) *UserCasdoor {
	return &UserCasdoor{client: client, cache: helper}
}

// ===== CONVERSION METHODS =====

// ConvertUser converts a Casdoor user to the internal model
func ConvertUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		avatar = &casdoorUser.Avatar
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          ResolveRole(casdoorUser),
		AvatarURL:     avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// ResolveRole picks the primary role; admin wins over everything else.
func ResolveRole(user *casdoorsdk.User) models.UserRole {
	if user == nil {
		return models.RoleStudent
	}

	var roles []models.UserRole
	for _, r := range user.Roles {
		if r == nil {
			continue
		}
		mapped := MapRoleName(r.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	if user.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if slices.Contains(roles, models.RoleInstructor) {
		return models.RoleInstructor
	}
	return models.RoleStudent
}

func MapRoleName(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "teacher", "instructor":
		return models.RoleInstructor
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

// ===== READ OPERATIONS =====

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.lookup(ctx, fmt.Sprintf("id:%s", id), func() (*casdoorsdk.User, error) {
		return u.client.GetUserByUserId(id)
	})
}

func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.lookup(ctx, fmt.Sprintf("email:%s", email), func() (*casdoorsdk.User, error) {
		return u.client.GetUserByEmail(email)
	})
}

func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}

func (u *UserCasdoor) lookup(ctx context.Context, key string, fetch func() (*casdoorsdk.User, error)) (*models.User, error) {
	var cached models.User
	err := u.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "User cache read failed", "error", err, "key", key)
	}

	casdoorUser, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user %s: %w", key, repositories.ErrNotFound)
	}

	user := ConvertUser(casdoorUser)
	for _, k := range []string{"id:" + user.ID, "email:" + user.Email} {
		if err := u.cache.Set(ctx, k, user, cache.UserCacheConfig.TTL); err != nil {
			slog.WarnContext(ctx, "User cache write failed", "error", err, "key", k)
		}
	}
	return user, nil
}
