package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	BaseHandler
	parser   TokenParser
	userRepo repositories.UserRepository
}

func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return newCasdoorAuthMiddleware(client, userRepo, logger)
}

func newCasdoorAuthMiddleware(parser TokenParser, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		BaseHandler: NewBaseHandler(logger),
		parser:      parser,
		userRepo:    userRepo,
	}
}

// AuthMiddleware rejects requests without a valid bearer token.
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			cam.respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed authorization header", nil)
			c.Abort()
			return
		}

		claims, err := cam.parser.ParseJwtToken(token)
		if err != nil {
			cam.respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Sprintf("invalid token: %v", err), nil)
			c.Abort()
			return
		}

		user, err := cam.extractUserFromClaims(c.Request.Context(), claims)
		if err != nil {
			cam.respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Sprintf("failed to extract user info: %v", err), nil)
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireRoleMiddleware allows the listed roles; admins always pass.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			cam.respondError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			c.Abort()
			return
		}

		if role != models.RoleAdmin && !containsRole(requiredRoles, role) {
			cam.respondError(c, http.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles), nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	userID := claims.Id
	if userID == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, userID)
	if err != nil {
		cam.logger.Warn("Falling back to token claims for user", "user_id", userID, "error", err)
		user = createUserFromClaims(claims)
	}
	return user, nil
}

func createUserFromClaims(claims *casdoorsdk.Claims) *models.User {
	role := casdoor.ResolveRole(&claims.User)
	if role == models.RoleStudent {
		role = casdoor.MapRoleName(claims.User.Type)
	}

	var avatar *string
	if claims.User.Avatar != "" {
		avatar = &claims.User.Avatar
	}

	now := time.Now()
	return &models.User{
		ID:            claims.Id,
		FullName:      claims.User.DisplayName,
		Email:         claims.User.Email,
		Role:          role,
		AvatarURL:     avatar,
		EmailVerified: claims.User.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func containsRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
	c.Set("user_email", user.Email)
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
