package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "user_id", c.GetString("user_id"))
	utils.GinLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.GinLogger(c, h.logger).Error(msg, args...)
}

// respondError writes the standard error envelope.
func (h *BaseHandler) respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// currentUser returns the authenticated caller; it responds 401 and returns
// ok=false when the auth middleware did not run.
func (h *BaseHandler) currentUser(c *gin.Context) (string, models.UserRole, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		h.respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated", nil)
		return "", "", false
	}
	role, err := GetUserRoleFromContext(c)
	if err != nil {
		role = models.RoleStudent
	}
	return userID, role, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param, c.Param(param))
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) parseUintQuery(c *gin.Context, param string) *uint {
	value, err := strconv.ParseUint(c.Query(param), 10, 32)
	if err != nil {
		return nil
	}
	v := uint(value)
	return &v
}

// parsePage converts page/size query parameters to limit/offset.
func (h *BaseHandler) parsePage(c *gin.Context) (limit, offset int) {
	page := max(h.parseIntQuery(c, "page", 1), 1)
	size := h.parseIntQuery(c, "size", 20)
	return size, (page - 1) * size
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err.Error())
		return false
	}
	return true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.respondError(c, http.StatusForbidden, "FORBIDDEN", "Access denied", map[string]interface{}{
			"resource": permissionError.ResourceType,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.respondError(c, http.StatusUnprocessableEntity, "BUSINESS_RULE", businessRuleError.Message, map[string]interface{}{
			"rule": businessRuleError.Rule,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		h.respondError(c, http.StatusNotFound, "QUIZ_NOT_FOUND", "Quiz not found", nil)
	case errors.Is(err, services.ErrQuestionNotFound):
		h.respondError(c, http.StatusNotFound, "QUESTION_NOT_FOUND", "Question not found", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.respondError(c, http.StatusNotFound, "ATTEMPT_NOT_FOUND", "Attempt not found", nil)
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		h.respondError(c, http.StatusConflict, "ATTEMPT_LIMIT_EXCEEDED", err.Error(), nil)
	case errors.Is(err, services.ErrAttemptConflict):
		h.respondError(c, http.StatusConflict, "ATTEMPT_CONFLICT", err.Error(), nil)
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		h.respondError(c, http.StatusConflict, "ATTEMPT_ALREADY_SUBMITTED", err.Error(), nil)
	case errors.Is(err, services.ErrQuizNotActive):
		h.respondError(c, http.StatusUnprocessableEntity, "QUIZ_NOT_ACTIVE", err.Error(), nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err.Error())
	}
}
