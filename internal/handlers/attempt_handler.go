package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	exportService  services.ExportService
}

func NewAttemptHandler(attemptService services.AttemptService, exportService services.ExportService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		exportService:  exportService,
	}
}

// GetAttemptStatus reports the caller's latest attempt and whether a retake is allowed
// @Summary Get attempt status
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.AttemptStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/attempts/status [get]
func (h *AttemptHandler) GetAttemptStatus(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	status, err := h.attemptService.GetAttemptStatus(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// StartAttempt opens a new attempt and returns the quiz content
// @Summary Start attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "quiz_id", quizID)

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt grades and records the caller's answers
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param attempt body services.SubmitAttemptRequest true "Answers keyed by question id"
// @Success 200 {object} services.SubmitAttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id}/attempts/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting quiz attempt", "quiz_id", quizID, "answers_count", len(req.Answers))

	result, err := h.attemptService.SubmitAttempt(c.Request.Context(), quizID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyAttempts returns the caller's attempt history for a quiz
// @Summary My attempts
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param status query string false "in_progress, completed or abandoned"
// @Success 200 {object} services.AttemptListResponse
// @Router /quizzes/{id}/attempts/me [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListMyAttempts(c.Request.Context(), quizID, userID, h.parseAttemptFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// ListQuizAttempts returns every learner's attempts for the quiz owner
// @Summary Quiz attempts
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param user_id query string false "Filter by learner"
// @Success 200 {object} services.AttemptListResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/attempts [get]
func (h *AttemptHandler) ListQuizAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := h.parseAttemptFilters(c)
	if learner := c.Query("user_id"); learner != "" {
		filters.UserID = &learner
	}

	attempts, err := h.attemptService.ListQuizAttempts(c.Request.Context(), quizID, userID, role, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// GetAttempt returns one attempt
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), attemptID, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ExportQuizAttempts downloads completed attempts as an xlsx workbook
// @Summary Export attempts
// @Tags attempts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/attempts/export [get]
func (h *AttemptHandler) ExportQuizAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting quiz attempts", "quiz_id", quizID)

	data, filename, err := h.exportService.ExportQuizAttempts(c.Request.Context(), quizID, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *AttemptHandler) parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	limit, offset := h.parsePage(c)
	filters := repositories.AttemptFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		s := models.AttemptStatus(status)
		filters.Status = &s
	}

	return filters
}
