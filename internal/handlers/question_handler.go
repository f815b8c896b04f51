package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// AddQuestion appends a question to a quiz
// @Summary Add question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.QuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions [post]
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.QuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Adding question", "quiz_id", quizID)

	question, err := h.questionService.Add(c.Request.Context(), quizID, &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion replaces a question and its options
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Param question body services.QuestionRequest true "Question data"
// @Success 200 {object} services.QuestionResponse
// @Router /quizzes/{id}/questions/{question_id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.QuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating question", "quiz_id", quizID, "question_id", questionID)

	question, err := h.questionService.Update(c.Request.Context(), quizID, questionID, &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question from a quiz
// @Summary Delete question
// @Tags questions
// @Param id path uint true "Quiz ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Router /quizzes/{id}/questions/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting question", "quiz_id", quizID, "question_id", questionID)

	if err := h.questionService.Delete(c.Request.Context(), quizID, questionID, userID, role); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted successfully"})
}
