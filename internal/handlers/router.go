package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type HandlerManager struct {
	serviceManager  services.ServiceManager
	quizHandler     *QuizHandler
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
	authMiddleware  *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return newHandlerManager(serviceManager, logger, NewCasdoorAuthMiddleware(casdoorConfig, userRepo, logger))
}

func newHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, auth *CasdoorAuthMiddleware) *HandlerManager {
	return &HandlerManager{
		serviceManager:  serviceManager,
		quizHandler:     NewQuizHandler(serviceManager.Quiz(), serviceManager.Grading(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), serviceManager.Export(), logger),
		authMiddleware:  auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())

	instructor := hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor)

	quizzes := v1.Group("/quizzes")
	{
		// Authoring - instructors and admins only
		quizzes.POST("", instructor, hm.quizHandler.CreateQuiz)
		quizzes.PUT("/:id", instructor, hm.quizHandler.UpdateQuiz)
		quizzes.DELETE("/:id", instructor, hm.quizHandler.DeleteQuiz)
		quizzes.POST("/:id/grade-preview", instructor, hm.quizHandler.PreviewGrade)

		quizzes.POST("/:id/questions", instructor, hm.questionHandler.AddQuestion)
		quizzes.PUT("/:id/questions/:question_id", instructor, hm.questionHandler.UpdateQuestion)
		quizzes.DELETE("/:id/questions/:question_id", instructor, hm.questionHandler.DeleteQuestion)

		// Viewing - all authenticated users
		quizzes.GET("", hm.quizHandler.ListQuizzes)
		quizzes.GET("/:id", hm.quizHandler.GetQuiz)

		// Attempt lifecycle
		quizzes.GET("/:id/attempts/status", hm.attemptHandler.GetAttemptStatus)
		quizzes.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
		quizzes.POST("/:id/attempts/submit", hm.attemptHandler.SubmitAttempt)
		quizzes.GET("/:id/attempts/me", hm.attemptHandler.ListMyAttempts)

		quizzes.GET("/:id/attempts", instructor, hm.attemptHandler.ListQuizAttempts)
		quizzes.GET("/:id/attempts/export", instructor, hm.attemptHandler.ExportQuizAttempts)
	}

	v1.GET("/attempts/:id", hm.attemptHandler.GetAttempt)
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"service":   "quiz-service",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "quiz-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
