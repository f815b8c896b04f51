package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

const (
	owner   = "instructor-1"
	learner = "student-1"
)

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}
func (stubUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return &models.User{ID: email, Email: email}, nil
}
func (stubUsers) HasRole(context.Context, string, models.UserRole) (bool, error) {
	return true, nil
}

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher

	quizzes   QuizService
	questions QuestionService
	attempts  AttemptService
}

func newTestEnv(t *testing.T, opts ...AttemptOption) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: stubUsers{}})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)

	return &testEnv{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		quizzes:   NewQuizService(repo, db, logger, v, publisher),
		questions: NewQuestionService(repo, db, logger, v, publisher),
		attempts:  NewAttemptService(repo, db, logger, v, publisher, opts...),
	}
}

// answersFor builds a raw submission keyed by question id.
func answersFor(t *testing.T, values map[uint]interface{}) map[string]json.RawMessage {
	t.Helper()
	raw := make(map[string]json.RawMessage, len(values))
	for id, v := range values {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		raw[strconv.FormatUint(uint64(id), 10)] = b
	}
	return raw
}

// allCorrect answers every question of the seeded quiz correctly.
func allCorrect(t *testing.T, quiz *models.Quiz) map[string]json.RawMessage {
	return answersFor(t, map[uint]interface{}{
		quiz.Questions[0].ID: "Mitochondria",
		quiz.Questions[1].ID: []string{"Lysosome", "Golgi"},
		quiz.Questions[2].ID: "true",
	})
}
