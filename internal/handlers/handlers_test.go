package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// Tokens are the user ids themselves.
type fakeParser struct{}

func (fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if token == "expired" {
		return nil, errors.New("token is expired")
	}
	return &casdoorsdk.Claims{User: casdoorsdk.User{Id: token, Type: "student"}}, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := f.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

var users = fakeUsers{
	"instructor":   {ID: "instructor", Role: models.RoleInstructor},
	"instructor-2": {ID: "instructor-2", Role: models.RoleInstructor},
	"admin":        {ID: "admin", Role: models.RoleAdmin},
	"alice":        {ID: "alice", Role: models.RoleStudent},
}

type testServer struct {
	router *gin.Engine
	quiz   *models.Quiz
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: users})
	sm := services.NewDefaultServiceManager(db, repo, slogger, validator.New(), events.NewMockEventPublisher(slogger))
	require.NoError(t, sm.Initialize(context.Background()))

	router := gin.New()
	SetupMiddleware(router, logger)
	newHandlerManager(sm, logger, newCasdoorAuthMiddleware(fakeParser{}, users, logger)).SetupRoutes(router)

	return &testServer{router: router, quiz: testutil.SeedQuiz(t, db, "instructor")}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func (s *testServer) quizPath(suffix string) string {
	return fmt.Sprintf("/api/v1/quizzes/%d%s", s.quiz.ID, suffix)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"missing token", http.MethodGet, "/api/v1/quizzes", "", http.StatusUnauthorized},
		{"invalid token", http.MethodGet, "/api/v1/quizzes", "expired", http.StatusUnauthorized},
		{"student may list", http.MethodGet, "/api/v1/quizzes", "alice", http.StatusOK},
		{"student may not author", http.MethodPost, "/api/v1/quizzes", "alice", http.StatusForbidden},
		{"student may not export", http.MethodGet, s.quizPath("/attempts/export"), "alice", http.StatusForbidden},
		{"unknown user falls back to claims", http.MethodGet, "/api/v1/quizzes", "stranger", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAttemptFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, s.quizPath("/attempts/status"), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status services.AttemptStatusResponse
	decode(t, w, &status)
	assert.True(t, status.CanStart)
	assert.False(t, status.HasAttempted)

	w = s.do(t, http.MethodPost, s.quizPath("/attempts"), "alice", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var started map[string]interface{}
	decode(t, w, &started)
	quiz := started["quiz"].(map[string]interface{})
	questions := quiz["questions"].([]interface{})
	require.Len(t, questions, 3)
	assert.Equal(t, "Mitochondria", questions[0].(map[string]interface{})["correctAnswer"])

	answers := map[string]interface{}{
		strconv.FormatUint(uint64(s.quiz.Questions[0].ID), 10): "Mitochondria",
		strconv.FormatUint(uint64(s.quiz.Questions[1].ID), 10): []string{"Golgi", "Lysosome"},
		strconv.FormatUint(uint64(s.quiz.Questions[2].ID), 10): "false",
	}
	w = s.do(t, http.MethodPost, s.quizPath("/attempts/submit"), "alice", map[string]interface{}{
		"answers": answers, "timeTaken": 42,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var submitted services.SubmitAttemptResponse
	decode(t, w, &submitted)
	assert.Equal(t, 5, submitted.Score)
	assert.Equal(t, 83, submitted.Percentage)
	assert.True(t, submitted.Passed)

	w = s.do(t, http.MethodPost, s.quizPath("/attempts"), "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var errResp ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "ATTEMPT_LIMIT_EXCEEDED", errResp.Code)
	assert.Equal(t, s.quizPath("/attempts"), errResp.Path)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/attempts/%d", submitted.AttemptID), "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/attempts/%d", submitted.AttemptID), "instructor-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, s.quizPath("/attempts/me"), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine services.AttemptListResponse
	decode(t, w, &mine)
	assert.Equal(t, int64(1), mine.Total)

	w = s.do(t, http.MethodGet, s.quizPath("/attempts/export"), "instructor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attempts.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestSubmitAttempt_BadPayload(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, s.quizPath("/attempts/submit"), "alice", map[string]interface{}{"timeTaken": -5, "answers": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/attempts/abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAttempt_NullAnswersAreRecorded(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, s.quizPath("/attempts/submit"), "alice", map[string]interface{}{"answers": nil, "timeTaken": 12})
	require.Equal(t, http.StatusOK, w.Code)
	var submitted services.SubmitAttemptResponse
	decode(t, w, &submitted)
	assert.Equal(t, 0, submitted.Score)
	assert.False(t, submitted.Passed)

	w = s.do(t, http.MethodGet, s.quizPath("/attempts/status"), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status services.AttemptStatusResponse
	decode(t, w, &status)
	assert.True(t, status.HasAttempted)
	assert.Equal(t, int64(1), status.AttemptsUsed)
}

func TestQuizAuthoring(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/quizzes", "instructor", map[string]interface{}{
		"chapter_id": 2, "title": "Genetics", "type": "quiz", "passing_marks": 70, "max_attempts": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created services.QuizResponse
	decode(t, w, &created)

	path := fmt.Sprintf("/api/v1/quizzes/%d/questions", created.ID)
	w = s.do(t, http.MethodPost, path, "instructor", map[string]interface{}{
		"text": "Genes are made of DNA", "type": "true_false", "points": 3,
		"options": []map[string]interface{}{{"text": "true", "is_correct": true}, {"text": "false"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var question services.QuestionResponse
	decode(t, w, &question)
	assert.Equal(t, 3, question.QuizTotalMarks)

	w = s.do(t, http.MethodPost, path, "instructor-2", map[string]interface{}{
		"text": "Hijack", "type": "true_false", "points": 1,
		"options": []map[string]interface{}{{"text": "true", "is_correct": true}, {"text": "false"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quizzes/%d/grade-preview", created.ID), "admin", map[string]interface{}{
		"answers": map[string]interface{}{strconv.FormatUint(uint64(question.ID), 10): "true"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var preview map[string]interface{}
	decode(t, w, &preview)
	assert.EqualValues(t, 100, preview["percentage"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/quizzes/%d", created.ID), "instructor", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quizzes/%d", created.ID), "instructor", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInactiveQuizCannotStart(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, s.quizPath(""), "instructor", map[string]interface{}{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, s.quizPath("/attempts"), "alice", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
