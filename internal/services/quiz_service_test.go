package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

func TestQuizService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.quizzes.Create(ctx, &CreateQuizRequest{
		ChapterID: 3, Title: "Week 1", Type: models.QuizTypeQuiz, PassingMarks: 60, MaxAttempts: 2,
	}, owner)
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.True(t, resp.IsActive)
	assert.True(t, resp.CanEdit)
	assert.Equal(t, 0, resp.TotalMarks)
	assert.Equal(t, owner, resp.CreatedBy)

	_, err = env.quizzes.Create(ctx, &CreateQuizRequest{ChapterID: 3, Type: "exam"}, owner)
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
	assert.NotEmpty(t, validationErrs)
}

func TestQuizService_GetByID_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hidden := testutil.SeedQuiz(t, env.db, owner, testutil.Inactive())

	_, err := env.quizzes.GetByID(ctx, hidden.ID, learner, models.RoleStudent)
	assert.ErrorIs(t, err, ErrQuizNotFound)

	resp, err := env.quizzes.GetByID(ctx, hidden.ID, owner, models.RoleInstructor)
	require.NoError(t, err)
	assert.True(t, resp.CanEdit)
	assert.Len(t, resp.Questions, 3)
}

func TestQuizService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := testutil.SeedQuiz(t, env.db, owner)

	title := "Renamed"
	_, err := env.quizzes.Update(ctx, quiz.ID, &UpdateQuizRequest{Title: &title}, "instructor-2", models.RoleInstructor)
	assert.True(t, IsPermissionError(err))

	resp, err := env.quizzes.Update(ctx, quiz.ID, &UpdateQuizRequest{Title: &title}, owner, models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Title)
	assert.Len(t, env.publisher.EventsOfType(events.QuizUpdated), 1)

	// Admins manage every quiz
	limit := 3
	resp, err = env.quizzes.Update(ctx, quiz.ID, &UpdateQuizRequest{MaxAttempts: &limit}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.MaxAttempts)
}

func TestQuizService_Update_TypeLockedByAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := testutil.SeedQuiz(t, env.db, owner)

	_, err := env.attempts.StartAttempt(ctx, quiz.ID, learner)
	require.NoError(t, err)

	assignment := models.QuizTypeAssignment
	_, err = env.quizzes.Update(ctx, quiz.ID, &UpdateQuizRequest{Type: &assignment}, owner, models.RoleInstructor)
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
	assert.Equal(t, "type", validationErrs[0].Field)
}

func TestQuizService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := testutil.SeedQuiz(t, env.db, owner)

	err := env.quizzes.Delete(ctx, quiz.ID, learner, models.RoleStudent)
	assert.True(t, IsPermissionError(err))

	require.NoError(t, env.quizzes.Delete(ctx, quiz.ID, owner, models.RoleInstructor))

	_, err = env.quizzes.GetByID(ctx, quiz.ID, owner, models.RoleInstructor)
	assert.ErrorIs(t, err, ErrQuizNotFound)
	_, err = env.attempts.StartAttempt(ctx, quiz.ID, learner)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestQuizService_List_StudentsSeeActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedQuiz(t, env.db, owner)
	testutil.SeedQuiz(t, env.db, owner, testutil.Inactive())

	studentView, err := env.quizzes.List(ctx, repositories.QuizFilters{}, learner, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), studentView.Total)
	assert.Equal(t, 20, studentView.Limit)

	ownerView, err := env.quizzes.List(ctx, repositories.QuizFilters{Limit: 500}, owner, models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ownerView.Total)
	assert.Equal(t, 20, ownerView.Limit)
}
