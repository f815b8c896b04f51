package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
)

func TestQuizRepository_GetByIDWithQuestionsOrdersContent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, UserRepository: noUsers{}})
	seeded := testutil.SeedQuiz(t, db, "owner")

	quiz, err := repo.Quiz().GetByIDWithQuestions(context.Background(), nil, seeded.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, models.SingleCorrect, quiz.Questions[0].Type)
	assert.Equal(t, models.TrueFalse, quiz.Questions[2].Type)
	require.Len(t, quiz.Questions[0].Options, 3)
	assert.Equal(t, "Mitochondria", quiz.Questions[0].Options[1].Text)
}

func TestQuizRepository_RecalculateTotalMarksBumpsUpdatedAt(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, UserRepository: noUsers{}})
	ctx := context.Background()
	seeded := testutil.SeedQuiz(t, db, "owner")

	require.NoError(t, db.Model(&models.Question{}).Where("quiz_id = ?", seeded.ID).Update("points", 4).Error)
	time.Sleep(5 * time.Millisecond)

	total, err := repo.Quiz().RecalculateTotalMarks(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, total)

	reloaded, err := repo.Quiz().GetByID(ctx, db, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.TotalMarks)
	assert.True(t, reloaded.UpdatedAt.After(seeded.UpdatedAt))

	_, err = repo.Quiz().RecalculateTotalMarks(ctx, nil, 9999)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestQuizRepository_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, UserRepository: noUsers{}})
	ctx := context.Background()
	testutil.SeedQuiz(t, db, "owner")
	testutil.SeedQuiz(t, db, "owner", testutil.WithType(models.QuizTypeAssignment))
	testutil.SeedQuiz(t, db, "someone-else")

	owner := "owner"
	quizType := models.QuizTypeAssignment
	items, total, err := repo.Quiz().List(ctx, nil, repositories.QuizFilters{CreatedBy: &owner, Type: &quizType})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, models.QuizTypeAssignment, items[0].Type)
}

func TestQuestionRepository_UpdateReplacesOptions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, UserRepository: noUsers{}})
	ctx := context.Background()
	seeded := testutil.SeedQuiz(t, db, "owner")

	question, err := repo.Question().GetByID(ctx, nil, seeded.Questions[0].ID)
	require.NoError(t, err)

	question.Text = "Energy organelle?"
	question.Options = []models.Option{
		{Text: "Mitochondria", IsCorrect: true, OrderIndex: 1},
		{Text: "Chloroplast", OrderIndex: 2},
	}
	require.NoError(t, repo.Question().Update(ctx, nil, question))

	reloaded, err := repo.Question().GetByID(ctx, nil, question.ID)
	require.NoError(t, err)
	assert.Equal(t, "Energy organelle?", reloaded.Text)
	require.Len(t, reloaded.Options, 2)
	assert.Equal(t, "Chloroplast", reloaded.Options[1].Text)

	var optionCount int64
	require.NoError(t, db.Model(&models.Option{}).Where("question_id = ?", question.ID).Count(&optionCount).Error)
	assert.Equal(t, int64(2), optionCount)

	next, err := repo.Question().NextOrderIndex(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	require.NoError(t, repo.Question().Delete(ctx, nil, question.ID))
	sum, err := repo.Question().SumPointsByQuiz(ctx, nil, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, sum)
}
