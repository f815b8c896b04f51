package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
)

func TestGradingService_Preview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewGradingService(env.db, env.repo, env.logger, env.validator)
	quiz := testutil.SeedQuiz(t, env.db, owner)

	result, err := svc.Preview(ctx, quiz.ID, &GradePreviewRequest{
		Answers: answersFor(t, map[uint]interface{}{
			quiz.Questions[1].ID: []string{"Golgi", "Lysosome"},
			quiz.Questions[2].ID: "false",
			99999:                "stray",
		}),
	}, owner, models.RoleInstructor)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 6, result.TotalPoints)
	assert.Equal(t, 50, result.Percentage)
	assert.True(t, result.Passed)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "99999", result.Warnings[0].QuestionID)

	// Previews never record attempts
	count, err := env.repo.Attempt().CountByQuiz(ctx, nil, quiz.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGradingService_PreviewRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := NewGradingService(env.db, env.repo, env.logger, env.validator)
	quiz := testutil.SeedQuiz(t, env.db, owner)

	_, err := svc.Preview(context.Background(), quiz.ID, &GradePreviewRequest{
		Answers: answersFor(t, map[uint]interface{}{quiz.Questions[0].ID: "Mitochondria"}),
	}, learner, models.RoleStudent)
	assert.True(t, IsPermissionError(err))
}
