package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
)

func TestExportService_ExportQuizAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewExportService(env.repo, env.db, env.logger)
	quiz := testutil.SeedQuiz(t, env.db, owner, testutil.WithMaxAttempts(0))

	for _, user := range []string{"student-a", "student-b"} {
		_, err := env.attempts.SubmitAttempt(ctx, quiz.ID, &SubmitAttemptRequest{Answers: allCorrect(t, quiz), TimeTaken: 30}, user)
		require.NoError(t, err)
	}
	// Open attempts are not exported
	_, err := env.attempts.StartAttempt(ctx, quiz.ID, "student-c")
	require.NoError(t, err)

	data, filename, err := svc.ExportQuizAttempts(ctx, quiz.ID, owner, models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("quiz-%d-attempts.xlsx", quiz.ID), filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Attempts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "student-a", rows[1][1])
	assert.Equal(t, "100", rows[1][5])
	assert.Equal(t, "TRUE", rows[1][6])
	assert.Equal(t, "student-b", rows[2][1])
}

func TestExportService_RequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.repo, env.db, env.logger)
	quiz := testutil.SeedQuiz(t, env.db, owner)

	_, _, err := svc.ExportQuizAttempts(context.Background(), quiz.ID, learner, models.RoleStudent)
	assert.True(t, IsPermissionError(err))
}
