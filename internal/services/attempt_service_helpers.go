package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// canRetake: the learner has attempted, the quiz is retakeable, and it was
// edited after the latest attempt.
func canRetake(quiz *models.Quiz, latest *models.QuizAttempt) bool {
	return latest != nil && quiz.Retakeable() && quiz.EditedAfter(latest)
}

// allowsNewAttempt applies max_attempts with the edit-granted exception.
func allowsNewAttempt(quiz *models.Quiz, used int64, latest *models.QuizAttempt) bool {
	if quiz.MaxAttempts <= 0 || used < int64(quiz.MaxAttempts) {
		return true
	}
	return canRetake(quiz, latest)
}

// checkAttemptPolicy re-reads the quiz inside tx so the decision sees the
// committed updated_at, then enforces the attempt limit.
func (s *attemptService) checkAttemptPolicy(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.Quiz, error) {
	quiz, err := getQuiz(ctx, s.repo, tx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, ErrQuizNotActive
	}

	used, err := s.repo.Attempt().CountByQuizAndUser(ctx, tx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	latest, err := s.getLatestAttempt(ctx, tx, quizID, userID)
	if err != nil {
		return nil, err
	}

	if !allowsNewAttempt(quiz, used, latest) {
		s.logger.Info("Attempt limit reached",
			"quiz_id", quizID,
			"user_id", userID,
			"used", used,
			"max_attempts", quiz.MaxAttempts)
		return nil, ErrAttemptLimitExceeded
	}

	return quiz, nil
}

func (s *attemptService) getLatestAttempt(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error) {
	latest, err := s.repo.Attempt().GetLatest(ctx, tx, quizID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	return latest, nil
}

// createAttempt numbers the attempt inside tx; the unique index on
// (quiz_id, user_id, attempt_number) rejects a concurrent duplicate.
func (s *attemptService) createAttempt(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error) {
	number, err := s.repo.Attempt().NextAttemptNumber(ctx, tx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute attempt number: %w", err)
	}

	attempt := &models.QuizAttempt{
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: number,
		Status:        models.AttemptInProgress,
		StartedAt:     s.now(),
	}
	if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
		if repositories.IsDuplicateError(err) {
			s.logger.Warn("Concurrent attempt creation detected", "quiz_id", quizID, "user_id", userID, "attempt_number", number)
			return nil, ErrAttemptConflict
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) isStale(attempt *models.QuizAttempt, now time.Time) bool {
	// Quiz gone entirely: nothing can be submitted against it
	if attempt.Quiz == nil {
		return true
	}
	deadline := attempt.StartedAt.Add(s.sweep.UntimedMaxAge)
	if attempt.Quiz.HasTimeLimit() {
		deadline = attempt.StartedAt.Add(time.Duration(*attempt.Quiz.TimeLimit)*time.Minute + s.sweep.Grace)
	}
	return now.After(deadline)
}

// toClientQuiz flattens the quiz for the learner. Correct answers are
// included in the payload.
func toClientQuiz(quiz *models.Quiz) *ClientQuiz {
	client := &ClientQuiz{
		ID:           quiz.ID,
		Title:        quiz.Title,
		TimeLimit:    quiz.TimeLimit,
		TotalMarks:   quiz.TotalMarks,
		PassingMarks: quiz.PassingMarks,
		Type:         quiz.Type,
		Questions:    make([]ClientQuestion, 0, len(quiz.Questions)),
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		options := make([]string, 0, len(question.Options))
		for _, opt := range question.Options {
			options = append(options, opt.Text)
		}

		client.Questions = append(client.Questions, ClientQuestion{
			ID:            question.ID,
			Question:      question.Text,
			Type:          question.Type,
			Marks:         question.Points,
			Options:       options,
			CorrectAnswer: correctAnswer(question),
		})
	}

	return client
}

func correctAnswer(question *models.Question) interface{} {
	if question.Type == models.MultipleCorrect {
		return question.CorrectTexts()
	}
	if opt := question.CorrectOption(); opt != nil {
		return opt.Text
	}
	return nil
}

func normalizeAttemptFilters(filters repositories.AttemptFilters) repositories.AttemptFilters {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return filters
}

func toAttemptResponse(attempt *models.QuizAttempt) *AttemptResponse {
	return &AttemptResponse{QuizAttempt: attempt, Percentage: attempt.Percentage()}
}

func toAttemptList(attempts []*models.QuizAttempt, total int64, filters repositories.AttemptFilters) *AttemptListResponse {
	items := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, toAttemptResponse(attempt))
	}
	return &AttemptListResponse{
		Attempts: items,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}
}
