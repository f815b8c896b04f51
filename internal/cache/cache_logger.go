package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// QuizKey and QuizDetailsKey name the cached quiz entries.
func QuizKey(quizID uint) string        { return fmt.Sprintf("id:%d", quizID) }
func QuizDetailsKey(quizID uint) string { return fmt.Sprintf("details:%d", quizID) }
func AttemptKey(attemptID uint) string  { return fmt.Sprintf("id:%d", attemptID) }

// InvalidateQuizCache drops every cached view of a quiz.
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeDelete(ctx, cm.Quiz, QuizKey(quizID), QuizDetailsKey(quizID))
	SafeInvalidatePattern(ctx, cm.Quiz, "list:*")
}
