package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return newAttemptPostgreSQL(db, cache.NewCacheManager(redisClient))
}

func newAttemptPostgreSQL(db *gorm.DB, cm *cache.CacheManager) *AttemptPostgreSQL {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(),
		cacheManager: cm,
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Omit("Quiz").Create(attempt).Error
}

// GetByID caches completed attempts only; open attempts still change.
func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	key := cache.AttemptKey(id)

	if tx == nil {
		var cached models.QuizAttempt
		if err := a.cacheManager.Attempt.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
			slog.WarnContext(ctx, "Cache get error, proceeding to fetch", "error", err, "key", key)
		}
	}

	var attempt models.QuizAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}

	if tx == nil && attempt.IsCompleted() {
		if err := a.cacheManager.Attempt.Set(ctx, key, &attempt, cache.AttemptCacheConfig.TTL); err != nil {
			slog.WarnContext(ctx, "Cache set error", "error", err, "key", key)
		}
	}

	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Omit("Quiz").Save(attempt).Error; err != nil {
		return err
	}
	cache.SafeDelete(ctx, a.cacheManager.Attempt, cache.AttemptKey(attempt.ID))
	return nil
}

func (a *AttemptPostgreSQL) Complete(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       models.AttemptCompleted,
			"answers":      attempt.Answers,
			"score":        attempt.Score,
			"total_points": attempt.TotalPoints,
			"is_passed":    attempt.IsPassed,
			"time_taken":   attempt.TimeTaken,
			"completed_at": attempt.CompletedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	attempt.Status = models.AttemptCompleted
	cache.SafeDelete(ctx, a.cacheManager.Attempt, cache.AttemptKey(attempt.ID))
	return true, nil
}

func (a *AttemptPostgreSQL) GetLatest(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("COALESCE(completed_at, created_at) DESC").
		Order("id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetInProgress(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, models.AttemptInProgress).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountByQuizAndUser(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) NextAttemptNumber(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int, error) {
	db := a.getDB(tx)
	var next int
	err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Select("COALESCE(MAX(attempt_number), 0) + 1").
		Scan(&next).Error
	return next, err
}

func (a *AttemptPostgreSQL) ListByQuizAndUser(ctx context.Context, tx *gorm.DB, quizID uint, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.UserID = &userID
	return a.ListByQuiz(ctx, tx, quizID, filters)
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.QuizAttempt
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.QuizAttempt{}).Where("quiz_id = ?", quizID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, attemptSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) AbandonInProgress(ctx context.Context, tx *gorm.DB, quizID uint, userID string) (int64, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, models.AttemptInProgress).
		Update("status", models.AttemptAbandoned)
	return result.RowsAffected, result.Error
}

func (a *AttemptPostgreSQL) ListInProgressStartedBefore(ctx context.Context, tx *gorm.DB, before time.Time, limit int) ([]*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempts []*models.QuizAttempt
	query := db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.AttemptInProgress, before).
		Order("started_at ASC").
		Preload("Quiz", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale attempts: %w", err)
	}
	return attempts, nil
}

// MarkAbandoned only touches attempts that are still open, so a submit that
// lands first wins.
func (a *AttemptPostgreSQL) MarkAbandoned(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id IN ? AND status = ?", ids, models.AttemptInProgress).
		Update("status", models.AttemptAbandoned)
	return result.RowsAffected, result.Error
}
