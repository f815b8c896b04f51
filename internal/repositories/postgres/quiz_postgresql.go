package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return newQuizPostgreSQL(db, cache.NewCacheManager(redisClient))
}

func newQuizPostgreSQL(db *gorm.DB, cm *cache.CacheManager) *QuizPostgreSQL {
	return &QuizPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(),
		cacheManager: cm,
	}
}

func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	fetch := func() (interface{}, error) {
		var quiz models.Quiz
		if err := db.WithContext(ctx).First(&quiz, id).Error; err != nil {
			return nil, err
		}
		return &quiz, nil
	}

	// Reads inside a transaction must see uncommitted writes
	if tx != nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*models.Quiz), nil
	}

	var quiz models.Quiz
	if err := q.cacheManager.Quiz.CacheOrExecute(ctx, cache.QuizKey(id), &quiz, cache.QuizCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	fetch := func() (interface{}, error) {
		var quiz models.Quiz
		err := db.WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("order_index ASC, id ASC")
			}).
			Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("order_index ASC, id ASC")
			}).
			First(&quiz, id).Error
		if err != nil {
			return nil, err
		}
		return &quiz, nil
	}

	if tx != nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*models.Quiz), nil
	}

	var quiz models.Quiz
	if err := q.cacheManager.Quiz.CacheOrExecute(ctx, cache.QuizDetailsKey(id), &quiz, cache.QuizCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	// Omit associations so a preloaded question list is not re-saved
	if err := db.WithContext(ctx).Omit("Questions").Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	if tx == nil {
		q.InvalidateCache(ctx, quiz.ID)
	}
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Quiz{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	if tx == nil {
		q.InvalidateCache(ctx, id)
	}
	return nil
}

func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.getDB(tx)
	var quizzes []*models.Quiz
	var total int64

	query := db.WithContext(ctx).Model(&models.Quiz{})
	query = q.helpers.ApplyQuizFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quizzes: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, quizSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) RecalculateTotalMarks(ctx context.Context, tx *gorm.DB, quizID uint) (int, error) {
	db := q.getDB(tx)

	var total int
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum question points: %w", err)
	}

	// Updates goes through the model so updated_at moves as well
	result := db.WithContext(ctx).
		Model(&models.Quiz{ID: quizID}).
		Updates(map[string]interface{}{"total_marks": total})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update total marks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	return total, nil
}

func (q *QuizPostgreSQL) InvalidateCache(ctx context.Context, quizID uint) {
	cache.InvalidateQuizCache(ctx, q.cacheManager, quizID)
}
