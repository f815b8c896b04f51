package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// Create inserts the question together with its options
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	err := db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]models.Question, error) {
	db := q.getDB(tx)
	var questions []models.Question
	err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("order_index ASC, id ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// Update saves the question row and replaces its option set
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx).WithContext(ctx)

	if err := db.Omit("Options").Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	if err := db.Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("failed to clear options: %w", err)
	}

	if len(question.Options) == 0 {
		return nil
	}
	for i := range question.Options {
		question.Options[i].ID = 0
		question.Options[i].QuestionID = question.ID
	}
	if err := db.Create(&question.Options).Error; err != nil {
		return fmt.Errorf("failed to create options: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx).WithContext(ctx)

	if err := db.Where("question_id = ?", id).Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}

	result := db.Delete(&models.Question{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) SumPointsByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int, error) {
	db := q.getDB(tx)
	var total int
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (q *QuestionPostgreSQL) NextOrderIndex(ctx context.Context, tx *gorm.DB, quizID uint) (int, error) {
	db := q.getDB(tx)
	var next int
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(MAX(order_index), 0) + 1").
		Scan(&next).Error
	return next, err
}
