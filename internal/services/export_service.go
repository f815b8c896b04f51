package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const exportPageSize = 500

var exportHeaders = []string{
	"Attempt ID", "User ID", "Attempt #", "Score", "Total Points",
	"Percentage", "Passed", "Time Taken (s)", "Started At", "Completed At",
}

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ExportQuizAttempts returns the workbook bytes and a suggested file name.
func (s *exportService) ExportQuizAttempts(ctx context.Context, quizID uint, requesterID string, role models.UserRole) ([]byte, string, error) {
	s.logger.Info("Exporting quiz attempts", "quiz_id", quizID, "requester_id", requesterID)

	quiz, err := getQuiz(ctx, s.repo, nil, quizID)
	if err != nil {
		return nil, "", err
	}
	if err := ensureCanManageQuiz(quiz, requesterID, role, "export_attempts"); err != nil {
		return nil, "", err
	}

	attempts, err := s.completedAttempts(ctx, quizID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	sheet := "Attempts"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, "", fmt.Errorf("failed to style header: %w", err)
	}

	for i, attempt := range attempts {
		row := []interface{}{
			attempt.ID,
			attempt.UserID,
			attempt.AttemptNumber,
			attempt.Score,
			attempt.TotalPoints,
			attempt.Percentage(),
			attempt.IsPassed,
			attempt.TimeTaken,
			attempt.StartedAt.UTC().Format(time.RFC3339),
			formatOptionalTime(attempt.CompletedAt),
		}
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Quiz attempts exported", "quiz_id", quizID, "rows", len(attempts))

	return buf.Bytes(), fmt.Sprintf("quiz-%d-attempts.xlsx", quizID), nil
}

func (s *exportService) completedAttempts(ctx context.Context, quizID uint) ([]*models.QuizAttempt, error) {
	status := models.AttemptCompleted
	filters := repositories.AttemptFilters{
		Status:    &status,
		Limit:     exportPageSize,
		SortBy:    "completed_at",
		SortOrder: "asc",
	}

	var all []*models.QuizAttempt
	for {
		page, total, err := s.repo.Attempt().ListByQuiz(ctx, nil, quizID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}
		all = append(all, page...)
		filters.Offset += len(page)
		if len(page) == 0 || int64(filters.Offset) >= total {
			return all, nil
		}
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
