package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

const sheet = "Grades"

type ActivityGetter interface {
	GetByID(ctx context.Context, id string) (*entity.Activity, error)
}

type SubmissionLister interface {
	ListByActivity(ctx context.Context, activityID string) ([]*entity.Submission, error)
}

// Service is a tiny façade over repositories that produces XLSX bytes for grade exports.
type Service struct {
	activities  ActivityGetter
	submissions SubmissionLister
	logger      *slog.Logger
}

func NewService(activities ActivityGetter, submissions SubmissionLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{activities: activities, submissions: submissions, logger: logger}
}

// ExportGradesXLSX returns an XLSX workbook (as bytes) with one row per
// submission of the activity, ordered by student name.
func (s *Service) ExportGradesXLSX(ctx context.Context, activityID string) ([]byte, error) {
	start := time.Now()

	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	subs, err := s.submissions.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheet, "A1", activity.Title)
	headers := []string{
		"Student",
		"Student ID",
		"Grade",
		"Feedback",
		"Submitted",
		"Status",
		"Graded By",
		"Essay Image",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "H2", style)
	}

	row := 3
	for _, sub := range subs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, sub.StudentName)
		write(2, sub.StudentID)
		write(3, sub.Grade)
		write(4, truncate(sub.Feedback, 500))
		if !sub.SubmittedAt.IsZero() {
			write(5, sub.SubmittedAt.UTC().Format("2006-01-02 15:04"))
		}
		write(6, string(sub.Status))
		write(7, sub.GradedBy)
		if sub.EssayImageURL != "" {
			write(8, sub.EssayImageURL)
			cell, _ := excelize.CoordinatesToCellName(8, row)
			_ = f.SetCellHyperLink(sheet, cell, sub.EssayImageURL, "External")
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // student
	_ = f.SetColWidth(sheet, "B", "B", 38)
	_ = f.SetColWidth(sheet, "C", "C", 10)
	_ = f.SetColWidth(sheet, "D", "D", 80) // feedback
	_ = f.SetColWidth(sheet, "E", "G", 18)
	_ = f.SetColWidth(sheet, "H", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"activity_id", activityID,
		"rows", len(subs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
