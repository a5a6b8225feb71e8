package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// SubmissionRepository persists graded essays.
type SubmissionRepository interface {
	// CreateBatch writes all submissions in one transaction: either every row
	// is stored or none is.
	CreateBatch(ctx context.Context, subs []*entity.Submission) error
	ListByActivity(ctx context.Context, activityID string) ([]*entity.Submission, error)
}

type submissionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSubmissionRepository(db *DB, logger *slog.Logger) SubmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionRepository{db: db, logger: logger}
}

var submissionColumns = []string{
	"id", "student_id", "student_name", "assignment_name", "activity_id", "class_id",
	"essay_text", "essay_image_url", "submitted_at", "status", "grade", "feedback", "graded_by",
}

const insertChunk = 100

func (r *submissionRepository) CreateBatch(ctx context.Context, subs []*entity.Submission) (err error) {
	if len(subs) == 0 {
		return nil
	}
	for i, s := range subs {
		v := common.NewValidator()
		v.Field("student_id", s.StudentID, common.Required).
			Field("activity_id", s.ActivityID, common.Required).
			Field("class_id", s.ClassID, common.Required)
		if vErr := v.Error(); vErr != nil {
			return fmt.Errorf("submission %d: %w", i, vErr)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.SubmittedAt.IsZero() {
			s.SubmittedAt = time.Now().UTC()
		}
		if s.Status == "" {
			s.Status = constants.SubmissionStatusSubmitted
		}
	}

	start := time.Now()
	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback submission batch", "error", rbErr)
			}
		}
	}()

	b := r.db.builder()
	for lo := 0; lo < len(subs); lo += insertChunk {
		hi := min(lo+insertChunk, len(subs))
		ins := b.Insert(tableSubmissions).Columns(submissionColumns...)
		for _, s := range subs[lo:hi] {
			ins.Values(s.ID, s.StudentID, s.StudentName, s.AssignmentName, s.ActivityID, s.ClassID,
				s.EssayText, s.EssayImageURL, s.SubmittedAt.UTC(), string(s.Status), s.Grade, s.Feedback, s.GradedBy)
		}
		q, args := ins.Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to insert submissions", "count", len(subs), "error", err)
			return common.NewAppError("DB_ERROR", "insert submissions", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit submissions", err)
	}

	r.logger.Info("repository.submissions.batch_ok",
		"count", len(subs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *submissionRepository) ListByActivity(ctx context.Context, activityID string) ([]*entity.Submission, error) {
	b := r.db.builder()
	q, args := b.Select(submissionColumns...).
		From(b.Table(tableSubmissions)).
		Where(entsql.EQ("activity_id", activityID)).
		OrderBy("student_name", "submitted_at").
		Query()

	var out []*entity.Submission
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			s      entity.Submission
			status string
		)
		if err := rows.Scan(&s.ID, &s.StudentID, &s.StudentName, &s.AssignmentName, &s.ActivityID, &s.ClassID,
			&s.EssayText, &s.EssayImageURL, &s.SubmittedAt, &status, &s.Grade, &s.Feedback, &s.GradedBy); err != nil {
			return err
		}
		s.Status = constants.SubmissionStatus(status)
		out = append(out, &s)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list submissions", "activity_id", activityID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "list submissions", err)
	}
	return out, nil
}
