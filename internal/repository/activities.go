package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

type ActivityRepository interface {
	ListByClass(ctx context.Context, classID string) ([]*entity.Activity, error)
	GetByID(ctx context.Context, id string) (*entity.Activity, error)
	Create(ctx context.Context, a *entity.Activity) (*entity.Activity, error)
}

type activityRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewActivityRepository(db *DB, logger *slog.Logger) ActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &activityRepository{db: db, logger: logger}
}

var activityColumns = []string{"id", "class_id", "title", "description", "rubric", "due_at", "created_at"}

func scanActivity(rows *entsql.Rows) (*entity.Activity, error) {
	var (
		a   entity.Activity
		due sql.NullTime
	)
	if err := rows.Scan(&a.ID, &a.ClassID, &a.Title, &a.Description, &a.Rubric, &due, &a.CreatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time
		a.DueAt = &t
	}
	return &a, nil
}

func (r *activityRepository) ListByClass(ctx context.Context, classID string) ([]*entity.Activity, error) {
	b := r.db.builder()
	q, args := b.Select(activityColumns...).
		From(b.Table(tableActivities)).
		Where(entsql.EQ("class_id", classID)).
		OrderBy(entsql.Desc("created_at"), "id").
		Query()

	var out []*entity.Activity
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		a, err := scanActivity(rows)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list activities", "class_id", classID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "list activities", err)
	}
	return out, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*entity.Activity, error) {
	b := r.db.builder()
	q, args := b.Select(activityColumns...).
		From(b.Table(tableActivities)).
		Where(entsql.EQ("id", id)).
		Query()

	var found *entity.Activity
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		a, err := scanActivity(rows)
		found = a
		return err
	})
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get activity", err)
	}
	if found == nil {
		return nil, common.NewAppError("NOT_FOUND", "activity "+id, common.ErrNotFound)
	}
	return found, nil
}

func (r *activityRepository) Create(ctx context.Context, a *entity.Activity) (*entity.Activity, error) {
	v := common.NewValidator()
	v.Field("class_id", a.ClassID, common.Required).
		Field("title", a.Title, common.Required, common.MaxLen(300))
	if err := v.Error(); err != nil {
		return nil, err
	}

	out := *a
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	var due any
	if out.DueAt != nil {
		due = out.DueAt.UTC()
	}
	q, args := r.db.builder().Insert(tableActivities).
		Columns(activityColumns...).
		Values(out.ID, out.ClassID, out.Title, out.Description, out.Rubric, due, out.CreatedAt).
		Query()
	if err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create activity", "class_id", a.ClassID, "title", a.Title, "error", err)
		return nil, common.NewAppError("DB_ERROR", "create activity", err)
	}
	return &out, nil
}
