package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

type ClassRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]*entity.Class, error)
	GetByID(ctx context.Context, id string) (*entity.Class, error)
	Create(ctx context.Context, c *entity.Class) (*entity.Class, error)
}

type classRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewClassRepository(db *DB, logger *slog.Logger) ClassRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &classRepository{db: db, logger: logger}
}

var classColumns = []string{"id", "teacher_id", "name", "subject", "created_at"}

func scanClass(rows *entsql.Rows) (*entity.Class, error) {
	var c entity.Class
	if err := rows.Scan(&c.ID, &c.TeacherID, &c.Name, &c.Subject, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *classRepository) ListByTeacher(ctx context.Context, teacherID string) ([]*entity.Class, error) {
	b := r.db.builder()
	q, args := b.Select(classColumns...).
		From(b.Table(tableClasses)).
		Where(entsql.EQ("teacher_id", teacherID)).
		OrderBy("name", "id").
		Query()

	var out []*entity.Class
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		c, err := scanClass(rows)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list classes", "teacher_id", teacherID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "list classes", err)
	}
	return out, nil
}

func (r *classRepository) GetByID(ctx context.Context, id string) (*entity.Class, error) {
	b := r.db.builder()
	q, args := b.Select(classColumns...).
		From(b.Table(tableClasses)).
		Where(entsql.EQ("id", id)).
		Query()

	var found *entity.Class
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		c, err := scanClass(rows)
		found = c
		return err
	})
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get class", err)
	}
	if found == nil {
		return nil, common.NewAppError("NOT_FOUND", "class "+id, common.ErrNotFound)
	}
	return found, nil
}

func (r *classRepository) Create(ctx context.Context, c *entity.Class) (*entity.Class, error) {
	v := common.NewValidator()
	v.Field("teacher_id", c.TeacherID, common.Required).
		Field("name", c.Name, common.Required, common.MaxLen(200))
	if err := v.Error(); err != nil {
		return nil, err
	}

	out := *c
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	q, args := r.db.builder().Insert(tableClasses).
		Columns(classColumns...).
		Values(out.ID, out.TeacherID, out.Name, out.Subject, out.CreatedAt).
		Query()
	if err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create class", "name", c.Name, "error", err)
		return nil, common.NewAppError("DB_ERROR", "create class", err)
	}
	return &out, nil
}
