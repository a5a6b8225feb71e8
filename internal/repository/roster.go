package repository

import (
	"context"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

type RosterRepository interface {
	ListByClass(ctx context.Context, classID string) ([]*entity.Student, error)
	Create(ctx context.Context, s *entity.Student) (*entity.Student, error)
}

type rosterRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRosterRepository(db *DB, logger *slog.Logger) RosterRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &rosterRepository{db: db, logger: logger}
}

var studentColumns = []string{"id", "class_id", "name", "email"}

func (r *rosterRepository) ListByClass(ctx context.Context, classID string) ([]*entity.Student, error) {
	b := r.db.builder()
	q, args := b.Select(studentColumns...).
		From(b.Table(tableStudents)).
		Where(entsql.EQ("class_id", classID)).
		OrderBy("name", "id").
		Query()

	var out []*entity.Student
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var s entity.Student
		if err := rows.Scan(&s.ID, &s.ClassID, &s.Name, &s.Email); err != nil {
			return err
		}
		out = append(out, &s)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list roster", "class_id", classID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "list roster", err)
	}
	return out, nil
}

func (r *rosterRepository) Create(ctx context.Context, s *entity.Student) (*entity.Student, error) {
	v := common.NewValidator()
	v.Field("class_id", s.ClassID, common.Required).
		Field("name", s.Name, common.Required, common.MaxLen(200))
	if err := v.Error(); err != nil {
		return nil, err
	}

	out := *s
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	q, args := r.db.builder().Insert(tableStudents).
		Columns(studentColumns...).
		Values(out.ID, out.ClassID, out.Name, out.Email).
		Query()
	if err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create student", "class_id", s.ClassID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "create student", err)
	}
	return &out, nil
}
