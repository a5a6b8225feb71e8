package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableClasses     = "classes"
	tableActivities  = "activities"
	tableStudents    = "students"
	tableSubmissions = "submissions"
)

func (d *DB) timeType() string {
	if d.Dialect() == dialect.Postgres {
		return "timestamptz"
	}
	return "datetime"
}

func idCol(name string) *entsql.ColumnBuilder {
	return entsql.Column(name).Type("varchar(64)").Attr("NOT NULL")
}

func textCol(name string) *entsql.ColumnBuilder {
	return entsql.Column(name).Type("text").Attr("NOT NULL DEFAULT ''")
}

func fk(col, table string) *entsql.ForeignKeyBuilder {
	return entsql.ForeignKey().
		Columns(col).
		Reference(entsql.Reference().Table(table).Columns("id")).
		OnDelete("CASCADE")
}

// Migrate creates the tables and indexes if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	b := d.builder()
	ts := d.timeType()

	tables := []*entsql.TableBuilder{
		b.CreateTable(tableClasses).IfNotExists().
			Columns(
				idCol("id"),
				idCol("teacher_id"),
				textCol("name"),
				textCol("subject"),
				entsql.Column("created_at").Type(ts).Attr("NOT NULL"),
			).
			PrimaryKey("id"),
		b.CreateTable(tableActivities).IfNotExists().
			Columns(
				idCol("id"),
				idCol("class_id"),
				textCol("title"),
				textCol("description"),
				textCol("rubric"),
				entsql.Column("due_at").Type(ts),
				entsql.Column("created_at").Type(ts).Attr("NOT NULL"),
			).
			PrimaryKey("id").
			ForeignKeys(fk("class_id", tableClasses)),
		b.CreateTable(tableStudents).IfNotExists().
			Columns(
				idCol("id"),
				idCol("class_id"),
				textCol("name"),
				textCol("email"),
			).
			PrimaryKey("id").
			ForeignKeys(fk("class_id", tableClasses)),
		b.CreateTable(tableSubmissions).IfNotExists().
			Columns(
				idCol("id"),
				idCol("student_id"),
				textCol("student_name"),
				textCol("assignment_name"),
				idCol("activity_id"),
				idCol("class_id"),
				textCol("essay_text"),
				textCol("essay_image_url"),
				entsql.Column("submitted_at").Type(ts).Attr("NOT NULL"),
				entsql.Column("status").Type("varchar(32)").Attr("NOT NULL"),
				textCol("grade"),
				textCol("feedback"),
				textCol("graded_by"),
			).
			PrimaryKey("id").
			ForeignKeys(fk("activity_id", tableActivities)),
	}
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_classes_teacher ON classes (teacher_id)",
		"CREATE INDEX IF NOT EXISTS idx_activities_class ON activities (class_id)",
		"CREATE INDEX IF NOT EXISTS idx_students_class ON students (class_id)",
		"CREATE INDEX IF NOT EXISTS idx_submissions_activity ON submissions (activity_id, submitted_at)",
	}

	for _, t := range tables {
		q, args := t.Query()
		if err := d.exec(ctx, q, args); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, q := range indexes {
		if err := d.exec(ctx, q, nil); err != nil {
			return fmt.Errorf("migrate index: %w", err)
		}
	}
	d.logger.Info("repository.migrate.ok", "dialect", d.Dialect(), "tables", len(tables))
	return nil
}
