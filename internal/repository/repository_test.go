package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

type fixture struct {
	class    *entity.Class
	activity *entity.Activity
	students []*entity.Student
}

func seed(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	c, err := NewClassRepository(db, nil).Create(ctx, &entity.Class{TeacherID: "teacher-1", Name: "English 9", Subject: "ELA"})
	require.NoError(t, err)
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewActivityRepository(db, nil).Create(ctx, &entity.Activity{
		ClassID: c.ID, Title: "Personal narrative", Rubric: "Voice 5, Structure 5", DueAt: &due,
	})
	require.NoError(t, err)

	roster := NewRosterRepository(db, nil)
	var students []*entity.Student
	for _, name := range []string{"Grace Hopper", "Ada Lovelace"} {
		s, err := roster.Create(ctx, &entity.Student{ClassID: c.ID, Name: name})
		require.NoError(t, err)
		students = append(students, s)
	}
	return fixture{class: c, activity: a, students: students}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestReferenceData(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	classes, err := NewClassRepository(db, nil).ListByTeacher(ctx, "teacher-1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "English 9", classes[0].Name)

	none, err := NewClassRepository(db, nil).ListByTeacher(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)

	acts, err := NewActivityRepository(db, nil).ListByClass(ctx, f.class.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.NotNil(t, acts[0].DueAt)
	assert.True(t, acts[0].DueAt.Equal(*f.activity.DueAt))
	assert.Equal(t, "Voice 5, Structure 5", acts[0].Rubric)

	roster, err := NewRosterRepository(db, nil).ListByClass(ctx, f.class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ada Lovelace", roster[0].Name, "roster is sorted by name")
}

func TestGetByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := NewClassRepository(db, nil).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = NewActivityRepository(db, nil).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	db := openTestDB(t)
	_, err := NewClassRepository(db, nil).Create(context.Background(), &entity.Class{Name: "No teacher"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func gradedSubmission(f fixture, s *entity.Student, grade string) *entity.Submission {
	return &entity.Submission{
		StudentID:      s.ID,
		StudentName:    s.Name,
		AssignmentName: f.activity.Title,
		ActivityID:     f.activity.ID,
		ClassID:        f.class.ID,
		EssayText:      "Once upon a time.",
		EssayImageURL:  "http://blobs/x.jpg",
		Status:         constants.SubmissionStatusGraded,
		Grade:          grade,
		Feedback:       "Nice.",
		GradedBy:       "teacher-1",
	}
}

func TestSubmissions_CreateBatch(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	repo := NewSubmissionRepository(db, nil)
	ctx := context.Background()

	batch := []*entity.Submission{
		gradedSubmission(f, f.students[0], "9/10"),
		gradedSubmission(f, f.students[1], "7/10"),
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))
	assert.NotEmpty(t, batch[0].ID)

	got, err := repo.ListByActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada Lovelace", got[0].StudentName)
	assert.Equal(t, constants.SubmissionStatusGraded, got[0].Status)
	assert.Equal(t, "7/10", got[0].Grade)
	assert.False(t, got[0].SubmittedAt.IsZero())
}

func TestSubmissions_CreateBatchIsAtomic(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	repo := NewSubmissionRepository(db, nil)
	ctx := context.Background()

	first := gradedSubmission(f, f.students[0], "9/10")
	dup := gradedSubmission(f, f.students[1], "7/10")
	dup.ID = "same-id"
	dup2 := gradedSubmission(f, f.students[0], "8/10")
	dup2.ID = "same-id"

	err := repo.CreateBatch(ctx, []*entity.Submission{first, dup, dup2})
	require.Error(t, err)

	got, err := repo.ListByActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Empty(t, got, "a failed batch must not leave partial rows")
}

func TestSubmissions_CreateBatchRejectsMissingStudent(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	s := gradedSubmission(f, f.students[0], "9/10")
	s.StudentID = ""

	err := NewSubmissionRepository(db, nil).CreateBatch(context.Background(), []*entity.Submission{s})
	assert.ErrorIs(t, err, common.ErrValidation)
}
