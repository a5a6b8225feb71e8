package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	repo "github.com/joseph-ayodele/snapcheck/internal/repository"
)

const seedYAML = `
classes:
  - id: eng9
    teacher_id: t-1
    name: English 9
    activities:
      - id: narrative
        title: Personal narrative
        rubric: "Voice /10"
    students:
      - id: s1
        name: Ada Lovelace
      - id: s2
        name: Alan Turing
`

func TestParseSeed(t *testing.T) {
	f, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, f.Classes, 1)
	c := f.Classes[0]
	assert.Equal(t, "eng9", c.ID)
	assert.Equal(t, "t-1", c.TeacherID)
	assert.Equal(t, "Voice /10", c.Activities[0].Rubric)
	assert.Len(t, c.Students, 2)

	tests := []struct {
		name string
		in   string
	}{
		{"unknown field", "classes:\n  - name: x\n    teacher_id: t\n    colour: red\n"},
		{"missing teacher", "classes:\n  - name: x\n"},
		{"activity from another class", "classes:\n  - id: a\n    name: x\n    teacher_id: t\n    activities:\n      - class_id: b\n        title: y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestApplySeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := repo.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	classes := repo.NewClassRepository(db, nil)
	activities := repo.NewActivityRepository(db, nil)
	roster := repo.NewRosterRepository(db, nil)

	f, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	st, err := applySeed(ctx, classes, activities, roster, f, nil)
	require.NoError(t, err)
	assert.Equal(t, seedStats{Classes: 1, Activities: 1, Students: 2}, st)

	st, err = applySeed(ctx, classes, activities, roster, f, nil)
	require.NoError(t, err)
	assert.Equal(t, seedStats{Skipped: 4}, st)

	got, err := classes.ListByTeacher(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	acts, err := activities.ListByClass(ctx, "eng9")
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "eng9", acts[0].ClassID)
	students, err := roster.ListByClass(ctx, "eng9")
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestTeacherIdentity(t *testing.T) {
	cfg := &common.Config{Auth: common.AuthConfig{Tokens: []common.TokenConfig{
		{Token: "s", UserID: "kid", Role: "student"},
		{Token: "a", UserID: "t-1", Name: "Ms. Frizzle"},
		{Token: "b", UserID: "t-2", Role: "teacher"},
	}}}
	assert.Equal(t, "t-1", teacherIdentity(cfg, "").UserID)
	assert.Equal(t, "Ms. Frizzle", teacherIdentity(cfg, "").Name)
	assert.Equal(t, "t-2", teacherIdentity(cfg, "t-2").UserID)
	assert.Equal(t, "t-9", teacherIdentity(cfg, "t-9").UserID)
	assert.Equal(t, "local-teacher", teacherIdentity(&common.Config{}, "").UserID)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "a b", clip("a\n  b", 10))
	assert.Equal(t, "abc…", clip("abcdef", 4))
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"scan", "export", "seed", "db"})

	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	for _, flag := range []string{"class", "activity", "dir", "commit", "seed", "out"} {
		assert.NotNil(t, scan.Flags().Lookup(flag), flag)
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"seed"})
	assert.Error(t, root.Execute(), "--file is required")
}
