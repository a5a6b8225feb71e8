package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

const codeSetup = "SETUP_ERROR"

type ClassSource interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]*entity.Class, error)
}

type ActivitySource interface {
	ListByClass(ctx context.Context, classID string) ([]*entity.Activity, error)
}

type RosterSource interface {
	ListByClass(ctx context.Context, classID string) ([]*entity.Student, error)
}

// Target is the class, activity and roster a batch grades against. It is
// read-only once resolved.
type Target struct {
	Class    *entity.Class
	Activity *entity.Activity
	Roster   []*entity.Student

	byID map[string]*entity.Student
}

func NewTarget(class *entity.Class, activity *entity.Activity, roster []*entity.Student) *Target {
	t := &Target{Class: class, Activity: activity, Roster: roster, byID: make(map[string]*entity.Student, len(roster))}
	for _, s := range roster {
		t.byID[s.ID] = s
	}
	return t
}

// LookupStudent resolves a roster entry by id.
func (t *Target) LookupStudent(id string) (*entity.Student, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.byID[id]
	return s, ok
}

// RosterEntries is the roster in the shape the identifier expects.
func (t *Target) RosterEntries() []llm.RosterEntry {
	out := make([]llm.RosterEntry, 0, len(t.Roster))
	for _, s := range t.Roster {
		out = append(out, llm.RosterEntry{ID: s.ID, Name: s.Name})
	}
	return out
}

// SetupResolver loads the reference data a teacher may target.
type SetupResolver struct {
	classes    ClassSource
	activities ActivitySource
	roster     RosterSource
	timeout    time.Duration
	logger     *slog.Logger
}

func NewSetupResolver(classes ClassSource, activities ActivitySource, roster RosterSource, logger *slog.Logger) *SetupResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetupResolver{
		classes:    classes,
		activities: activities,
		roster:     roster,
		timeout:    15 * time.Second,
		logger:     logger,
	}
}

func setupError(msg string, err error) error {
	var ae *common.AppError
	if errors.As(err, &ae) && ae.Code == codeSetup {
		return err
	}
	return common.NewAppError(codeSetup, msg, err)
}

// Classes lists the session teacher's classes.
func (r *SetupResolver) Classes(ctx context.Context, s *auth.Session) ([]*entity.Class, error) {
	if err := s.RequireTeacher(); err != nil {
		return nil, err
	}
	ctx, cancel := common.WithTimeout(ctx, r.timeout)
	defer cancel()

	classes, err := r.classes.ListByTeacher(ctx, s.Identity().UserID)
	if err != nil {
		r.logger.Error("batch.setup.classes_failed", "teacher_id", s.Identity().UserID, "error", err)
		return nil, setupError("could not load classes", err)
	}
	return classes, nil
}

// Activities lists a class's activities after checking the teacher owns it.
func (r *SetupResolver) Activities(ctx context.Context, s *auth.Session, classID string) ([]*entity.Activity, error) {
	if _, err := r.ownedClass(ctx, s, classID); err != nil {
		return nil, err
	}
	return r.listActivities(ctx, classID)
}

func (r *SetupResolver) listActivities(ctx context.Context, classID string) ([]*entity.Activity, error) {
	ctx, cancel := common.WithTimeout(ctx, r.timeout)
	defer cancel()

	acts, err := r.activities.ListByClass(ctx, classID)
	if err != nil {
		r.logger.Error("batch.setup.activities_failed", "class_id", classID, "error", err)
		return nil, setupError("could not load activities", err)
	}
	return acts, nil
}

// Roster lists a class's students after checking the teacher owns it.
func (r *SetupResolver) Roster(ctx context.Context, s *auth.Session, classID string) ([]*entity.Student, error) {
	if _, err := r.ownedClass(ctx, s, classID); err != nil {
		return nil, err
	}
	return r.listRoster(ctx, classID)
}

func (r *SetupResolver) listRoster(ctx context.Context, classID string) ([]*entity.Student, error) {
	ctx, cancel := common.WithTimeout(ctx, r.timeout)
	defer cancel()

	students, err := r.roster.ListByClass(ctx, classID)
	if err != nil {
		r.logger.Error("batch.setup.roster_failed", "class_id", classID, "error", err)
		return nil, setupError("could not load roster", err)
	}
	return students, nil
}

// Resolve fetches everything a batch needs for one class/activity selection.
func (r *SetupResolver) Resolve(ctx context.Context, s *auth.Session, classID, activityID string) (*Target, error) {
	if classID == "" || activityID == "" {
		return nil, ErrNoSelection
	}
	start := time.Now()
	class, err := r.ownedClass(ctx, s, classID)
	if err != nil {
		return nil, err
	}

	acts, err := r.listActivities(ctx, classID)
	if err != nil {
		return nil, err
	}
	var activity *entity.Activity
	for _, a := range acts {
		if a.ID == activityID {
			activity = a
			break
		}
	}
	if activity == nil {
		return nil, common.NewAppError("NOT_FOUND", "activity "+activityID+" is not in class "+classID, common.ErrNotFound)
	}

	roster, err := r.listRoster(ctx, classID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("batch.setup.resolved",
		"class_id", classID,
		"activity_id", activityID,
		"roster", len(roster),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return NewTarget(class, activity, roster), nil
}

func (r *SetupResolver) ownedClass(ctx context.Context, s *auth.Session, classID string) (*entity.Class, error) {
	classes, err := r.Classes(ctx, s)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		if c.ID == classID {
			return c, nil
		}
	}
	return nil, common.NewAppError("NOT_FOUND", "class "+classID, common.ErrNotFound)
}
