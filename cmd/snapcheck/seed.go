package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	repo "github.com/joseph-ayodele/snapcheck/internal/repository"
	"github.com/joseph-ayodele/snapcheck/internal/server"
)

// seedFile is the YAML layout accepted by `snapcheck seed`.
//
//	classes:
//	  - id: eng9
//	    teacher_id: t-1
//	    name: English 9
//	    activities:
//	      - id: narrative
//	        title: Personal narrative
//	        rubric: "Voice /10"
//	    students:
//	      - id: s1
//	        name: Ada Lovelace
type seedFile struct {
	Classes []seedClass `yaml:"classes"`
}

type seedClass struct {
	entity.Class `yaml:",inline"`
	Activities   []entity.Activity `yaml:"activities"`
	Students     []entity.Student  `yaml:"students"`
}

type seedStats struct {
	Classes, Activities, Students, Skipped int
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, c := range f.Classes {
		if c.TeacherID == "" || c.Name == "" {
			return nil, common.InvalidArgumentErrorf("class %d: teacher_id and name are required", i)
		}
		for j, a := range c.Activities {
			if a.ClassID != "" && c.ID != "" && a.ClassID != c.ID {
				return nil, common.InvalidArgumentErrorf("class %q activity %d belongs to %q", c.ID, j, a.ClassID)
			}
		}
	}
	return &f, nil
}

// applySeed creates whatever the seed names that does not exist yet, so
// running it twice is harmless.
func applySeed(ctx context.Context, classes repo.ClassRepository, activities repo.ActivityRepository, roster repo.RosterRepository, f *seedFile, logger *slog.Logger) (seedStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var st seedStats
	for _, sc := range f.Classes {
		class, err := ensureClass(ctx, classes, sc.Class, &st)
		if err != nil {
			return st, err
		}

		for _, a := range sc.Activities {
			a.ClassID = class.ID
			if a.ID != "" {
				if _, err := activities.GetByID(ctx, a.ID); err == nil {
					st.Skipped++
					continue
				} else if !errors.Is(err, common.ErrNotFound) {
					return st, err
				}
			}
			if _, err := activities.Create(ctx, &a); err != nil {
				return st, fmt.Errorf("activity %q: %w", a.Title, err)
			}
			st.Activities++
		}

		existing, err := roster.ListByClass(ctx, class.ID)
		if err != nil {
			return st, err
		}
		have := make(map[string]bool, len(existing))
		for _, s := range existing {
			have[s.ID] = true
		}
		for _, s := range sc.Students {
			if s.ID != "" && have[s.ID] {
				st.Skipped++
				continue
			}
			s.ClassID = class.ID
			if _, err := roster.Create(ctx, &s); err != nil {
				return st, fmt.Errorf("student %q: %w", s.Name, err)
			}
			st.Students++
		}
		logger.Info("seed.class.ok", "class_id", class.ID, "activities", len(sc.Activities), "students", len(sc.Students))
	}
	return st, nil
}

func ensureClass(ctx context.Context, classes repo.ClassRepository, c entity.Class, st *seedStats) (*entity.Class, error) {
	if c.ID != "" {
		found, err := classes.GetByID(ctx, c.ID)
		if err == nil {
			st.Skipped++
			return found, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}
	created, err := classes.Create(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("class %q: %w", c.Name, err)
	}
	st.Classes++
	return created, nil
}

func seedFromPath(ctx context.Context, db *repo.DB, path string, logger *slog.Logger) (seedStats, error) {
	fh, err := os.Open(path)
	if err != nil {
		return seedStats{}, err
	}
	defer fh.Close()
	f, err := parseSeed(fh)
	if err != nil {
		return seedStats{}, err
	}
	return applySeed(ctx,
		repo.NewClassRepository(db, logger),
		repo.NewActivityRepository(db, logger),
		repo.NewRosterRepository(db, logger),
		f, logger)
}

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load classes, activities and rosters from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.Default()
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := seedFromPath(cmd.Context(), db, file, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d classes, %d activities, %d students (%d already present)\n",
				st.Classes, st.Activities, st.Students, st.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Seed YAML file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
