package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/snapcheck/internal/app"
	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	"github.com/joseph-ayodele/snapcheck/internal/ingest"
)

type scanOptions struct {
	classID    string
	activityID string
	dir        string
	teacher    string
	seed       string
	commit     bool
	out        string
	noEvents   bool
}

func newScanCommand() *cobra.Command {
	var o scanOptions
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a batch over a directory of essay images",
		Long: `Scan every image under --dir through the grading pipeline and print the
review table. With --commit the complete batch is stored as graded
submissions; a batch with incomplete essays is refused and left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.classID, "class", "", "Class ID (required)")
	f.StringVar(&o.activityID, "activity", "", "Activity ID (required)")
	f.StringVar(&o.dir, "dir", "", "Directory of essay images (required)")
	f.StringVar(&o.teacher, "teacher", "", "Teacher user ID (defaults to the first configured teacher token)")
	f.StringVar(&o.seed, "seed", "", "Seed YAML applied before scanning")
	f.BoolVar(&o.commit, "commit", false, "Commit the batch when every essay is complete")
	f.StringVar(&o.out, "out", "", "After a commit, export the activity's grades to this XLSX path")
	f.BoolVar(&o.noEvents, "no-events", false, "Do not publish batch events even if REDIS_URL is set")
	for _, name := range []string{"class", "activity", "dir"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runScan(cmd *cobra.Command, o scanOptions) error {
	ctx := cmd.Context()
	logger := slog.Default()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg, logger, app.Options{InMemory: inmem, NoEvents: o.noEvents})
	if err != nil {
		return err
	}
	defer a.Close()

	if o.seed != "" {
		if _, err := seedFromPath(ctx, a.DB, o.seed, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	images, _, stats, err := ingest.LoadDirectory(ctx, o.dir, ingest.Options{SkipHidden: true})
	if err != nil {
		return err
	}
	logger.Info("scan.dir.loaded", "dir", o.dir, "matched", stats.Matched, "failed", stats.Failed)
	if len(images) == 0 {
		return common.InvalidArgumentErrorf("no images found under %s", o.dir)
	}

	teacher := teacherIdentity(cfg, o.teacher)
	sc, err := a.Manager.Start(ctx, teacher, o.classID, o.activityID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Manager.Discard(sc.ID(), teacher) }()

	rejected := 0
	for _, img := range images {
		ok, err := intakeOne(ctx, sc, img)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("scan.image.rejected", "filename", img.Filename)
			rejected++
		}
	}
	if err := sc.Wait(ctx); err != nil {
		return err
	}

	t := sc.Target()
	fmt.Fprintf(out, "%s / %s: %d essays, %d rejected\n", t.Class.Name, t.Activity.Title, sc.Ledger().Len(), rejected)
	renderEssays(out, sc.Essays())

	if blocking := sc.Ledger().Blocking(); len(blocking) > 0 {
		fmt.Fprintln(out, "\nincomplete:")
		for _, b := range blocking {
			fmt.Fprintf(out, "  %s %s: %s\n", b.TempID, b.Filename, strings.Join(b.Reasons, ", "))
		}
	}
	if !o.commit {
		fmt.Fprintln(out, "\nnothing stored, rerun with --commit to save")
		return nil
	}

	res, err := sc.Commit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ncommitted %d submissions, cleared %d essays\n", len(res.Submissions), res.Cleared)
	if o.out != "" {
		return writeExport(cmd, a.Exporter, o.activityID, o.out)
	}
	return nil
}

// intakeOne queues a single image, waiting for the pipeline to drain when the
// queue is full. It reports false for images the batch will not accept.
func intakeOne(ctx context.Context, sc *batch.Scanner, img entity.Image) (bool, error) {
	for {
		_, err := sc.Intake(ctx, img)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, batch.ErrQueueFull):
			if err := sc.Wait(ctx); err != nil {
				return false, err
			}
		case errors.Is(err, batch.ErrUnsupportedImage):
			return false, nil
		default:
			return false, err
		}
	}
}

func teacherIdentity(cfg *common.Config, userID string) auth.Identity {
	for _, tok := range cfg.Auth.Tokens {
		if auth.Role(tok.Role) == auth.RoleStudent {
			continue
		}
		if userID == "" || tok.UserID == userID {
			return auth.Identity{UserID: tok.UserID, Name: tok.Name, Role: auth.RoleTeacher}
		}
	}
	if userID == "" {
		userID = "local-teacher"
	}
	return auth.Identity{UserID: userID, Role: auth.RoleTeacher}
}

func renderEssays(w io.Writer, essays []entity.ProcessedEssay) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "File", "Status", "Student", "Confidence", "Score", "Feedback"})
	table.SetAutoWrapText(false)
	for _, e := range essays {
		confidence := ""
		if e.ShowConfidence() && e.AIConfidenceScore != nil {
			confidence = fmt.Sprintf("%.0f%%", *e.AIConfidenceScore*100)
		}
		feedback := deref(e.FinalFeedback)
		if e.ErrorMessage != nil {
			feedback = *e.ErrorMessage
		}
		table.Append([]string{
			e.TempID[:min(8, len(e.TempID))],
			e.Filename,
			string(e.Status),
			deref(e.FinalStudentName),
			confidence,
			deref(e.FinalScore),
			clip(feedback, 60),
		})
	}
	table.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
