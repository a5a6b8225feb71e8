package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	"github.com/joseph-ayodele/snapcheck/internal/imaging"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

// Compressor bounds an image before OCR and upload.
type Compressor interface {
	Compress(ctx context.Context, img entity.Image) (imaging.Result, error)
}

// Job identifies one essay of one batch.
type Job struct {
	BatchID string
	TempID  string
	Ledger  *Ledger
	Target  *Target
}

// Pipeline turns one uploaded image into a reviewable essay:
// compress, extract text, grade, identify student. Steps run strictly in
// order; the first failure marks the essay as errored and stops.
type Pipeline struct {
	compressor  Compressor
	extractor   llm.TextExtractor
	grader      llm.EssayGrader
	identifier  llm.StudentIdentifier
	notifier    Notifier
	metrics     *Metrics
	stepTimeout time.Duration
	logger      *slog.Logger
}

type PipelineOption func(*Pipeline)

func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

func WithMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithStepTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

func NewPipeline(c Compressor, x llm.TextExtractor, g llm.EssayGrader, id llm.StudentIdentifier, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		compressor:  c,
		extractor:   x,
		grader:      g,
		identifier:  id,
		notifier:    NopNotifier{},
		stepTimeout: 2 * time.Minute,
		logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// errDiscarded stops a run whose record was removed from the ledger.
var errDiscarded = errors.New("essay removed from batch")

// Run drives one essay to review or error and returns the terminal status.
// If the record is removed mid-run, late results are dropped and Run returns "".
func (p *Pipeline) Run(ctx context.Context, job Job) constants.EssayStatus {
	start := time.Now()
	log := p.logger.With("batch_id", job.BatchID, "temp_id", job.TempID)

	rec, ok := job.Ledger.Get(job.TempID)
	if !ok {
		log.Info("batch.pipeline.discarded", "step", "start")
		return ""
	}
	log.Info("batch.pipeline.start", "filename", rec.Filename)

	step, err := p.run(ctx, job, rec)
	switch {
	case errors.Is(err, errDiscarded):
		log.Info("batch.pipeline.discarded", "step", step, "elapsed_ms", time.Since(start).Milliseconds())
		p.metrics.item("discarded")
		return ""
	case err != nil:
		msg := describe(step, err)
		if !job.Ledger.apply(job.TempID, func(e *entity.ProcessedEssay) {
			e.Status = constants.EssayStatusError
			e.ErrorMessage = strPtr(msg)
		}) {
			log.Info("batch.pipeline.discarded", "step", step)
			p.metrics.item("discarded")
			return ""
		}
		log.Error("batch.pipeline.failed", "step", step, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		p.metrics.item("error")
		p.notify(ctx, job, EventEssayFailed, msg)
		return constants.EssayStatusError
	}

	log.Info("batch.pipeline.ok", "elapsed_ms", time.Since(start).Milliseconds())
	p.metrics.item("review")
	p.notify(ctx, job, EventEssayReviewed, "")
	return constants.EssayStatusReview
}

func (p *Pipeline) run(ctx context.Context, job Job, rec entity.ProcessedEssay) (string, error) {
	if !rec.Source.Present() {
		return "compress", fmt.Errorf("%w: no image data", ErrUnsupportedImage)
	}

	// 1. compress
	var compressed imaging.Result
	err := p.step(ctx, "compress", func(ctx context.Context) (err error) {
		compressed, err = p.compressor.Compress(ctx, *rec.Source)
		return err
	})
	if err != nil {
		return "compress", err
	}
	if !job.Ledger.apply(job.TempID, func(e *entity.ProcessedEssay) {
		e.Source = compressed.Image(rec.Filename)
		e.ImageURL = compressed.DataURL
	}) {
		return "compress", errDiscarded
	}

	// 2. extract text
	var text string
	err = p.step(ctx, "extract", func(ctx context.Context) error {
		out, err := p.extractor.ExtractText(ctx, llm.ImageInput{Data: compressed.Data, ContentType: compressed.ContentType})
		text = out.Text
		return err
	})
	if err != nil {
		return "extract", err
	}
	if strings.TrimSpace(text) == "" {
		text = constants.UnreadableTextPlaceholder
	}
	if !job.Ledger.apply(job.TempID, func(e *entity.ProcessedEssay) {
		e.ExtractedText = strPtr(text)
	}) {
		return "extract", errDiscarded
	}

	// 3. grade
	var grade llm.Grade
	err = p.step(ctx, "grade", func(ctx context.Context) (err error) {
		grade, err = p.grader.GradeEssay(ctx, llm.GradeRequest{
			EssayText:           text,
			Rubric:              job.Target.Activity.Rubric,
			ActivityDescription: job.Target.Activity.Description,
		})
		return err
	})
	if err != nil {
		return "grade", err
	}
	if !job.Ledger.apply(job.TempID, func(e *entity.ProcessedEssay) {
		e.AIScore = strPtr(grade.PreliminaryScore)
		e.AIFeedback = strPtr(grade.Feedback)
		e.FinalScore = optional(strings.TrimSpace(grade.PreliminaryScore))
		e.FinalFeedback = optional(strings.TrimSpace(grade.Feedback))
	}) {
		return "grade", errDiscarded
	}

	// 4. identify
	var ident llm.Identification
	err = p.step(ctx, "identify", func(ctx context.Context) (err error) {
		ident, err = p.identifier.IdentifyStudent(ctx, llm.IdentifyRequest{
			EssayText: text,
			Roster:    job.Target.RosterEntries(),
		})
		return err
	})
	if err != nil {
		return "identify", err
	}
	if !job.Ledger.apply(job.TempID, func(e *entity.ProcessedEssay) {
		e.AIIdentifiedStudentID = ident.StudentID
		e.AIIdentifiedStudentName = ident.StudentName
		e.AIConfidenceScore = &ident.Confidence
		e.AIConfidenceReason = strPtr(ident.Reason)

		e.FinalStudentID, e.FinalStudentName = nil, nil
		if ident.StudentID != nil {
			e.FinalStudentID = strPtr(*ident.StudentID)
			if s, ok := job.Target.LookupStudent(*ident.StudentID); ok {
				e.FinalStudentName = strPtr(s.Name)
			}
		}
		e.Status = constants.EssayStatusReview
	}) {
		return "identify", errDiscarded
	}
	return "", nil
}

func (p *Pipeline) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := common.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	p.metrics.observeStep(name, start, err)
	return err
}

func (p *Pipeline) notify(ctx context.Context, job Job, typ EventType, msg string) {
	ev := Event{
		Type:    typ,
		BatchID: job.BatchID,
		TempID:  job.TempID,
		Message: msg,
		At:      time.Now().UTC(),
	}
	if job.Target != nil {
		ev.ClassID = job.Target.Class.ID
		ev.ActivityID = job.Target.Activity.ID
		ev.TeacherID = job.Target.Class.TeacherID
	}
	p.notifier.Notify(context.WithoutCancel(ctx), ev)
}

// describe renders a step failure for the teacher.
func describe(step string, err error) string {
	var le *llm.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s timed out", stepLabel(step))
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s was cancelled", stepLabel(step))
	case errors.Is(err, imaging.ErrUnsupportedImage):
		return "image could not be read: " + err.Error()
	case errors.As(err, &le):
		return fmt.Sprintf("%s failed: %s", stepLabel(step), le.Message)
	}
	return fmt.Sprintf("%s failed: %v", stepLabel(step), err)
}

func stepLabel(step string) string {
	switch step {
	case "compress":
		return "image compression"
	case "extract":
		return "text extraction"
	case "grade":
		return "grading"
	case "identify":
		return "student identification"
	}
	return step
}
