package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/blob"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// SubmissionWriter stores a set of submissions all-or-nothing.
type SubmissionWriter interface {
	CreateBatch(ctx context.Context, subs []*entity.Submission) error
}

// CommitResult summarizes a successful commit.
type CommitResult struct {
	Submissions []*entity.Submission
	Cleared     int // records removed from the ledger, including errored ones
}

// Committer persists a batch's complete essays as graded submissions.
type Committer struct {
	blobs    blob.Store
	writer   SubmissionWriter
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewCommitter(blobs blob.Store, writer SubmissionWriter, notifier Notifier, metrics *Metrics, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Committer{
		blobs:    blobs,
		writer:   writer,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CommitAll uploads every complete essay's image, then writes one Graded
// submission per essay in a single atomic batch. It refuses to start when
// nothing is complete or any record is blocking. An upload failure aborts
// before anything is written; already-uploaded images are left behind. A
// write failure leaves the ledger untouched. On success the committed and
// errored records are removed; anything that arrived since the snapshot stays.
func (c *Committer) CommitAll(ctx context.Context, batchID string, ledger *Ledger, target *Target, teacher auth.Identity) (CommitResult, error) {
	start := time.Now()
	log := c.logger.With("batch_id", batchID)

	snap := ledger.Snapshot()
	complete := snap.Complete
	if len(complete) == 0 {
		c.metrics.commit("refused", 0)
		return CommitResult{}, ErrNothingToCommit
	}
	if len(snap.Blocking) > 0 {
		log.Warn("batch.commit.refused", "complete", len(complete), "blocking", len(snap.Blocking))
		c.metrics.commit("refused", 0)
		return CommitResult{}, &CommitRefusedError{Blocking: snap.Blocking}
	}

	urls := make([]string, len(complete))
	for i, e := range complete {
		key := blob.SubmissionKey(target.Class.ID, target.Activity.ID, *e.FinalStudentID, e.TempID)
		u, err := c.blobs.Put(ctx, key, e.Source.Data, e.Source.ContentType)
		if err != nil {
			log.Error("batch.commit.upload_failed", "temp_id", e.TempID, "uploaded", i, "error", err)
			c.metrics.commit("upload_error", 0)
			return CommitResult{}, &UploadError{TempID: e.TempID, Filename: e.Filename, Uploaded: i, Err: err}
		}
		urls[i] = u
	}

	now := c.now()
	subs := make([]*entity.Submission, len(complete))
	for i, e := range complete {
		subs[i] = &entity.Submission{
			ID:             uuid.NewString(),
			StudentID:      *e.FinalStudentID,
			StudentName:    *e.FinalStudentName,
			AssignmentName: target.Activity.Title,
			ActivityID:     target.Activity.ID,
			ClassID:        target.Class.ID,
			EssayText:      *e.ExtractedText,
			EssayImageURL:  urls[i],
			SubmittedAt:    now,
			Status:         constants.SubmissionStatusGraded,
			Grade:          *e.FinalScore,
			Feedback:       *e.FinalFeedback,
			GradedBy:       teacher.UserID,
		}
	}

	if err := c.writer.CreateBatch(ctx, subs); err != nil {
		log.Error("batch.commit.write_failed", "count", len(subs), "error", err)
		c.metrics.commit("write_error", 0)
		return CommitResult{}, &WriteError{Count: len(subs), Err: err}
	}

	cleared := ledger.Settle(snap.IDs())
	log.Info("batch.commit.ok",
		"submissions", len(subs),
		"cleared", cleared,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	c.metrics.commit("ok", len(subs))
	c.notifier.Notify(context.WithoutCancel(ctx), Event{
		Type:       EventBatchCommitted,
		BatchID:    batchID,
		TeacherID:  teacher.UserID,
		ClassID:    target.Class.ID,
		ActivityID: target.Activity.ID,
		Count:      len(subs),
		At:         now,
	})
	return CommitResult{Submissions: subs, Cleared: cleared}, nil
}
