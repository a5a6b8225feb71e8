// Package batch scans a stack of essay images into graded submissions: intake,
// a one-at-a-time AI pipeline, teacher review and an atomic commit.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// Deps are the collaborators shared by every scanner.
type Deps struct {
	Pipeline  *Pipeline
	Committer *Committer
	Metrics   *Metrics
	Logger    *slog.Logger
	QueueSize int
}

// Scanner is one batch session: a teacher, a class/activity selection, the
// ledger of scanned essays and the queue feeding the pipeline.
type Scanner struct {
	id        string
	session   *auth.Session
	target    *Target
	ledger    *Ledger
	queue     *IntakeQueue
	pipeline  *Pipeline
	committer *Committer
	metrics   *Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	committing bool
	closed     bool
	lastActive time.Time
}

// NewScanner starts a batch for an open teacher session. The scanner closes
// itself when the session ends.
func NewScanner(session *auth.Session, target *Target, deps Deps) (*Scanner, error) {
	if session == nil {
		return nil, fmt.Errorf("batch: session is required")
	}
	if err := session.RequireTeacher(); err != nil {
		return nil, err
	}
	if target == nil || target.Class == nil || target.Activity == nil {
		return nil, ErrNoSelection
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	s := &Scanner{
		id:         id,
		session:    session,
		target:     target,
		ledger:     NewLedger(target),
		pipeline:   deps.Pipeline,
		committer:  deps.Committer,
		metrics:    deps.Metrics,
		lastActive: time.Now(),
		logger: logger.With(
			"batch_id", id,
			"teacher_id", session.Identity().UserID,
			"class_id", target.Class.ID,
			"activity_id", target.Activity.ID,
		),
	}
	s.queue = NewIntakeQueue(func(ctx context.Context, tempID string) {
		s.pipeline.Run(ctx, Job{BatchID: s.id, TempID: tempID, Ledger: s.ledger, Target: s.target})
	}, s.logger, WithQueueSize(deps.QueueSize), WithQueueMetrics(deps.Metrics))
	s.queue.Start()

	session.OnEnd(s.Close)
	s.metrics.batchDelta(1)
	s.logger.Info("batch.scanner.started", "roster", len(target.Roster))
	return s, nil
}

func (s *Scanner) ID() string { return s.id }

func (s *Scanner) Target() *Target { return s.target }

func (s *Scanner) Owner() auth.Identity { return s.session.Identity() }

func (s *Scanner) Ledger() *Ledger { return s.ledger }

// LastActive is the time of the last teacher action.
func (s *Scanner) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// guardLocked checks the batch accepts a mutation and records activity.
// Callers hold s.mu until the mutation is applied, so a commit cannot start
// in between.
func (s *Scanner) guardLocked() error {
	if s.closed || !s.session.Active() {
		return ErrBatchClosed
	}
	if s.committing {
		return ErrCommitInProgress
	}
	s.lastActive = time.Now()
	return nil
}

// Intake validates every image, then adds a processing placeholder for each
// one and queues it, in order. Validation failures reject the whole call. If
// the queue fills up, images accepted so far stay and the rest are refused.
func (s *Scanner) Intake(ctx context.Context, images ...entity.Image) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return nil, err
	}
	for i := range images {
		if err := checkImage(&images[i]); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		tempID := uuid.NewString()
		src := img
		rec := entity.ProcessedEssay{
			TempID:   tempID,
			Filename: img.Filename,
			Source:   &src,
			Created:  time.Now().UTC(),
			Status:   constants.EssayStatusProcessing,
		}
		if err := s.ledger.Add(rec); err != nil {
			return ids, err
		}
		if err := s.queue.Enqueue(tempID); err != nil {
			s.ledger.Remove(tempID)
			s.logger.Warn("batch.intake.rejected", "filename", img.Filename, "error", err)
			return ids, err
		}
		ids = append(ids, tempID)
	}
	s.logger.Info("batch.intake.ok", "accepted", len(ids), "pending", s.queue.Pending())
	return ids, nil
}

// checkImage fills a missing content type and rejects unsupported inputs.
func checkImage(img *entity.Image) error {
	name := img.Filename
	if name == "" {
		name = "image"
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrUnsupportedImage, name)
	}
	if len(img.Data) > constants.MaxIntakeBytes {
		return fmt.Errorf("%w: %s is larger than %d MiB", ErrUnsupportedImage, name, constants.MaxIntakeBytes>>20)
	}
	ext := filepath.Ext(img.Filename)
	if ext != "" && constants.IsAllowedImageExt(ext) {
		if img.ContentType == "" {
			img.ContentType = constants.ContentTypeForExt(ext)
		}
		return nil
	}
	sniffed := http.DetectContentType(img.Data)
	if strings.HasPrefix(sniffed, "image/") && sniffed != "image/bmp" && sniffed != "image/x-icon" {
		if img.ContentType == "" {
			img.ContentType = sniffed
		}
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedImage, name, sniffed)
}

// Essays returns a snapshot of the ledger in intake order.
func (s *Scanner) Essays() []entity.ProcessedEssay {
	return s.ledger.List()
}

func (s *Scanner) Update(tempID string, field Field, value string) (entity.ProcessedEssay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return entity.ProcessedEssay{}, err
	}
	e, err := s.ledger.Update(tempID, field, value)
	if err != nil {
		return e, err
	}
	s.logger.Debug("batch.essay.updated", "temp_id", tempID, "field", field)
	return e, nil
}

// Remove discards one essay. A running pipeline for it keeps going but its
// results are dropped.
func (s *Scanner) Remove(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return err
	}
	if !s.ledger.Remove(tempID) {
		return fmt.Errorf("%w: %s", ErrEssayNotFound, tempID)
	}
	s.logger.Info("batch.essay.removed", "temp_id", tempID)
	return nil
}

// Wait blocks until every queued essay reached review or error.
func (s *Scanner) Wait(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// Commit persists all complete essays. Intake and edits are refused while it runs.
func (s *Scanner) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	switch {
	case s.closed || !s.session.Active():
		s.mu.Unlock()
		return CommitResult{}, ErrBatchClosed
	case s.committing:
		s.mu.Unlock()
		return CommitResult{}, ErrCommitInProgress
	}
	s.committing = true
	s.lastActive = time.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.committing = false
		s.mu.Unlock()
	}()
	return s.committer.CommitAll(ctx, s.id, s.ledger, s.target, s.session.Identity())
}

// Close stops the queue and releases every essay. Safe to call more than once.
func (s *Scanner) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.queue.Shutdown(ctx)
	n := s.ledger.Clear()
	s.metrics.batchDelta(-1)
	s.logger.Info("batch.scanner.closed", "discarded", n)
}

func (s *Scanner) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
