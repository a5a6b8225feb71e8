package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/imaging"
)

var (
	ErrQueueFull        = fmt.Errorf("intake queue is full: %w", common.ErrUnavailable)
	ErrQueueClosed      = fmt.Errorf("intake queue is closed: %w", common.ErrPrecondition)
	ErrNoSelection      = fmt.Errorf("select a class and activity first: %w", common.ErrPrecondition)
	ErrCommitInProgress = fmt.Errorf("a commit is in progress: %w", common.ErrConflict)
	ErrNothingToCommit  = fmt.Errorf("no complete essays to commit: %w", common.ErrPrecondition)
	ErrNotEditable      = fmt.Errorf("essay is not in review: %w", common.ErrPrecondition)
	ErrUnknownStudent   = fmt.Errorf("student is not on the class roster: %w", common.ErrInvalidInput)
	ErrUnknownField     = fmt.Errorf("unknown essay field: %w", common.ErrInvalidInput)
	ErrEssayNotFound    = fmt.Errorf("essay: %w", common.ErrNotFound)
	ErrBatchClosed      = fmt.Errorf("batch is closed: %w", common.ErrPrecondition)

	// ErrUnsupportedImage is re-exported so callers need not import imaging.
	ErrUnsupportedImage = imaging.ErrUnsupportedImage
)

// Blocker is one record that prevents a commit.
type Blocker struct {
	TempID   string   `json:"temp_id"`
	Filename string   `json:"filename,omitempty"`
	Reasons  []string `json:"reasons"`
}

// CommitRefusedError reports why a commit did not start. Nothing was uploaded
// or written.
type CommitRefusedError struct {
	Blocking []Blocker
}

func (e *CommitRefusedError) Error() string {
	parts := make([]string, 0, len(e.Blocking))
	for _, b := range e.Blocking {
		name := b.Filename
		if name == "" {
			name = b.TempID
		}
		parts = append(parts, name+": "+strings.Join(b.Reasons, ", "))
	}
	return fmt.Sprintf("commit refused: %d essay(s) blocking (%s)", len(e.Blocking), strings.Join(parts, "; "))
}

func (e *CommitRefusedError) Unwrap() error { return common.ErrPrecondition }

// UploadError aborts a commit when one image could not be stored. Images
// uploaded before it are left in place.
type UploadError struct {
	TempID   string
	Filename string
	Uploaded int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s failed after %d upload(s): %v", e.Filename, e.Uploaded, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{e.Err, common.ErrUpstreamFailed} }

// WriteError means the atomic submission write failed and nothing was persisted.
type WriteError struct {
	Count int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("saving %d submission(s) failed: %v", e.Count, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsSetupError reports errors from loading reference data.
func IsSetupError(err error) bool {
	var ae *common.AppError
	return errors.As(err, &ae) && ae.Code == codeSetup
}
