package entity

import (
	"time"

	"github.com/joseph-ayodele/snapcheck/constants"
)

// Submission is a persisted essay submission.
type Submission struct {
	ID             string                     `json:"id"`
	StudentID      string                     `json:"student_id"`
	StudentName    string                     `json:"student_name"`
	AssignmentName string                     `json:"assignment_name"`
	ActivityID     string                     `json:"activity_id"`
	ClassID        string                     `json:"class_id"`
	EssayText      string                     `json:"essay_text"`
	EssayImageURL  string                     `json:"essay_image_url,omitempty"`
	SubmittedAt    time.Time                  `json:"submitted_at"`
	Status         constants.SubmissionStatus `json:"status"`
	Grade          string                     `json:"grade,omitempty"`
	Feedback       string                     `json:"feedback,omitempty"`
	GradedBy       string                     `json:"graded_by,omitempty"`
}
