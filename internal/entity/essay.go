package entity

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/snapcheck/constants"
)

// Image is an uploaded essay image held in memory.
type Image struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// Present reports whether the image still holds bytes.
func (i *Image) Present() bool {
	return i != nil && len(i.Data) > 0
}

// ProcessedEssay is one scanned essay inside a batch session. It lives only
// in memory until the batch is committed or discarded.
type ProcessedEssay struct {
	TempID   string    `json:"temp_id"`
	Filename string    `json:"filename,omitempty"`
	Source   *Image    `json:"-"`
	ImageURL string    `json:"image_url,omitempty"`
	Created  time.Time `json:"created_at"`

	ExtractedText *string `json:"extracted_text,omitempty"`

	AIScore                 *string  `json:"ai_score,omitempty"`
	AIFeedback              *string  `json:"ai_feedback,omitempty"`
	AIIdentifiedStudentID   *string  `json:"ai_identified_student_id,omitempty"`
	AIIdentifiedStudentName *string  `json:"ai_identified_student_name,omitempty"`
	AIConfidenceScore       *float64 `json:"ai_confidence_score,omitempty"`
	AIConfidenceReason      *string  `json:"ai_confidence_reason,omitempty"`

	FinalStudentID   *string `json:"final_student_id,omitempty"`
	FinalStudentName *string `json:"final_student_name,omitempty"`
	FinalScore       *string `json:"final_score,omitempty"`
	FinalFeedback    *string `json:"final_feedback,omitempty"`

	Status       constants.EssayStatus `json:"status"`
	ErrorMessage *string               `json:"error_message,omitempty"`
}

// IsComplete reports whether the essay can be committed.
func (e ProcessedEssay) IsComplete() bool {
	if e.Status == constants.EssayStatusProcessing || e.Status == constants.EssayStatusError {
		return false
	}
	return len(e.MissingFields()) == 0
}

// MissingFields lists the persistence preconditions the essay does not meet.
func (e ProcessedEssay) MissingFields() []string {
	var missing []string
	if blank(e.FinalStudentID) {
		missing = append(missing, "student")
	}
	if blank(e.FinalStudentName) {
		missing = append(missing, "student name")
	}
	if blank(e.FinalScore) {
		missing = append(missing, "score")
	}
	if blank(e.FinalFeedback) {
		missing = append(missing, "feedback")
	}
	if !e.Source.Present() {
		missing = append(missing, "image")
	}
	if e.ExtractedText == nil {
		missing = append(missing, "extracted text")
	}
	return missing
}

// DisplayStatus reports ready for complete review records.
func (e ProcessedEssay) DisplayStatus() constants.EssayStatus {
	if e.Status == constants.EssayStatusReview && e.IsComplete() {
		return constants.EssayStatusReady
	}
	return e.Status
}

// ShowConfidence is true while the teacher kept the AI's student choice.
func (e ProcessedEssay) ShowConfidence() bool {
	if e.AIConfidenceScore == nil || e.AIIdentifiedStudentID == nil || e.FinalStudentID == nil {
		return false
	}
	return *e.AIIdentifiedStudentID == *e.FinalStudentID
}

// Clone returns a copy that shares no mutable state with e. Image bytes are
// not copied; callers treat them as read-only.
func (e ProcessedEssay) Clone() ProcessedEssay {
	c := e
	if e.Source != nil {
		img := *e.Source
		c.Source = &img
	}
	c.ExtractedText = clonePtr(e.ExtractedText)
	c.AIScore = clonePtr(e.AIScore)
	c.AIFeedback = clonePtr(e.AIFeedback)
	c.AIIdentifiedStudentID = clonePtr(e.AIIdentifiedStudentID)
	c.AIIdentifiedStudentName = clonePtr(e.AIIdentifiedStudentName)
	c.AIConfidenceScore = clonePtr(e.AIConfidenceScore)
	c.AIConfidenceReason = clonePtr(e.AIConfidenceReason)
	c.FinalStudentID = clonePtr(e.FinalStudentID)
	c.FinalStudentName = clonePtr(e.FinalStudentName)
	c.FinalScore = clonePtr(e.FinalScore)
	c.FinalFeedback = clonePtr(e.FinalFeedback)
	c.ErrorMessage = clonePtr(e.ErrorMessage)
	return c
}

func blank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
