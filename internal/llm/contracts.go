package llm

import (
	"context"
	"fmt"
)

// Op names one LLM-backed operation.
type Op string

const (
	OpExtractText     Op = "extract_text"
	OpGradeEssay      Op = "grade_essay"
	OpIdentifyStudent Op = "identify_student"
	OpAnnotateGrammar Op = "annotate_grammar"
)

// ImageInput is an image attached to a completion.
type ImageInput struct {
	Data        []byte
	ContentType string
}

// Extraction is the OCR result. Text may be empty when nothing was legible.
type Extraction struct {
	Text string `json:"extractedText"`
}

type GradeRequest struct {
	EssayText           string
	Rubric              string
	ActivityDescription string
}

// Grade is the preliminary, teacher-editable grading output.
type Grade struct {
	PreliminaryScore string `json:"preliminaryScore"`
	Feedback         string `json:"feedback"`
}

// RosterEntry is a candidate author for student identification.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type IdentifyRequest struct {
	EssayText string
	Roster    []RosterEntry
}

// Identification is the student-matching output. StudentID and StudentName
// are nil when the model could not attribute the essay.
type Identification struct {
	StudentID   *string `json:"identifiedStudentId"`
	StudentName *string `json:"identifiedStudentName"`
	Confidence  float64 `json:"confidenceScore"`
	Reason      string  `json:"confidenceReason"`
}

// GrammarAnnotation carries the essay with corrections marked up as HTML.
type GrammarAnnotation struct {
	CorrectedHTML string `json:"correctedHtml"`
}

// TextExtractor transcribes an essay image.
type TextExtractor interface {
	ExtractText(ctx context.Context, img ImageInput) (Extraction, error)
}

// EssayGrader grades essay text against a rubric.
type EssayGrader interface {
	GradeEssay(ctx context.Context, req GradeRequest) (Grade, error)
}

// StudentIdentifier attributes essay text to a roster entry.
type StudentIdentifier interface {
	IdentifyStudent(ctx context.Context, req IdentifyRequest) (Identification, error)
}

// GrammarAnnotator marks grammar and spelling corrections.
type GrammarAnnotator interface {
	AnnotateGrammar(ctx context.Context, essayText string) (GrammarAnnotation, error)
}

// CompletionRequest is a provider-neutral structured completion.
type CompletionRequest struct {
	Op     Op
	System string
	User   string
	Image  *ImageInput
	Schema map[string]any
}

// Transport sends one completion and returns the raw JSON document the model produced.
type Transport interface {
	Complete(ctx context.Context, req CompletionRequest) ([]byte, error)
	Name() string
}

// Error is the failure side of every LLM operation.
type Error struct {
	Op      Op
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
