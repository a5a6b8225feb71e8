package constants

// EssayStatus is the lifecycle state of a processed essay inside a batch.
type EssayStatus string

const (
	EssayStatusProcessing EssayStatus = "processing" // pipeline running
	EssayStatusReview     EssayStatus = "review"     // all steps done, awaiting teacher
	EssayStatusReady      EssayStatus = "ready"      // review + complete (display only)
	EssayStatusError      EssayStatus = "error"      // terminal failure
)

// SubmissionStatus is the canonical status stored on submission rows.
type SubmissionStatus string

// Stable values (store these exact strings in DB).
const (
	SubmissionStatusSubmitted SubmissionStatus = "Submitted"
	SubmissionStatusGraded    SubmissionStatus = "Graded"
)
