package llm

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/snapcheck/constants"
)

const jsonOnly = "Return ONLY a JSON object that matches the JSON Schema provided. No prose, no code fences."

func extractPrompts() (system, user string) {
	system = strings.Join([]string{
		"You transcribe photographs of handwritten or printed student essays.",
		"Copy the text exactly as written, keeping paragraph breaks. Do not correct spelling or grammar.",
		"Ignore ruled lines, margins, page numbers and doodles.",
		"If nothing is legible, return an empty string for extractedText.",
		jsonOnly,
	}, " ")
	user = "Transcribe the essay in the attached image."
	return system, user
}

func gradePrompts(req GradeRequest) (system, user string) {
	parts := []string{
		"You are an experienced teacher grading a student essay.",
		"Apply the rubric strictly and give a preliminary score in the rubric's own scale (for example \"8/10\" or \"B+\").",
		"Feedback should be two to five sentences addressed to the student: one strength, the main weakness and a concrete next step.",
		jsonOnly,
	}
	system = strings.Join(parts, " ")

	var b strings.Builder
	if d := strings.TrimSpace(req.ActivityDescription); d != "" {
		b.WriteString("Assignment:\n")
		b.WriteString(d)
		b.WriteString("\n\n")
	}
	b.WriteString("Rubric:\n")
	if r := strings.TrimSpace(req.Rubric); r != "" {
		b.WriteString(r)
	} else {
		b.WriteString("(none provided; grade on clarity, structure, evidence and mechanics out of 10)")
	}
	b.WriteString("\n\nEssay:\n")
	b.WriteString(Truncate(req.EssayText, constants.MaxPromptEssayChars))
	return system, b.String()
}

func identifyPrompts(req IdentifyRequest) (system, user string) {
	system = strings.Join([]string{
		"You match an essay to its author from a class roster.",
		"Look for a written name, initials or signature in the text, usually at the top or bottom.",
		"Only return an id that appears in the roster. If no student can be matched, return null for both identifiedStudentId and identifiedStudentName.",
		"confidenceScore is between 0 and 1. confidenceReason briefly says what the match is based on.",
		jsonOnly,
	}, " ")

	roster, _ := json.Marshal(req.Roster)
	var b strings.Builder
	b.WriteString("Roster:\n")
	b.Write(roster)
	b.WriteString("\n\nEssay:\n")
	b.WriteString(Truncate(req.EssayText, constants.MaxPromptEssayChars))
	return system, b.String()
}

func grammarPrompts(essay string) (system, user string) {
	system = strings.Join([]string{
		"You proofread student essays.",
		"Return the full essay as HTML paragraphs. Wrap each removed or wrong word in <del> and its correction in <ins>.",
		"Do not rewrite style or change meaning; only fix grammar, spelling and punctuation.",
		jsonOnly,
	}, " ")
	return system, Truncate(essay, constants.MaxPromptEssayChars)
}

// SchemaHint renders a schema for inclusion in a prompt.
func SchemaHint(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return "JSON Schema:\n" + string(b)
}
