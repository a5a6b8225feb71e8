package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/snapcheck/constants"
)

func str(s string) *string { return &s }

func reviewedEssay() ProcessedEssay {
	conf := 0.9
	return ProcessedEssay{
		TempID:                "t1",
		Source:                &Image{Data: []byte("jpeg")},
		Status:                constants.EssayStatusReview,
		ExtractedText:         str("text"),
		AIIdentifiedStudentID: str("s1"),
		AIConfidenceScore:     &conf,
		FinalStudentID:        str("s1"),
		FinalStudentName:      str("Ada Lovelace"),
		FinalScore:            str("8/10"),
		FinalFeedback:         str("Vivid."),
	}
}

func TestProcessedEssay_CompletenessOnReturnedValues(t *testing.T) {
	assert.True(t, reviewedEssay().IsComplete())
	assert.Empty(t, reviewedEssay().MissingFields())
	assert.Equal(t, constants.EssayStatusReady, reviewedEssay().DisplayStatus())
	assert.True(t, reviewedEssay().ShowConfidence())

	tests := []struct {
		name    string
		mutate  func(e *ProcessedEssay)
		missing []string
	}{
		{"blank score", func(e *ProcessedEssay) { e.FinalScore = str("  ") }, []string{"score"}},
		{"no student", func(e *ProcessedEssay) { e.FinalStudentID, e.FinalStudentName = nil, nil }, []string{"student", "student name"}},
		{"image released", func(e *ProcessedEssay) { e.Source.Data = nil }, []string{"image"}},
		{"no text", func(e *ProcessedEssay) { e.ExtractedText = nil }, []string{"extracted text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := reviewedEssay()
			tt.mutate(&e)
			assert.False(t, e.IsComplete())
			assert.Equal(t, tt.missing, e.MissingFields())
			assert.Equal(t, constants.EssayStatusReview, e.DisplayStatus())
		})
	}

	processing := reviewedEssay()
	processing.Status = constants.EssayStatusProcessing
	assert.False(t, processing.IsComplete())
}

func TestProcessedEssay_OverrideHidesConfidence(t *testing.T) {
	e := reviewedEssay()
	e.FinalStudentID = str("s2")
	assert.False(t, e.ShowConfidence())
}

func TestProcessedEssay_CloneSharesNoPointers(t *testing.T) {
	orig := reviewedEssay()
	c := orig.Clone()
	*c.FinalScore = "0"
	c.Source.Filename = "other"
	assert.Equal(t, "8/10", *orig.FinalScore)
	assert.Empty(t, orig.Source.Filename)
}
