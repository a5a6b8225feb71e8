package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(StripFences([]byte(tt.in))))
		})
	}
}

func TestSanitize_NullExtraction(t *testing.T) {
	out, changed, err := Sanitize(OpExtractText, []byte(`{"extractedText":null}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"extractedText":""}`, string(out))
	assert.Contains(t, changed, "extractedText(null)")
	require.NoError(t, ValidateJSONAgainstSchema(ExtractionSchema(), out))
}

func TestSanitize_IdentificationMissingFields(t *testing.T) {
	out, _, err := Sanitize(OpIdentifyStudent, []byte(`{"confidenceScore":1.5}`))
	require.NoError(t, err)
	require.NoError(t, ValidateJSONAgainstSchema(IdentificationSchema(), out))
	assert.JSONEq(t, `{"identifiedStudentId":null,"identifiedStudentName":null,"confidenceScore":0.015,"confidenceReason":""}`, string(out))
}

func TestSanitize_NotJSON(t *testing.T) {
	_, _, err := Sanitize(OpGradeEssay, []byte("I think this essay deserves a B"))
	assert.Error(t, err)
}

func TestNormalizeTranscript(t *testing.T) {
	in := "Title\t\there\r\n-----\r\nLine one   \n\n\n\nLine two"
	assert.Equal(t, "Title here\nLine one\n\nLine two", NormalizeTranscript(in))
	assert.Equal(t, "", NormalizeTranscript(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab\n[...]", Truncate("abcdef", 2))
}
