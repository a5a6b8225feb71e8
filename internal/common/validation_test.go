package common

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		rules []ValidationRule
		ok    bool
	}{
		{"required blank", "  ", []ValidationRule{Required}, false},
		{"required nil pointer", (*string)(nil), []ValidationRule{Required}, false},
		{"uuid", uuid.NewString(), []ValidationRule{Required, UUID}, true},
		{"uuid empty is left to required", "", []ValidationRule{UUID}, true},
		{"not a uuid", "batch-1", []ValidationRule{UUID}, false},
		{"uuid wrong type", 42, []ValidationRule{UUID}, false},
		{"one of", "student", []ValidationRule{OneOf("teacher", "student")}, true},
		{"not one of", "admin", []ValidationRule{OneOf("teacher", "student")}, false},
		{"max len runes", strings.Repeat("é", 5), []ValidationRule{MaxLen(5)}, true},
		{"too long", strings.Repeat("a", 6), []ValidationRule{MaxLen(5)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("f", tt.value, tt.rules...)
			if tt.ok {
				assert.False(t, v.HasErrors())
				assert.NoError(t, v.Error())
				return
			}
			require.NotEmpty(t, v.Errors())
			assert.Equal(t, "f", v.Errors()[0].Field)
			assert.ErrorIs(t, v.Error(), ErrValidation)
		})
	}
}
