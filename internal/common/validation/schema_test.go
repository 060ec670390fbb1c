package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSchema() Schema {
	return Schema{Properties: map[string]Property{
		"priority": {Type: "string", Enum: []string{"CRITICAL", "HIGH"}, Message: "Invalid priority value: %v"},
		"limit":    {Type: "integer", Minimum: Float(1), Maximum: Float(100), Message: "Limit must be between 1 and 100"},
		"min":      {Type: "number", Minimum: Float(0)},
		"vendor":   {Type: "string", Sanitize: strings.TrimSpace, MaxLength: Int(10)},
	}}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name          string
		input         map[string]interface{}
		wantValid     bool
		wantSanitized map[string]interface{}
		wantMessages  []string
	}{
		{
			name:          "numeric string limit is coerced",
			input:         map[string]interface{}{"limit": "10"},
			wantValid:     true,
			wantSanitized: map[string]interface{}{"limit": 10},
		},
		{
			name:          "json number limit is coerced",
			input:         map[string]interface{}{"limit": float64(25)},
			wantValid:     true,
			wantSanitized: map[string]interface{}{"limit": 25},
		},
		{
			name:         "limit above range",
			input:        map[string]interface{}{"limit": 500},
			wantMessages: []string{"Limit must be between 1 and 100"},
		},
		{
			name:         "fractional limit",
			input:        map[string]interface{}{"limit": 2.5},
			wantMessages: []string{"Limit must be between 1 and 100"},
		},
		{
			name:         "enum violation formats value",
			input:        map[string]interface{}{"priority": "URGENT"},
			wantMessages: []string{"Invalid priority value: URGENT"},
		},
		{
			name:         "unknown key",
			input:        map[string]interface{}{"color": "red"},
			wantMessages: []string{"Invalid filter: color"},
		},
		{
			name:         "negative number",
			input:        map[string]interface{}{"min": "-5"},
			wantMessages: []string{"min is out of range"},
		},
		{
			name:          "number string parsed",
			input:         map[string]interface{}{"min": "1500.5"},
			wantValid:     true,
			wantSanitized: map[string]interface{}{"min": 1500.5},
		},
		{
			name:          "free text sanitized",
			input:         map[string]interface{}{"vendor": "  POWELL  "},
			wantValid:     true,
			wantSanitized: map[string]interface{}{"vendor": "POWELL"},
		},
		{
			name:         "free text too long after sanitizing",
			input:        map[string]interface{}{"vendor": "POWELL ELECTRICAL"},
			wantMessages: []string{"vendor must be at most 10 characters"},
		},
		{
			name:         "errors are ordered by key",
			input:        map[string]interface{}{"priority": "X", "limit": 0, "zzz": 1},
			wantMessages: []string{"Limit must be between 1 and 100", "Invalid priority value: X", "Invalid filter: zzz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, testSchema())

			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantSanitized != nil {
				assert.Equal(t, tt.wantSanitized, result.Sanitized)
			}
			if tt.wantMessages != nil {
				assert.Equal(t, tt.wantMessages, result.GetErrorMessages())
			}
		})
	}
}

func TestValidationResult_HasErrors(t *testing.T) {
	result := ValidateInput(map[string]interface{}{"limit": "abc", "priority": "HIGH"}, testSchema())

	assert.True(t, result.HasErrors("limit"))
	assert.False(t, result.HasErrors("priority"))
	assert.Equal(t, "HIGH", result.Sanitized["priority"])
}
