package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Schema describes an allow-listed set of keys and the constraint on each.
type Schema struct {
	Properties           map[string]Property
	AdditionalProperties bool
}

// Property constrains one key. Type is one of "string", "integer", "number".
type Property struct {
	Type      string
	Enum      []string
	Minimum   *float64
	Maximum   *float64
	MaxLength *int
	// Message overrides the constraint-violation text. %v receives the raw value.
	Message string
	// Sanitize is applied to accepted free-text strings.
	Sanitize func(string) string
}

type ValidationResult struct {
	Valid     bool                   `json:"valid"`
	Errors    []ValidationError      `json:"errors,omitempty"`
	Sanitized map[string]interface{} `json:"sanitized"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks input against schema and returns the coerced values of
// every accepted key. Keys are visited in sorted order so errors are stable.
func ValidateInput(input map[string]interface{}, schema Schema) *ValidationResult {
	result := &ValidationResult{Sanitized: make(map[string]interface{}, len(input))}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, exists := schema.Properties[key]
		if !exists {
			if !schema.AdditionalProperties {
				result.Errors = append(result.Errors, ValidationError{
					Field:   key,
					Message: fmt.Sprintf("Invalid filter: %s", key),
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}

		value, fieldErr := validateField(key, input[key], prop)
		if fieldErr != nil {
			result.Errors = append(result.Errors, *fieldErr)
			continue
		}
		result.Sanitized[key] = value
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateField(field string, raw interface{}, prop Property) (interface{}, *ValidationError) {
	fail := func(code, fallback string) *ValidationError {
		msg := fallback
		if prop.Message != "" {
			msg = prop.Message
			if strings.Contains(msg, "%v") {
				msg = fmt.Sprintf(msg, raw)
			}
		}
		return &ValidationError{Field: field, Message: msg, Code: code}
	}

	switch prop.Type {
	case "integer":
		n, ok := toInteger(raw)
		if !ok {
			return nil, fail("INVALID_TYPE", fmt.Sprintf("%s must be an integer", field))
		}
		if !inRange(float64(n), prop) {
			return nil, fail("RANGE_VIOLATION", fmt.Sprintf("%s is out of range", field))
		}
		return n, nil

	case "number":
		f, ok := toNumber(raw)
		if !ok {
			return nil, fail("INVALID_TYPE", fmt.Sprintf("%s must be a number", field))
		}
		if !inRange(f, prop) {
			return nil, fail("RANGE_VIOLATION", fmt.Sprintf("%s is out of range", field))
		}
		return f, nil

	default:
		s, ok := raw.(string)
		if !ok {
			if raw == nil {
				return nil, fail("INVALID_TYPE", fmt.Sprintf("%s must be a string", field))
			}
			s = fmt.Sprint(raw)
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if s == allowed {
					return s, nil
				}
			}
			return nil, fail("INVALID_ENUM_VALUE", fmt.Sprintf("%s must be one of %v", field, prop.Enum))
		}
		if prop.Sanitize != nil {
			s = prop.Sanitize(s)
		}
		if prop.MaxLength != nil && len(s) > *prop.MaxLength {
			return nil, fail("MAX_LENGTH_VIOLATION", fmt.Sprintf("%s must be at most %d characters", field, *prop.MaxLength))
		}
		return s, nil
	}
}

func inRange(v float64, prop Property) bool {
	if prop.Minimum != nil && v < *prop.Minimum {
		return false
	}
	if prop.Maximum != nil && v > *prop.Maximum {
		return false
	}
	return true
}

// toInteger accepts Go integers, whole floats (JSON numbers) and numeric strings.
func toInteger(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func toNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

// Float returns a pointer for Property bounds.
func Float(v float64) *float64 { return &v }

// Int returns a pointer for Property lengths.
func Int(v int) *int { return &v }

// GetErrorMessages returns the error messages in order.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = err.Message
	}
	return messages
}

// HasErrors checks if validation has errors for a specific field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
