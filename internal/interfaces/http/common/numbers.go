package common

import (
	"math"
	"strconv"
	"strings"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// ParseOptionalInt parses an optional integer query parameter. Missing values
// yield nil; malformed values yield a validation error naming the field.
func ParseOptionalInt(field, value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, domain.Invalid(field, "must be an integer")
	}
	return &parsed, nil
}

// ParseOptionalFloat parses an optional finite float query parameter.
func ParseOptionalFloat(field, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil, domain.Invalid(field, "must be a number")
	}
	return &parsed, nil
}

// IntValue returns the value or the fallback for nil.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
