// Package tolerance derives acceptance ranges for nominal dimension values, either from a flat
// offset or from a size-banded general tolerance table.
package tolerance

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/MykolaKantsir/web/internal/domain"
)

var numberPattern = regexp.MustCompile(`^\d*\.?\d+$`)

// ParseValue normalizes decimal commas, trims whitespace and parses an unsigned decimal number.
func ParseValue(text string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if !numberPattern.MatchString(cleaned) {
		return 0, fmt.Errorf("%q is not a number: %w", text, domain.ErrInvalidInput)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", text, domain.ErrInvalidInput)
	}
	return v, nil
}

// FormatValue renders v without insignificant trailing zeros. v is rounded to ten decimals
// first so that float noise from subtraction does not leak into the text.
func FormatValue(v float64) string {
	return strconv.FormatFloat(Round(v), 'f', -1, 64)
}

// Round rounds v to ten decimal places.
func Round(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

// Flat returns (max(0, v-offset), v+offset).
func Flat(v, offset float64) (float64, float64) {
	return Apply(domain.TypeBilateral, v, offset)
}

// Apply places a tolerance magnitude around v according to the dimension type. Bilateral spans
// both sides, shaft only below and hole only above the nominal value. The minimum never goes
// below zero.
func Apply(kind domain.DimensionType, v, magnitude float64) (float64, float64) {
	lo, hi := v-magnitude, v+magnitude
	switch kind {
	case domain.TypeShaft:
		hi = v
	case domain.TypeHole:
		lo = v
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// ParseKind accepts the type names and the legacy numeric selections 1, 2 and 3.
// An empty string means bilateral.
func ParseKind(s string) (domain.DimensionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "2", string(domain.TypeBilateral):
		return domain.TypeBilateral, nil
	case "1", string(domain.TypeShaft):
		return domain.TypeShaft, nil
	case "3", string(domain.TypeHole):
		return domain.TypeHole, nil
	}
	return "", fmt.Errorf("dimension type %q: %w", s, domain.ErrInvalidInput)
}
