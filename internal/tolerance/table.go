package tolerance

import (
	"fmt"
	"strings"

	"github.com/MykolaKantsir/web/internal/domain"
)

// Class is a general tolerance precision grade.
type Class string

const (
	Coarse Class = "coarse"
	Medium Class = "medium"
	Fine   Class = "fine"
)

func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", string(Coarse):
		return Coarse, nil
	case "m", string(Medium):
		return Medium, nil
	case "f", string(Fine):
		return Fine, nil
	}
	return "", fmt.Errorf("tolerance class %q: %w", s, domain.ErrInvalidInput)
}

// Band covers nominal sizes in [Lower, Upper).
type Band struct {
	Lower  float64
	Upper  float64
	Coarse float64
	Medium float64
	Fine   float64
}

func (b Band) contains(v float64) bool {
	return v >= b.Lower && v < b.Upper
}

func (b Band) magnitude(c Class) (float64, error) {
	switch c {
	case Coarse:
		return b.Coarse, nil
	case Medium:
		return b.Medium, nil
	case Fine:
		return b.Fine, nil
	}
	return 0, fmt.Errorf("tolerance class %q: %w", c, domain.ErrInvalidInput)
}

// GeneralBands are the linear size bands of the ISO 2768-1 style general tolerance table.
var GeneralBands = []Band{
	{Lower: 0, Upper: 3, Coarse: 0.2, Medium: 0.1, Fine: 0.05},
	{Lower: 3, Upper: 6, Coarse: 0.3, Medium: 0.1, Fine: 0.05},
	{Lower: 6, Upper: 30, Coarse: 0.5, Medium: 0.2, Fine: 0.1},
	{Lower: 30, Upper: 120, Coarse: 0.8, Medium: 0.3, Fine: 0.15},
	{Lower: 120, Upper: 400, Coarse: 1.2, Medium: 0.5, Fine: 0.2},
	{Lower: 400, Upper: 1000, Coarse: 2, Medium: 0.8, Fine: 0.3},
	{Lower: 1000, Upper: 2000, Coarse: 3, Medium: 1.2, Fine: 0.5},
	{Lower: 2000, Upper: 4000, Coarse: 4, Medium: 2, Fine: 0.5},
}

// Magnitude resolves the band containing v and returns the magnitude for class c.
func Magnitude(bands []Band, v float64, c Class) (float64, error) {
	for _, b := range bands {
		if b.contains(v) {
			return b.magnitude(c)
		}
	}
	return 0, fmt.Errorf("nominal %s: %w", FormatValue(v), domain.ErrOutOfToleranceRange)
}

// Table returns the bilateral range for v using the general bands.
func Table(v float64, c Class) (float64, float64, error) {
	t, err := Magnitude(GeneralBands, v, c)
	if err != nil {
		return 0, 0, err
	}
	lo, hi := Flat(v, t)
	return lo, hi, nil
}
