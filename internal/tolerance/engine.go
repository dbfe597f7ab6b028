package tolerance

import (
	"fmt"

	"github.com/MykolaKantsir/web/internal/domain"
)

// Mode selects how a Rule is turned into a magnitude.
type Mode string

const (
	// ModeDefault applies the engine's configured flat offset.
	ModeDefault Mode = ""
	ModeFlat    Mode = "flat"
	ModeTable   Mode = "table"
)

// Rule is the explicit tolerance choice for one dimension.
type Rule struct {
	Mode   Mode
	Offset float64
	Class  Class
	Kind   domain.DimensionType
}

// Range is a computed acceptance interval.
type Range struct {
	Nominal float64
	Min     float64
	Max     float64
}

func (r Range) MinText() string { return FormatValue(r.Min) }
func (r Range) MaxText() string { return FormatValue(r.Max) }

type Engine struct {
	defaultOffset float64
	bands         []Band
}

// NewEngine returns an engine over GeneralBands with the given default flat offset.
func NewEngine(defaultOffset float64) *Engine {
	return &Engine{defaultOffset: defaultOffset, bands: GeneralBands}
}

// WithBands returns a copy of e resolving table lookups against bands.
func (e *Engine) WithBands(bands []Band) *Engine {
	return &Engine{defaultOffset: e.defaultOffset, bands: bands}
}

// Range parses the nominal text and derives its acceptance range. Malformed text yields
// ErrInvalidInput, a nominal outside every table band yields ErrOutOfToleranceRange.
func (e *Engine) Range(text string, rule Rule) (Range, error) {
	v, err := ParseValue(text)
	if err != nil {
		return Range{}, err
	}
	return e.RangeOf(v, rule)
}

func (e *Engine) RangeOf(v float64, rule Rule) (Range, error) {
	if v < 0 {
		return Range{}, fmt.Errorf("negative nominal %v: %w", v, domain.ErrInvalidInput)
	}

	var t float64
	switch rule.Mode {
	case ModeDefault:
		t = e.defaultOffset
	case ModeFlat:
		if rule.Offset < 0 {
			return Range{}, fmt.Errorf("negative offset %v: %w", rule.Offset, domain.ErrInvalidInput)
		}
		t = rule.Offset
	case ModeTable:
		m, err := Magnitude(e.bands, v, rule.Class)
		if err != nil {
			return Range{}, err
		}
		t = m
	default:
		return Range{}, fmt.Errorf("tolerance mode %q: %w", rule.Mode, domain.ErrInvalidInput)
	}

	kind := rule.Kind
	if kind == "" {
		kind = domain.TypeBilateral
	}
	lo, hi := Apply(kind, v, t)
	return Range{Nominal: v, Min: Round(lo), Max: Round(hi)}, nil
}
