package tolerance

import (
	"errors"
	"testing"

	"github.com/MykolaKantsir/web/internal/domain"
)

func TestEngineRange(t *testing.T) {
	e := NewEngine(0.1)

	tests := []struct {
		name   string
		text   string
		rule   Rule
		lo, hi string
	}{
		{"default offset with decimal comma", "10,5", Rule{}, "10.4", "10.6"},
		{"explicit flat offset", "22.3", Rule{Mode: ModeFlat, Offset: 0.25}, "22.05", "22.55"},
		{"flat offset clamps", "0.05", Rule{Mode: ModeFlat, Offset: 0.1}, "0", "0.15"},
		{"table medium", "25", Rule{Mode: ModeTable, Class: Medium}, "24.8", "25.2"},
		{"table fine shaft", "25", Rule{Mode: ModeTable, Class: Fine, Kind: domain.TypeShaft}, "24.9", "25"},
		{"table coarse hole", "100", Rule{Mode: ModeTable, Class: Coarse, Kind: domain.TypeHole}, "100", "100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := e.Range(tt.text, tt.rule)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.MinText() != tt.lo || r.MaxText() != tt.hi {
				t.Errorf("got (%s, %s), want (%s, %s)", r.MinText(), r.MaxText(), tt.lo, tt.hi)
			}
		})
	}
}

func TestEngineRangeErrorsAreDistinct(t *testing.T) {
	e := NewEngine(0.1)

	_, err := e.Range("abc", Rule{Mode: ModeTable, Class: Fine})
	if !errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrOutOfToleranceRange) {
		t.Errorf("malformed text: expected only ErrInvalidInput, got %v", err)
	}

	_, err = e.Range("5000", Rule{Mode: ModeTable, Class: Fine})
	if !errors.Is(err, domain.ErrOutOfToleranceRange) || errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("out of table: expected only ErrOutOfToleranceRange, got %v", err)
	}

	_, err = e.Range("5000", Rule{Mode: ModeFlat, Offset: -1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("negative offset: expected ErrInvalidInput, got %v", err)
	}
}

func TestEngineWithBands(t *testing.T) {
	e := NewEngine(0.1).WithBands([]Band{{Lower: 0, Upper: 10, Coarse: 1, Medium: 0.5, Fine: 0.25}})

	r, err := e.Range("4", Rule{Mode: ModeTable, Class: Fine})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MinText() != "3.75" || r.MaxText() != "4.25" {
		t.Errorf("got (%s, %s)", r.MinText(), r.MaxText())
	}
	if _, err := e.Range("10", Rule{Mode: ModeTable, Class: Fine}); !errors.Is(err, domain.ErrOutOfToleranceRange) {
		t.Errorf("Expected ErrOutOfToleranceRange, got %v", err)
	}
}
