package tolerance

import (
	"errors"
	"math"
	"testing"

	"github.com/MykolaKantsir/web/internal/domain"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"10.5", 10.5, false},
		{"10,5", 10.5, false},
		{"  22,30 ", 22.3, false},
		{".5", 0.5, false},
		{"7", 7, false},
		{"", 0, true},
		{"-1", 0, true},
		{"1e3", 0, true},
		{"10.", 0, true},
		{"Ø10", 0, true},
		{"1,2,3", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseValue(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("ParseValue(%q): expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseValue(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestFlatProperty(t *testing.T) {
	for v := 0.0; v <= 50; v += 0.7 {
		for off := 0.0; off <= 3; off += 0.25 {
			lo, hi := Flat(v, off)
			if lo != math.Max(0, v-off) || hi != v+off {
				t.Fatalf("Flat(%v, %v) = (%v, %v)", v, off, lo, hi)
			}
			if lo > hi {
				t.Fatalf("Flat(%v, %v): min %v > max %v", v, off, lo, hi)
			}
		}
	}
}

func TestFlatClampsAtZero(t *testing.T) {
	lo, hi := Flat(0.05, 0.1)
	if lo != 0 {
		t.Errorf("Expected min clamped to 0, got %v", lo)
	}
	if FormatValue(hi) != "0.15" {
		t.Errorf("Expected max 0.15, got %s", FormatValue(hi))
	}
}

func TestApplyKinds(t *testing.T) {
	tests := []struct {
		kind   domain.DimensionType
		lo, hi string
	}{
		{domain.TypeBilateral, "19.8", "20.2"},
		{domain.TypeShaft, "19.8", "20"},
		{domain.TypeHole, "20", "20.2"},
	}
	for _, tt := range tests {
		lo, hi := Apply(tt.kind, 20, 0.2)
		if FormatValue(lo) != tt.lo || FormatValue(hi) != tt.hi {
			t.Errorf("%s: got (%s, %s), want (%s, %s)", tt.kind, FormatValue(lo), FormatValue(hi), tt.lo, tt.hi)
		}
	}
}

func TestTableBandEdges(t *testing.T) {
	tests := []struct {
		name   string
		v      float64
		class  Class
		lo, hi string
	}{
		{"lower bound of first band", 0, Coarse, "0", "0.2"},
		{"just below 3 stays in first band", 2.999, Coarse, "2.799", "3.199"},
		{"3 exactly uses [3,6)", 3, Coarse, "2.7", "3.3"},
		{"6 exactly uses [6,30)", 6, Fine, "5.9", "6.1"},
		{"medium mid band", 50, Medium, "49.7", "50.3"},
		{"2000 exactly uses last band", 2000, Coarse, "1996", "2004"},
		{"fine in last band", 3999.5, Fine, "3999", "4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := Table(tt.v, tt.class)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if FormatValue(lo) != tt.lo || FormatValue(hi) != tt.hi {
				t.Errorf("Table(%v, %s) = (%s, %s), want (%s, %s)",
					tt.v, tt.class, FormatValue(lo), FormatValue(hi), tt.lo, tt.hi)
			}
		})
	}
}

func TestTableMagnitudeConstantWithinBand(t *testing.T) {
	for _, b := range GeneralBands {
		for _, c := range []Class{Coarse, Medium, Fine} {
			want, err := Magnitude(GeneralBands, b.Lower, c)
			if err != nil {
				t.Fatalf("band %v: %v", b, err)
			}
			for _, v := range []float64{b.Lower, (b.Lower + b.Upper) / 2, b.Upper - 1e-6} {
				got, err := Magnitude(GeneralBands, v, c)
				if err != nil || got != want {
					t.Errorf("Magnitude(%v, %s) = %v, %v; want %v", v, c, got, err, want)
				}
			}
		}
	}
}

func TestTableOutOfRange(t *testing.T) {
	_, _, err := Table(4000, Medium)
	if !errors.Is(err, domain.ErrOutOfToleranceRange) {
		t.Fatalf("Expected ErrOutOfToleranceRange, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("out-of-range must not be reported as invalid input")
	}
}

func TestFormatValue(t *testing.T) {
	a, b := 10.5, 0.1
	c, d := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{10.5, "10.5"},
		{10.40, "10.4"},
		{a - b, "10.4"},
		{c + d, "0.3"},
		{20, "20"},
		{0, "0"},
		{1.23456789, "1.23456789"},
		{1999.999999, "1999.999999"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseClassAndKind(t *testing.T) {
	if c, err := ParseClass("M"); err != nil || c != Medium {
		t.Errorf("ParseClass(M) = %v, %v", c, err)
	}
	if _, err := ParseClass("very coarse"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if k, err := ParseKind("1"); err != nil || k != domain.TypeShaft {
		t.Errorf("ParseKind(1) = %v, %v", k, err)
	}
	if k, err := ParseKind(""); err != nil || k != domain.TypeBilateral {
		t.Errorf("ParseKind(\"\") = %v, %v", k, err)
	}
}
