package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/MykolaKantsir/web/internal/domain"
)

func TestComputeScale(t *testing.T) {
	sx, sy, err := ComputeScale(1000, 500, 2000, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sx != 0.5 || sy != 0.25 {
		t.Errorf("Expected (0.5, 0.25), got (%v, %v)", sx, sy)
	}

	if _, _, err := ComputeScale(100, 100, 0, 100); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero native width, got %v", err)
	}
}

func TestToDisplayRoundTrip(t *testing.T) {
	rects := []domain.Rect{
		{X: 1639.28, Y: 343.13, Width: 116.91, Height: 59.75},
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 103.92, Y: 1392.68, Width: 111.71, Height: 51.96},
	}
	scales := [][2]float64{{0.5, 0.25}, {1.37, 0.83}, {3, 3}}

	for _, r := range rects {
		for _, s := range scales {
			back := ToNative(ToDisplay(r, s[0], s[1]), s[0], s[1])
			if !closeTo(back.X, r.X) || !closeTo(back.Y, r.Y) ||
				!closeTo(back.Width, r.Width) || !closeTo(back.Height, r.Height) {
				t.Errorf("round trip of %+v with scale %v gave %+v", r, s, back)
			}
		}
	}
}

func TestHitTest(t *testing.T) {
	dims := []domain.Dimension{
		{ID: "a", Rect: domain.Rect{X: 100, Y: 100, Width: 50, Height: 20}},
		{ID: "b", Rect: domain.Rect{X: 120, Y: 110, Width: 50, Height: 20}},
		{ID: "c", Rect: domain.Rect{X: 400, Y: 400, Width: 10, Height: 10}},
	}

	tests := []struct {
		name  string
		point domain.Point
		want  string
	}{
		{"inside only c", domain.Point{X: 202.5, Y: 202.5}, "c"},
		{"overlap resolves to first", domain.Point{X: 65, Y: 57}, "a"},
		{"inside only b", domain.Point{X: 82, Y: 63}, "b"},
		{"outside all", domain.Point{X: 10, Y: 10}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTest(tt.point, dims, 0.5, 0.5)
			if tt.want == "" {
				if ok || got != nil {
					t.Errorf("Expected no hit, got %+v", got)
				}
				return
			}
			if !ok || got.ID != tt.want {
				t.Errorf("Expected %q, got %+v", tt.want, got)
			}
		})
	}
}

func TestPointToNative(t *testing.T) {
	p := PointToNative(domain.Point{X: 50, Y: 30}, 0.5, 0.25)
	if p.X != 100 || p.Y != 120 {
		t.Errorf("Expected (100, 120), got %+v", p)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
