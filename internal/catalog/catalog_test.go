package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MykolaKantsir/web/internal/domain"
)

func fiveDims() []domain.Dimension {
	dims := make([]domain.Dimension, 5)
	for i := range dims {
		dims[i] = domain.Dimension{
			ID:       fmt.Sprintf("dim-%d", i+1),
			Value:    10.5,
			MinValue: 10.4,
			MaxValue: 10.6,
		}
	}
	return dims
}

func TestLoadPreservesOrder(t *testing.T) {
	c, err := Load("drw", fiveDims())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, d := range c.All() {
		if want := fmt.Sprintf("dim-%d", i+1); d.ID != want {
			t.Errorf("position %d: got %s, want %s", i, d.ID, want)
		}
		if c.Index(d.ID) != i {
			t.Errorf("Index(%s) = %d, want %d", d.ID, c.Index(d.ID), i)
		}
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	dims := fiveDims()
	dims[3].ID = "dim-1"
	if _, err := Load("drw", dims); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	c, _ := Load("drw", fiveDims())
	if d, ok := c.FindByID("dim-3"); !ok || d.ID != "dim-3" {
		t.Errorf("FindByID(dim-3) = %+v, %v", d, ok)
	}
	if _, ok := c.FindByID("nope"); ok {
		t.Errorf("Expected no dimension for unknown id")
	}
}

func TestNextUnmeasuredAfterSkipsMeasuredAndDoesNotWrap(t *testing.T) {
	c, _ := Load("drw", fiveDims())
	_ = c.MarkMeasured("dim-1")
	_ = c.MarkMeasured("dim-3")

	next, ok := c.NextUnmeasuredAfter("dim-3")
	if !ok || next.ID != "dim-4" {
		t.Errorf("after dim-3: got %+v, %v; want dim-4", next, ok)
	}

	_ = c.MarkMeasured("dim-4")
	_ = c.MarkMeasured("dim-5")
	if next, ok := c.NextUnmeasuredAfter("dim-3"); ok {
		t.Errorf("Expected no wrap back to dim-2, got %+v", next)
	}

	first, ok := c.FirstUnmeasured()
	if !ok || first.ID != "dim-2" {
		t.Errorf("FirstUnmeasured = %+v, %v; want dim-2", first, ok)
	}
}

func TestMarkToggleDoesNotMutateDimensions(t *testing.T) {
	dims := fiveDims()
	c, _ := Load("drw", dims)

	if err := c.MarkMeasured("dim-2"); err != nil {
		t.Fatal(err)
	}
	if !c.IsMeasured("dim-2") || c.MeasuredCount() != 1 {
		t.Errorf("dim-2 should be measured")
	}
	if err := c.MarkUnmeasured("dim-2"); err != nil {
		t.Fatal(err)
	}
	if c.IsMeasured("dim-2") || c.MeasuredCount() != 0 {
		t.Errorf("dim-2 should be unmeasured again")
	}
	if err := c.MarkMeasured("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	got, _ := c.FindByID("dim-2")
	if got != dims[1] {
		t.Errorf("dimension record changed: %+v", got)
	}
	if len(c.Unmeasured()) != 5 {
		t.Errorf("Expected 5 unmeasured, got %d", len(c.Unmeasured()))
	}
}
