// Package catalog holds the ordered dimensions of one drawing together with a
// measured/unmeasured annotation layered on top of them.
package catalog

import (
	"fmt"

	"github.com/MykolaKantsir/web/internal/domain"
)

// Catalog is an id-keyed arena over a drawing's dimensions in authoring order. The dimension
// records themselves are never modified; only the measured set changes.
type Catalog struct {
	drawingID string
	dims      []domain.Dimension
	index     map[string]int
	measured  map[string]bool
}

// Load builds a catalog preserving the order of dims. Empty or repeated ids are rejected.
func Load(drawingID string, dims []domain.Dimension) (*Catalog, error) {
	c := &Catalog{
		drawingID: drawingID,
		dims:      make([]domain.Dimension, len(dims)),
		index:     make(map[string]int, len(dims)),
		measured:  make(map[string]bool),
	}
	copy(c.dims, dims)

	for i, d := range c.dims {
		if d.ID == "" {
			return nil, fmt.Errorf("dimension at position %d has no id: %w", i+1, domain.ErrInvalidInput)
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("dimension %s listed twice: %w", d.ID, domain.ErrInvalidInput)
		}
		c.index[d.ID] = i
	}
	return c, nil
}

func (c *Catalog) DrawingID() string { return c.drawingID }

func (c *Catalog) Len() int { return len(c.dims) }

// All returns a copy of the dimensions in catalog order.
func (c *Catalog) All() []domain.Dimension {
	out := make([]domain.Dimension, len(c.dims))
	copy(out, c.dims)
	return out
}

func (c *Catalog) FindByID(id string) (domain.Dimension, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Dimension{}, false
	}
	return c.dims[i], true
}

// Index returns the zero-based position of id, or -1.
func (c *Catalog) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

func (c *Catalog) MarkMeasured(id string) error {
	if _, ok := c.index[id]; !ok {
		return fmt.Errorf("dimension %s: %w", id, domain.ErrNotFound)
	}
	c.measured[id] = true
	return nil
}

func (c *Catalog) MarkUnmeasured(id string) error {
	if _, ok := c.index[id]; !ok {
		return fmt.Errorf("dimension %s: %w", id, domain.ErrNotFound)
	}
	delete(c.measured, id)
	return nil
}

func (c *Catalog) IsMeasured(id string) bool {
	return c.measured[id]
}

func (c *Catalog) MeasuredCount() int {
	return len(c.measured)
}

// Reset clears every measured annotation.
func (c *Catalog) Reset() {
	c.measured = make(map[string]bool)
}

// NextUnmeasuredAfter returns the first unmeasured dimension strictly after id in catalog
// order. Traversal stops at the end of the catalog; it does not wrap.
func (c *Catalog) NextUnmeasuredAfter(id string) (domain.Dimension, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Dimension{}, false
	}
	return c.firstUnmeasuredFrom(i + 1)
}

func (c *Catalog) FirstUnmeasured() (domain.Dimension, bool) {
	return c.firstUnmeasuredFrom(0)
}

func (c *Catalog) firstUnmeasuredFrom(start int) (domain.Dimension, bool) {
	for i := start; i < len(c.dims); i++ {
		if !c.measured[c.dims[i].ID] {
			return c.dims[i], true
		}
	}
	return domain.Dimension{}, false
}

// Unmeasured lists the dimensions without a measurement, in catalog order.
func (c *Catalog) Unmeasured() []domain.Dimension {
	var out []domain.Dimension
	for _, d := range c.dims {
		if !c.measured[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
