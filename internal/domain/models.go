package domain

import (
	"time"
)

// Rect is an axis-aligned rectangle in pixel units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position on the drawing or on the display surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Drawing struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Rotation  int       `json:"flip_angle"`
	PageCount int       `json:"pages_count"`
	ImageKey  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DimensionType tells how a tolerance magnitude is applied around the nominal value.
type DimensionType string

const (
	TypeShaft     DimensionType = "shaft"
	TypeBilateral DimensionType = "bilateral"
	TypeHole      DimensionType = "hole"
)

type Dimension struct {
	ID         string        `json:"id"`
	DrawingID  string        `json:"drawing_id"`
	Rect       Rect          `json:"rect"`
	IsVertical bool          `json:"is_vertical"`
	Value      float64       `json:"value"`
	MinValue   float64       `json:"min_value"`
	MaxValue   float64       `json:"max_value"`
	Type       DimensionType `json:"type"`
	Page       int           `json:"page"`
}

// Accepts reports whether v lies inside the dimension's acceptance range, both ends inclusive.
func (d Dimension) Accepts(v float64) bool {
	return v >= d.MinValue && v <= d.MaxValue
}

type ProtocolStatus string

const (
	StatusOpen     ProtocolStatus = "open"
	StatusFinished ProtocolStatus = "finished"
)

type Protocol struct {
	ID         string         `json:"id"`
	DrawingID  string         `json:"drawing_id"`
	Status     ProtocolStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

type Measurement struct {
	DimensionID string    `json:"dimension_id"`
	ProtocolID  string    `json:"protocol_id"`
	Value       float64   `json:"value"`
	Pass        bool      `json:"pass"`
	MeasuredAt  time.Time `json:"measured_at"`
}

// ProtocolSummary is one entry of the unfinished-protocols listing.
type ProtocolSummary struct {
	ID            string    `json:"id"`
	MeasuredCount int       `json:"measured_count"`
	CreatedAt     time.Time `json:"created_at"`
}
