package repository

import (
	"context"
	"time"

	"github.com/MykolaKantsir/web/internal/domain"
)

// MeasuringRepository persists drawings, their dimensions, protocols and measurements.
// Lookups of missing records return domain.ErrNotFound.
type MeasuringRepository interface {
	CreateDrawing(ctx context.Context, d *domain.Drawing) error
	GetDrawing(ctx context.Context, id string) (*domain.Drawing, error)
	// FindDrawing returns the newest drawing whose filename contains query, ignoring case.
	FindDrawing(ctx context.Context, query string) (*domain.Drawing, error)

	// SaveDimension inserts a new dimension at the end of its drawing or updates an existing one
	// in place, keeping its position.
	SaveDimension(ctx context.Context, d *domain.Dimension) error
	GetDimension(ctx context.Context, id string) (*domain.Dimension, error)
	// ListDimensions returns the drawing's dimensions in authoring order.
	ListDimensions(ctx context.Context, drawingID string) ([]domain.Dimension, error)

	CreateProtocol(ctx context.Context, p *domain.Protocol) error
	GetProtocol(ctx context.Context, id string) (*domain.Protocol, error)
	// ListProtocols returns the drawing's protocols oldest first. An empty status matches all.
	ListProtocols(ctx context.Context, drawingID string, status domain.ProtocolStatus) ([]domain.Protocol, error)
	// FinishProtocol fails with domain.ErrProtocolClosed when the protocol is already finished.
	FinishProtocol(ctx context.Context, id string, at time.Time) error

	// PutMeasurement stores m atomically. A finished protocol yields domain.ErrProtocolClosed.
	// When a value exists for the same dimension and replace is false nothing is written and
	// the existing measurement is returned.
	PutMeasurement(ctx context.Context, m *domain.Measurement, replace bool) (*domain.Measurement, error)
	// ListMeasurements returns the protocol's measurements in the order they were first recorded.
	ListMeasurements(ctx context.Context, protocolID string) ([]domain.Measurement, error)
}

// ImageStore keeps drawing image blobs.
type ImageStore interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}
