package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/tolerance"
)

func (s *measuringService) CheckUnfinished(ctx context.Context, drawingID string) ([]domain.ProtocolSummary, error) {
	if _, err := s.repo.GetDrawing(ctx, drawingID); err != nil {
		return nil, err
	}
	protocols, err := s.repo.ListProtocols(ctx, drawingID, domain.StatusOpen)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProtocolSummary, 0, len(protocols))
	for _, p := range protocols {
		values, err := s.repo.ListMeasurements(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ProtocolSummary{
			ID:            p.ID,
			MeasuredCount: len(values),
			CreatedAt:     p.CreatedAt,
		})
	}
	return out, nil
}

func (s *measuringService) GetProtocolData(ctx context.Context, protocolID string) (*domain.ProtocolData, error) {
	p, err := s.repo.GetProtocol(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	values, err := s.repo.ListMeasurements(ctx, protocolID)
	if err != nil {
		return nil, err
	}

	data := &domain.ProtocolData{
		ID:             p.ID,
		DrawingID:      p.DrawingID,
		Status:         p.Status,
		MeasuredValues: make([]domain.MeasuredValue, len(values)),
	}
	for i, m := range values {
		data.MeasuredValues[i] = domain.MeasuredValue{
			DimensionID: m.DimensionID,
			Value:       tolerance.FormatValue(m.Value),
		}
	}
	return data, nil
}

// SaveMeasurement stores one value. An empty protocol id opens a new protocol for the drawing,
// named req.NewProtocolID when given. Repeating that first save with the same value is
// acknowledged again instead of opening a second protocol. An existing value for the
// dimension is reported back unless req.Replace is set.
func (s *measuringService) SaveMeasurement(ctx context.Context, req domain.SaveMeasurementRequest) (*domain.SaveMeasurementResponse, error) {
	v, err := tolerance.ParseValue(req.MeasuredValue)
	if err != nil {
		return nil, err
	}
	if v <= 0 {
		return nil, fmt.Errorf("measured value %s must be positive: %w", req.MeasuredValue, domain.ErrInvalidInput)
	}

	dim, err := s.repo.GetDimension(ctx, req.DimensionID)
	if err != nil {
		return nil, err
	}
	if dim.DrawingID != req.DrawingID {
		return nil, fmt.Errorf("dimension %s is not on drawing %s: %w", dim.ID, req.DrawingID, domain.ErrInvalidInput)
	}

	protocolID, reopened, err := s.openProtocol(ctx, req)
	if err != nil {
		return nil, err
	}

	m := &domain.Measurement{
		DimensionID: dim.ID,
		ProtocolID:  protocolID,
		Value:       v,
		Pass:        dim.Accepts(v),
		MeasuredAt:  s.now(),
	}
	prev, err := s.repo.PutMeasurement(ctx, m, req.Replace)
	if err != nil {
		return nil, err
	}
	if prev != nil && !(reopened && prev.Value == v) {
		return &domain.SaveMeasurementResponse{
			Duplicate:     true,
			ExistingValue: tolerance.FormatValue(prev.Value),
		}, nil
	}

	s.log.Info("Measurement saved",
		zap.String("protocol_id", protocolID),
		zap.String("dimension_id", dim.ID),
		zap.Float64("value", v),
		zap.Bool("pass", m.Pass),
		zap.Bool("replace", req.Replace))

	return &domain.SaveMeasurementResponse{
		Success:     true,
		ProtocolID:  protocolID,
		DimensionID: dim.ID,
		Pass:        m.Pass,
	}, nil
}

// openProtocol resolves the protocol a save goes to. reopened reports that a client named
// protocol already existed, which happens when the first save of a protocol is retried.
func (s *measuringService) openProtocol(ctx context.Context, req domain.SaveMeasurementRequest) (string, bool, error) {
	if req.ProtocolID != "" {
		p, err := s.repo.GetProtocol(ctx, req.ProtocolID)
		if err != nil {
			return "", false, err
		}
		if err := checkWritable(p, req.DrawingID); err != nil {
			return "", false, err
		}
		return p.ID, false, nil
	}

	id := s.newID()
	if req.NewProtocolID != "" {
		if _, err := uuid.Parse(req.NewProtocolID); err != nil {
			return "", false, fmt.Errorf("new protocol id %q: %w", req.NewProtocolID, domain.ErrInvalidInput)
		}
		id = req.NewProtocolID

		p, err := s.repo.GetProtocol(ctx, id)
		switch {
		case err == nil:
			if err := checkWritable(p, req.DrawingID); err != nil {
				return "", false, err
			}
			return p.ID, true, nil
		case !errors.Is(err, domain.ErrNotFound):
			return "", false, err
		}
	}

	p := &domain.Protocol{
		ID:        id,
		DrawingID: req.DrawingID,
		Status:    domain.StatusOpen,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateProtocol(ctx, p); err != nil {
		return "", false, err
	}
	s.log.Info("Protocol opened",
		zap.String("protocol_id", p.ID),
		zap.String("drawing_id", p.DrawingID))
	return p.ID, false, nil
}

func checkWritable(p *domain.Protocol, drawingID string) error {
	if p.DrawingID != drawingID {
		return fmt.Errorf("protocol %s is not for drawing %s: %w", p.ID, drawingID, domain.ErrInvalidInput)
	}
	if p.Status == domain.StatusFinished {
		return fmt.Errorf("protocol %s: %w", p.ID, domain.ErrProtocolClosed)
	}
	return nil
}

func (s *measuringService) FinishProtocol(ctx context.Context, protocolID string) error {
	if err := s.repo.FinishProtocol(ctx, protocolID, s.now()); err != nil {
		return err
	}
	s.log.Info("Protocol finished", zap.String("protocol_id", protocolID))
	return nil
}
