package protocol

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/tolerance"
)

type Outcome int

const (
	Accepted Outcome = iota + 1
	// Duplicate means a value already exists for the dimension in this protocol. Nothing was
	// stored; re-submit with replace to overwrite.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

type Result struct {
	Outcome       Outcome
	Measurement   domain.Measurement
	Replaced      bool
	ExistingValue float64
	// Next is the dimension to present after an accepted value, nil at the end of the catalog.
	Next       *domain.Dimension
	Unmeasured []domain.Dimension
}

// Recorder validates single measurement submissions and classifies them against the
// dimension's acceptance range.
type Recorder struct {
	backend Backend
	log     *zap.Logger
}

func NewRecorder(backend Backend, log *zap.Logger) *Recorder {
	return &Recorder{backend: backend, log: log}
}

// Submit records value for dimensionID in the session. Invalid values, unknown dimensions
// and closed protocols are rejected before any network call. An existing value for the
// dimension produces a Duplicate result unless replace is set. Session and catalog are
// only updated once the backend acknowledged the value.
func (r *Recorder) Submit(ctx context.Context, s *Session, dimensionID, value string, replace bool) (*Result, error) {
	s.mu.Lock()
	state, protocolID, pendingID := s.state, s.id, s.pendingID
	existing, measured := s.measurements[dimensionID]
	s.mu.Unlock()

	switch state {
	case StateNoneSelected:
		return nil, domain.ErrNotResolved
	case StateFinished:
		return nil, domain.ErrProtocolClosed
	}

	v, err := tolerance.ParseValue(value)
	if err != nil {
		return nil, err
	}
	// Values travel with three decimals; validation and classification use the transmitted value.
	text := strconv.FormatFloat(v, 'f', 3, 64)
	v, _ = strconv.ParseFloat(text, 64)
	if v <= 0 {
		return nil, fmt.Errorf("measured value %s must be positive: %w", value, domain.ErrInvalidInput)
	}
	dim, ok := s.catalog.FindByID(dimensionID)
	if !ok {
		return nil, fmt.Errorf("dimension %s: %w: %w", dimensionID, domain.ErrInvalidInput, domain.ErrNotFound)
	}

	if measured && !replace {
		r.log.Debug("Duplicate measurement refused",
			zap.String("dimension_id", dimensionID),
			zap.Float64("existing", existing.Value))
		return &Result{Outcome: Duplicate, ExistingValue: existing.Value}, nil
	}

	resp, err := r.backend.SaveMeasurement(ctx, domain.SaveMeasurementRequest{
		DimensionID:   dimensionID,
		DrawingID:     s.DrawingID(),
		ProtocolID:    protocolID,
		NewProtocolID: newProtocolID(protocolID, pendingID),
		MeasuredValue: text,
		Replace:       replace,
	})
	if err != nil {
		r.log.Warn("Failed to save measurement",
			zap.String("dimension_id", dimensionID),
			zap.Error(err))
		return nil, fmt.Errorf("save measurement: %w", err)
	}

	if resp.Duplicate {
		prev, err := tolerance.ParseValue(resp.ExistingValue)
		if err != nil {
			return nil, fmt.Errorf("duplicate answer with value %q: %w", resp.ExistingValue, domain.ErrNetworkFailure)
		}
		return &Result{Outcome: Duplicate, ExistingValue: prev}, nil
	}
	if !resp.Success || resp.ProtocolID == "" || resp.DimensionID != dimensionID {
		return nil, fmt.Errorf("unexpected save answer %+v: %w", *resp, domain.ErrNetworkFailure)
	}
	if protocolID != "" && resp.ProtocolID != protocolID {
		return nil, fmt.Errorf("measurement stored in protocol %s instead of %s: %w",
			resp.ProtocolID, protocolID, domain.ErrNetworkFailure)
	}

	m := domain.Measurement{
		DimensionID: dimensionID,
		ProtocolID:  resp.ProtocolID,
		Value:       v,
		Pass:        dim.Accepts(v),
		MeasuredAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		s.id = resp.ProtocolID
	}
	if _, seen := s.measurements[dimensionID]; !seen {
		s.order = append(s.order, dimensionID)
	}
	s.measurements[dimensionID] = m
	_ = s.catalog.MarkMeasured(dimensionID)

	res := &Result{
		Outcome:     Accepted,
		Measurement: m,
		Replaced:    measured,
		Unmeasured:  s.catalog.Unmeasured(),
	}
	if next, ok := s.catalog.NextUnmeasuredAfter(dimensionID); ok {
		res.Next = &next
	}

	r.log.Debug("Measurement recorded",
		zap.String("protocol_id", m.ProtocolID),
		zap.String("dimension_id", dimensionID),
		zap.Float64("value", v),
		zap.Bool("pass", m.Pass))
	return res, nil
}

// newProtocolID is sent only while the protocol has not been stored.
func newProtocolID(protocolID, pendingID string) string {
	if protocolID != "" {
		return ""
	}
	return pendingID
}
