// Package protocol drives one inspection pass over a drawing's dimensions: resolving which
// protocol to use, recording measurements and finishing.
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/catalog"
	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/tolerance"
)

// Backend is the part of the measuring API a session depends on.
type Backend interface {
	CheckUnfinishedProtocols(ctx context.Context, drawingID string) ([]domain.ProtocolSummary, error)
	GetProtocolData(ctx context.Context, protocolID string) (*domain.ProtocolData, error)
	SaveMeasurement(ctx context.Context, req domain.SaveMeasurementRequest) (*domain.SaveMeasurementResponse, error)
	FinishProtocol(ctx context.Context, protocolID string) error
}

type State string

const (
	StateNoneSelected State = "none-selected"
	StateOpen         State = "open"
	StateFinished     State = "finished"
)

// Session is the state machine of one protocol. Operations are serialized; state is only
// changed after the backend acknowledged the corresponding request.
type Session struct {
	op sync.Mutex // held for the whole duration of an operation, network included
	mu sync.Mutex // guards the fields below

	state      State
	resolved   bool
	id         string
	pendingID  string // proposed id of a protocol that is not saved yet
	createdAt  time.Time
	candidates []domain.ProtocolSummary

	measurements map[string]domain.Measurement
	order        []string

	catalog  *catalog.Catalog
	backend  Backend
	recorder *Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewSession(cat *catalog.Catalog, backend Backend, log *zap.Logger) *Session {
	return &Session{
		state:        StateNoneSelected,
		measurements: make(map[string]domain.Measurement),
		catalog:      cat,
		backend:      backend,
		recorder:     NewRecorder(backend, log),
		log:          log,
		now:          time.Now,
	}
}

func (s *Session) DrawingID() string { return s.catalog.DrawingID() }

func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the server id of the protocol. It is empty for a new protocol until the first
// measurement has been acknowledged.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// Candidates returns the unfinished protocols offered by the last Resolve.
func (s *Session) Candidates() []domain.ProtocolSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProtocolSummary(nil), s.candidates...)
}

// Resolve asks the backend for unfinished protocols of the drawing. With none the session
// opens a new protocol right away and nil is returned. Otherwise the session stays
// unresolved and the candidates are returned; the caller decides with Resume or StartNew.
func (s *Session) Resolve(ctx context.Context) ([]domain.ProtocolSummary, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if s.State() != StateNoneSelected {
		return nil, domain.ErrAlreadyResolved
	}

	found, err := s.backend.CheckUnfinishedProtocols(ctx, s.DrawingID())
	if err != nil {
		return nil, fmt.Errorf("check unfinished protocols: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = true
	s.candidates = append([]domain.ProtocolSummary(nil), found...)

	if len(found) == 0 {
		s.openNewLocked()
		s.log.Debug("No unfinished protocols, new protocol opened",
			zap.String("drawing_id", s.DrawingID()))
		return nil, nil
	}

	s.log.Debug("Unfinished protocols found",
		zap.String("drawing_id", s.DrawingID()),
		zap.Int("count", len(found)))
	return append([]domain.ProtocolSummary(nil), found...), nil
}

// StartNew opens a new protocol although unfinished ones exist. Those stay open.
func (s *Session) StartNew() error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pendingDecisionLocked(); err != nil {
		return err
	}
	s.openNewLocked()
	s.log.Debug("New protocol opened by operator",
		zap.String("drawing_id", s.DrawingID()),
		zap.Int("left_open", len(s.candidates)))
	return nil
}

// Resume continues one of the candidates returned by Resolve. Recorded values are loaded
// from the backend and the catalog annotation is rebuilt from them.
func (s *Session) Resume(ctx context.Context, protocolID string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	err := s.pendingDecisionLocked()
	known := false
	for _, c := range s.candidates {
		if c.ID == protocolID {
			known = true
			break
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("protocol %s is not an unfinished protocol of drawing %s: %w",
			protocolID, s.DrawingID(), domain.ErrNotFound)
	}

	data, err := s.backend.GetProtocolData(ctx, protocolID)
	if err != nil {
		return fmt.Errorf("get protocol %s: %w", protocolID, err)
	}
	if data.Status == domain.StatusFinished {
		return fmt.Errorf("protocol %s: %w", protocolID, domain.ErrProtocolClosed)
	}

	now := s.now()
	loaded := make(map[string]domain.Measurement, len(data.MeasuredValues))
	order := make([]string, 0, len(data.MeasuredValues))
	for _, mv := range data.MeasuredValues {
		dim, ok := s.catalog.FindByID(mv.DimensionID)
		if !ok {
			s.log.Warn("Measured value references unknown dimension",
				zap.String("protocol_id", protocolID),
				zap.String("dimension_id", mv.DimensionID))
			continue
		}
		v, err := tolerance.ParseValue(mv.Value)
		if err != nil {
			return fmt.Errorf("protocol %s, dimension %s: %w", protocolID, mv.DimensionID, err)
		}
		if _, seen := loaded[dim.ID]; !seen {
			order = append(order, dim.ID)
		}
		loaded[dim.ID] = domain.Measurement{
			DimensionID: dim.ID,
			ProtocolID:  protocolID,
			Value:       v,
			Pass:        dim.Accepts(v),
			MeasuredAt:  now,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Reset()
	for id := range loaded {
		_ = s.catalog.MarkMeasured(id)
	}
	s.measurements = loaded
	s.order = order
	s.id = protocolID
	s.state = StateOpen
	for _, c := range s.candidates {
		if c.ID == protocolID {
			s.createdAt = c.CreatedAt
		}
	}

	s.log.Info("Protocol resumed",
		zap.String("protocol_id", protocolID),
		zap.Int("measured", len(loaded)))
	return nil
}

// RecordMeasurement validates and submits one measured value. See Recorder.Submit.
func (s *Session) RecordMeasurement(ctx context.Context, dimensionID, value string, replace bool) (*Result, error) {
	s.op.Lock()
	defer s.op.Unlock()
	return s.recorder.Submit(ctx, s, dimensionID, value, replace)
}

// Finish closes the protocol. A new protocol that never received a measurement has no
// server record and is closed locally.
func (s *Session) Finish(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	state, id := s.state, s.id
	s.mu.Unlock()

	switch state {
	case StateNoneSelected:
		return domain.ErrNotResolved
	case StateFinished:
		return domain.ErrProtocolClosed
	}

	if id != "" {
		if err := s.backend.FinishProtocol(ctx, id); err != nil {
			return fmt.Errorf("finish protocol %s: %w", id, err)
		}
	}

	s.mu.Lock()
	s.state = StateFinished
	s.mu.Unlock()

	s.log.Info("Protocol finished",
		zap.String("protocol_id", id),
		zap.Int("measured", s.MeasuredCount()),
		zap.Int("dimensions", s.catalog.Len()))
	return nil
}

// UnmeasuredAfter returns the next dimension without a measurement after dimensionID in
// catalog order. It does not wrap around.
func (s *Session) UnmeasuredAfter(dimensionID string) (domain.Dimension, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.NextUnmeasuredAfter(dimensionID)
}

func (s *Session) FirstUnmeasured() (domain.Dimension, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.FirstUnmeasured()
}

// Measurements returns the recorded measurements in recording order.
func (s *Session) Measurements() []domain.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Measurement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.measurements[id])
	}
	return out
}

func (s *Session) Measurement(dimensionID string) (domain.Measurement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.measurements[dimensionID]
	return m, ok
}

func (s *Session) MeasuredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.measurements)
}

func (s *Session) pendingDecisionLocked() error {
	if s.state != StateNoneSelected {
		return domain.ErrAlreadyResolved
	}
	if !s.resolved {
		return domain.ErrNotResolved
	}
	return nil
}

func (s *Session) openNewLocked() {
	s.catalog.Reset()
	s.measurements = make(map[string]domain.Measurement)
	s.order = nil
	s.id = ""
	s.pendingID = uuid.NewString()
	s.createdAt = s.now()
	s.state = StateOpen
}
