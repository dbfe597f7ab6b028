package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
)

type memoryRepository struct {
	mu sync.RWMutex

	drawings     map[string]domain.Drawing
	dimensions   map[string]domain.Dimension
	dimOrder     map[string][]string // drawing id -> dimension ids
	protocols    map[string]domain.Protocol
	measurements map[string]map[string]domain.Measurement // protocol id -> dimension id -> value
	measOrder    map[string][]string

	log *zap.Logger
}

func NewMemoryRepository(log *zap.Logger) MeasuringRepository {
	return &memoryRepository{
		drawings:     make(map[string]domain.Drawing),
		dimensions:   make(map[string]domain.Dimension),
		dimOrder:     make(map[string][]string),
		protocols:    make(map[string]domain.Protocol),
		measurements: make(map[string]map[string]domain.Measurement),
		measOrder:    make(map[string][]string),
		log:          log,
	}
}

func (r *memoryRepository) CreateDrawing(ctx context.Context, d *domain.Drawing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drawings[d.ID]; ok {
		return fmt.Errorf("drawing %s already exists: %w", d.ID, domain.ErrInvalidInput)
	}
	r.drawings[d.ID] = *d
	return nil
}

func (r *memoryRepository) GetDrawing(ctx context.Context, id string) (*domain.Drawing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drawings[id]
	if !ok {
		return nil, fmt.Errorf("drawing %s: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (r *memoryRepository) FindDrawing(ctx context.Context, query string) (*domain.Drawing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var best *domain.Drawing
	for _, d := range r.drawings {
		if !strings.Contains(strings.ToLower(d.Filename), q) {
			continue
		}
		if best == nil || d.CreatedAt.After(best.CreatedAt) {
			d := d
			best = &d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("drawing matching %q: %w", query, domain.ErrNotFound)
	}
	return best, nil
}

func (r *memoryRepository) SaveDimension(ctx context.Context, d *domain.Dimension) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drawings[d.DrawingID]; !ok {
		return fmt.Errorf("drawing %s: %w", d.DrawingID, domain.ErrNotFound)
	}
	if prev, ok := r.dimensions[d.ID]; ok {
		if prev.DrawingID != d.DrawingID {
			return fmt.Errorf("dimension %s belongs to drawing %s: %w", d.ID, prev.DrawingID, domain.ErrInvalidInput)
		}
	} else {
		r.dimOrder[d.DrawingID] = append(r.dimOrder[d.DrawingID], d.ID)
	}
	r.dimensions[d.ID] = *d
	return nil
}

func (r *memoryRepository) GetDimension(ctx context.Context, id string) (*domain.Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dimensions[id]
	if !ok {
		return nil, fmt.Errorf("dimension %s: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (r *memoryRepository) ListDimensions(ctx context.Context, drawingID string) ([]domain.Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.dimOrder[drawingID]
	out := make([]domain.Dimension, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.dimensions[id])
	}
	return out, nil
}

func (r *memoryRepository) CreateProtocol(ctx context.Context, p *domain.Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drawings[p.DrawingID]; !ok {
		return fmt.Errorf("drawing %s: %w", p.DrawingID, domain.ErrNotFound)
	}
	if _, ok := r.protocols[p.ID]; ok {
		return fmt.Errorf("protocol %s already exists: %w", p.ID, domain.ErrInvalidInput)
	}
	r.protocols[p.ID] = *p
	r.measurements[p.ID] = make(map[string]domain.Measurement)
	return nil
}

func (r *memoryRepository) GetProtocol(ctx context.Context, id string) (*domain.Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.protocols[id]
	if !ok {
		return nil, fmt.Errorf("protocol %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (r *memoryRepository) ListProtocols(ctx context.Context, drawingID string, status domain.ProtocolStatus) ([]domain.Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Protocol
	for _, p := range r.protocols {
		if p.DrawingID == drawingID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) FinishProtocol(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.protocols[id]
	if !ok {
		return fmt.Errorf("protocol %s: %w", id, domain.ErrNotFound)
	}
	if p.Status == domain.StatusFinished {
		return fmt.Errorf("protocol %s: %w", id, domain.ErrProtocolClosed)
	}
	p.Status = domain.StatusFinished
	p.FinishedAt = &at
	r.protocols[id] = p

	r.log.Info("Protocol finished", zap.String("protocol_id", id))
	return nil
}

func (r *memoryRepository) PutMeasurement(ctx context.Context, m *domain.Measurement, replace bool) (*domain.Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.protocols[m.ProtocolID]
	if !ok {
		return nil, fmt.Errorf("protocol %s: %w", m.ProtocolID, domain.ErrNotFound)
	}
	if p.Status == domain.StatusFinished {
		return nil, fmt.Errorf("protocol %s: %w", m.ProtocolID, domain.ErrProtocolClosed)
	}

	values := r.measurements[m.ProtocolID]
	if prev, ok := values[m.DimensionID]; ok {
		if !replace {
			return &prev, nil
		}
	} else {
		r.measOrder[m.ProtocolID] = append(r.measOrder[m.ProtocolID], m.DimensionID)
	}
	values[m.DimensionID] = *m
	return nil, nil
}

func (r *memoryRepository) ListMeasurements(ctx context.Context, protocolID string) ([]domain.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.protocols[protocolID]; !ok {
		return nil, fmt.Errorf("protocol %s: %w", protocolID, domain.ErrNotFound)
	}
	ids := r.measOrder[protocolID]
	out := make([]domain.Measurement, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.measurements[protocolID][id])
	}
	return out, nil
}

type memoryImageStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryImageStore keeps images in process memory, for local runs and tests.
func NewMemoryImageStore() ImageStore {
	return &memoryImageStore{files: make(map[string][]byte)}
}

func (s *memoryImageStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryImageStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *memoryImageStore) DeleteFile(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}
