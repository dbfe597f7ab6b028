package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/config"
	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/geometry"
	"github.com/MykolaKantsir/web/internal/repository"
	"github.com/MykolaKantsir/web/internal/tolerance"
	"github.com/MykolaKantsir/web/pkg/utils"
)

const defaultPreviewSide = 400

// MeasuringService implements the measuring API on top of the repositories.
type MeasuringService interface {
	CreateDrawing(ctx context.Context, req domain.CreateDrawingRequest) (*domain.Drawing, error)
	GetDrawing(ctx context.Context, drawingID string) (*domain.DrawingPayload, error)
	FindDrawing(ctx context.Context, query string) (*domain.Drawing, error)
	DimensionPreview(ctx context.Context, drawingID, dimensionID string, maxSide int, format string) ([]byte, string, error)

	// SaveDimension reports whether the dimension was created rather than updated.
	SaveDimension(ctx context.Context, req domain.DimensionRequest) (*domain.Dimension, bool, error)
	EmptyForm(ctx context.Context, drawingID string) (*domain.EmptyFormResponse, error)

	CheckUnfinished(ctx context.Context, drawingID string) ([]domain.ProtocolSummary, error)
	GetProtocolData(ctx context.Context, protocolID string) (*domain.ProtocolData, error)
	SaveMeasurement(ctx context.Context, req domain.SaveMeasurementRequest) (*domain.SaveMeasurementResponse, error)
	FinishProtocol(ctx context.Context, protocolID string) error
	Export(ctx context.Context, format domain.ExportFormat, drawingID, protocolID string) (*Export, error)
}

type measuringService struct {
	repo   repository.MeasuringRepository
	images repository.ImageStore
	proc   *utils.ImageProcessor
	engine *tolerance.Engine
	class  tolerance.Class
	cfg    *config.Config
	log    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewMeasuringService(repo repository.MeasuringRepository, images repository.ImageStore, cfg *config.Config, log *zap.Logger) (MeasuringService, error) {
	class, err := tolerance.ParseClass(cfg.App.DefaultClass)
	if err != nil {
		return nil, fmt.Errorf("default tolerance class: %w", err)
	}
	return &measuringService{
		repo:   repo,
		images: images,
		proc:   utils.NewImageProcessor(log),
		engine: tolerance.NewEngine(cfg.App.DefaultTolerance),
		class:  class,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

func (s *measuringService) CreateDrawing(ctx context.Context, req domain.CreateDrawingRequest) (*domain.Drawing, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("empty filename: %w", domain.ErrInvalidInput)
	}

	data, err := s.proc.DecodeBase64(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if int64(len(data)) > s.cfg.App.MaxUploadSize {
		return nil, fmt.Errorf("image of %d bytes exceeds %d: %w", len(data), s.cfg.App.MaxUploadSize, domain.ErrInvalidInput)
	}

	info, err := s.proc.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("drawing image: %w: %w", domain.ErrInvalidInput, err)
	}
	if !slices.Contains(s.cfg.App.AllowedFormats, info.Format) {
		return nil, fmt.Errorf("image format %s not allowed: %w", info.Format, domain.ErrInvalidInput)
	}

	rotation := ((req.Rotation % 360) + 360) % 360
	if rotation%90 != 0 {
		return nil, fmt.Errorf("flip angle %d: %w", req.Rotation, domain.ErrInvalidInput)
	}
	pages := req.PageCount
	if pages <= 0 {
		pages = 1
	}

	id := s.newID()
	drawing := &domain.Drawing{
		ID:        id,
		Filename:  filename,
		Width:     info.Width,
		Height:    info.Height,
		Rotation:  rotation,
		PageCount: pages,
		ImageKey:  "drawings/" + id + info.Extension(),
		CreatedAt: s.now(),
	}

	if err := s.images.UploadFile(ctx, drawing.ImageKey, data, info.ContentType()); err != nil {
		return nil, fmt.Errorf("store drawing image: %w", err)
	}
	if err := s.repo.CreateDrawing(ctx, drawing); err != nil {
		if delErr := s.images.DeleteFile(ctx, drawing.ImageKey); delErr != nil {
			s.log.Warn("Failed to remove orphaned drawing image",
				zap.String("key", drawing.ImageKey),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.log.Info("Drawing created",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("size", len(data)))

	return drawing, nil
}

func (s *measuringService) GetDrawing(ctx context.Context, drawingID string) (*domain.DrawingPayload, error) {
	drawing, err := s.repo.GetDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	data, err := s.images.DownloadFile(ctx, drawing.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("load drawing image: %w", err)
	}
	dims, err := s.repo.ListDimensions(ctx, drawingID)
	if err != nil {
		return nil, err
	}

	return &domain.DrawingPayload{
		Drawing:     *drawing,
		ImageBase64: utils.EncodeBase64(data),
		Dimensions:  dims,
	}, nil
}

func (s *measuringService) FindDrawing(ctx context.Context, query string) (*domain.Drawing, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	return s.repo.FindDrawing(ctx, query)
}

// DimensionPreview renders the dimension's region of the drawing, PNG unless format is "jpeg".
func (s *measuringService) DimensionPreview(ctx context.Context, drawingID, dimensionID string, maxSide int, format string) ([]byte, string, error) {
	dim, err := s.repo.GetDimension(ctx, dimensionID)
	if err != nil {
		return nil, "", err
	}
	if dim.DrawingID != drawingID {
		return nil, "", fmt.Errorf("dimension %s on drawing %s: %w", dimensionID, drawingID, domain.ErrNotFound)
	}
	drawing, err := s.repo.GetDrawing(ctx, drawingID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.images.DownloadFile(ctx, drawing.ImageKey)
	if err != nil {
		return nil, "", fmt.Errorf("load drawing image: %w", err)
	}

	if maxSide <= 0 {
		maxSide = defaultPreviewSide
	}
	r := dim.Rect
	region := image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)

	out, err := s.proc.Preview(data, region, maxSide)
	if err != nil {
		if errors.Is(err, utils.ErrEmptyRegion) {
			return nil, "", fmt.Errorf("dimension %s: %w: %w", dimensionID, domain.ErrInvalidInput, err)
		}
		return nil, "", err
	}

	switch format {
	case "", "png":
		return out, "image/png", nil
	case "jpeg", "jpg":
		return s.proc.CompressImage(out, 85)
	}
	return nil, "", fmt.Errorf("preview format %q: %w", format, domain.ErrUnsupportedFormat)
}

func (s *measuringService) SaveDimension(ctx context.Context, req domain.DimensionRequest) (*domain.Dimension, bool, error) {
	drawing, err := s.repo.GetDrawing(ctx, req.DrawingID)
	if err != nil {
		return nil, false, err
	}

	kind, err := tolerance.ParseKind(req.Type)
	if err != nil {
		return nil, false, err
	}
	rng, err := s.dimensionRange(req, kind)
	if err != nil {
		return nil, false, err
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	if page > drawing.PageCount {
		return nil, false, fmt.Errorf("page %d of %d: %w", page, drawing.PageCount, domain.ErrInvalidInput)
	}

	var dim domain.Dimension
	created := req.DimensionID == ""
	if created {
		rect, err := parseRect(req)
		if err != nil {
			return nil, false, err
		}
		dim = domain.Dimension{ID: s.newID(), DrawingID: drawing.ID, Rect: rect}
	} else {
		existing, err := s.repo.GetDimension(ctx, req.DimensionID)
		if err != nil {
			return nil, false, err
		}
		if existing.DrawingID != drawing.ID {
			return nil, false, fmt.Errorf("dimension %s on drawing %s: %w", req.DimensionID, drawing.ID, domain.ErrNotFound)
		}
		// The region is fixed once authored.
		dim = *existing
	}

	dim.Value = rng.Nominal
	dim.MinValue = rng.Min
	dim.MaxValue = rng.Max
	dim.IsVertical = req.IsVertical
	dim.Type = kind
	dim.Page = page

	if err := s.repo.SaveDimension(ctx, &dim); err != nil {
		return nil, false, err
	}

	s.log.Info("Dimension saved",
		zap.String("id", dim.ID),
		zap.String("drawing_id", dim.DrawingID),
		zap.Bool("created", created),
		zap.Float64("min", dim.MinValue),
		zap.Float64("max", dim.MaxValue))
	return &dim, created, nil
}

// dimensionRange uses explicit bounds when both are given and derives them otherwise.
func (s *measuringService) dimensionRange(req domain.DimensionRequest, kind domain.DimensionType) (tolerance.Range, error) {
	nominal, err := tolerance.ParseValue(req.Value)
	if err != nil {
		return tolerance.Range{}, err
	}

	minText, maxText := strings.TrimSpace(req.MinValue), strings.TrimSpace(req.MaxValue)
	switch {
	case minText != "" && maxText != "":
		lo, err := tolerance.ParseValue(minText)
		if err != nil {
			return tolerance.Range{}, err
		}
		hi, err := tolerance.ParseValue(maxText)
		if err != nil {
			return tolerance.Range{}, err
		}
		if lo > hi {
			return tolerance.Range{}, fmt.Errorf("min %s above max %s: %w", minText, maxText, domain.ErrInvalidInput)
		}
		return tolerance.Range{Nominal: nominal, Min: lo, Max: hi}, nil
	case minText != "" || maxText != "":
		return tolerance.Range{}, fmt.Errorf("min and max must be given together: %w", domain.ErrInvalidInput)
	}

	rule := tolerance.Rule{Kind: kind}
	switch strings.ToLower(strings.TrimSpace(req.ToleranceMode)) {
	case "":
		rule.Mode = tolerance.ModeDefault
	case string(tolerance.ModeFlat):
		rule.Mode = tolerance.ModeFlat
		if rule.Offset, err = tolerance.ParseValue(req.Tolerance); err != nil {
			return tolerance.Range{}, err
		}
	case string(tolerance.ModeTable):
		rule.Mode = tolerance.ModeTable
		rule.Class = s.class
		if req.ToleranceClass != "" {
			if rule.Class, err = tolerance.ParseClass(req.ToleranceClass); err != nil {
				return tolerance.Range{}, err
			}
		}
	default:
		return tolerance.Range{}, fmt.Errorf("tolerance mode %q: %w", req.ToleranceMode, domain.ErrInvalidInput)
	}
	return s.engine.RangeOf(nominal, rule)
}

func parseRect(req domain.DimensionRequest) (domain.Rect, error) {
	var vals [4]float64
	for i, text := range []string{req.X, req.Y, req.Width, req.Height} {
		v, err := tolerance.ParseValue(text)
		if err != nil {
			return domain.Rect{}, fmt.Errorf("dimension region: %w", err)
		}
		vals[i] = v
	}
	rect := domain.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if !geometry.Valid(rect) {
		return domain.Rect{}, fmt.Errorf("empty dimension region: %w", domain.ErrInvalidInput)
	}
	return rect, nil
}

func (s *measuringService) EmptyForm(ctx context.Context, drawingID string) (*domain.EmptyFormResponse, error) {
	drawing, err := s.repo.GetDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	dims, err := s.repo.ListDimensions(ctx, drawingID)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.FormRow, len(dims))
	for i, d := range dims {
		rows[i] = domain.FormRow{Number: i + 1, Dimension: d}
	}
	return &domain.EmptyFormResponse{Drawing: *drawing, Rows: rows}, nil
}
