package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MykolaKantsir/web/internal/domain"
)

type drawingRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Filename  string `gorm:"size:255;not null;index"`
	Width     int    `gorm:"not null"`
	Height    int    `gorm:"not null"`
	Rotation  int    `gorm:"not null;default:0"`
	PageCount int    `gorm:"not null;default:1"`
	ImageKey  string `gorm:"size:512"`
	CreatedAt time.Time
}

func (drawingRecord) TableName() string { return "drawings" }

// dimensionRecord keeps authoring order in the auto-increment Seq column.
type dimensionRecord struct {
	Seq        int64   `gorm:"primaryKey;autoIncrement"`
	ID         string  `gorm:"size:36;not null;uniqueIndex"`
	DrawingID  string  `gorm:"size:36;not null;index"`
	X          float64 `gorm:"not null"`
	Y          float64 `gorm:"not null"`
	Width      float64 `gorm:"not null"`
	Height     float64 `gorm:"not null"`
	IsVertical bool    `gorm:"not null;default:false"`
	Value      float64 `gorm:"not null"`
	MinValue   float64 `gorm:"not null"`
	MaxValue   float64 `gorm:"not null"`
	Type       string  `gorm:"size:16;not null;default:'bilateral'"`
	Page       int     `gorm:"not null;default:1"`
}

func (dimensionRecord) TableName() string { return "dimensions" }

type protocolRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	DrawingID  string `gorm:"size:36;not null;index"`
	Status     string `gorm:"size:16;not null;index"`
	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (protocolRecord) TableName() string { return "protocols" }

type measurementRecord struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement"`
	ProtocolID  string    `gorm:"size:36;not null;uniqueIndex:idx_protocol_dimension"`
	DimensionID string    `gorm:"size:36;not null;uniqueIndex:idx_protocol_dimension"`
	Value       float64   `gorm:"not null"`
	Pass        bool      `gorm:"not null"`
	MeasuredAt  time.Time `gorm:"not null"`
}

func (measurementRecord) TableName() string { return "measured_values" }

type postgresRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewPostgresRepository opens the database and migrates the schema.
func NewPostgresRepository(dsn string, log *zap.Logger) (MeasuringRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&drawingRecord{}, &dimensionRecord{}, &protocolRecord{}, &measurementRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Info("Database schema migrated")
	return &postgresRepository{db: db, log: log}, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

func (r *postgresRepository) CreateDrawing(ctx context.Context, d *domain.Drawing) error {
	rec := drawingRecord{
		ID:        d.ID,
		Filename:  d.Filename,
		Width:     d.Width,
		Height:    d.Height,
		Rotation:  d.Rotation,
		PageCount: d.PageCount,
		ImageKey:  d.ImageKey,
		CreatedAt: d.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		r.log.Error("Failed to create drawing", zap.String("id", d.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepository) GetDrawing(ctx context.Context, id string) (*domain.Drawing, error) {
	var rec drawingRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "drawing "+id)
	}
	return rec.toDomain(), nil
}

func (r *postgresRepository) FindDrawing(ctx context.Context, query string) (*domain.Drawing, error) {
	var rec drawingRecord
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(filename) LIKE ?", pattern).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("drawing matching %q", query))
	}
	return rec.toDomain(), nil
}

func (r *postgresRepository) SaveDimension(ctx context.Context, d *domain.Dimension) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&drawingRecord{}, "id = ?", d.DrawingID).Error; err != nil {
			return notFound(err, "drawing "+d.DrawingID)
		}

		rec := dimensionFromDomain(d)
		var existing dimensionRecord
		err := tx.First(&existing, "id = ?", d.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&rec).Error
		case err != nil:
			return err
		case existing.DrawingID != d.DrawingID:
			return fmt.Errorf("dimension %s belongs to drawing %s: %w", d.ID, existing.DrawingID, domain.ErrInvalidInput)
		}
		rec.Seq = existing.Seq
		return tx.Save(&rec).Error
	})
}

func (r *postgresRepository) GetDimension(ctx context.Context, id string) (*domain.Dimension, error) {
	var rec dimensionRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "dimension "+id)
	}
	return rec.toDomain(), nil
}

func (r *postgresRepository) ListDimensions(ctx context.Context, drawingID string) ([]domain.Dimension, error) {
	var recs []dimensionRecord
	if err := r.db.WithContext(ctx).Where("drawing_id = ?", drawingID).Order("seq").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Dimension, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toDomain())
	}
	return out, nil
}

func (r *postgresRepository) CreateProtocol(ctx context.Context, p *domain.Protocol) error {
	rec := protocolRecord{
		ID:         p.ID,
		DrawingID:  p.DrawingID,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		FinishedAt: p.FinishedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *postgresRepository) GetProtocol(ctx context.Context, id string) (*domain.Protocol, error) {
	var rec protocolRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "protocol "+id)
	}
	return rec.toDomain(), nil
}

func (r *postgresRepository) ListProtocols(ctx context.Context, drawingID string, status domain.ProtocolStatus) ([]domain.Protocol, error) {
	q := r.db.WithContext(ctx).Where("drawing_id = ?", drawingID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var recs []protocolRecord
	if err := q.Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Protocol, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toDomain())
	}
	return out, nil
}

func (r *postgresRepository) FinishProtocol(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec protocolRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error; err != nil {
			return notFound(err, "protocol "+id)
		}
		if rec.Status == string(domain.StatusFinished) {
			return fmt.Errorf("protocol %s: %w", id, domain.ErrProtocolClosed)
		}
		return tx.Model(&rec).Updates(map[string]interface{}{
			"status":      string(domain.StatusFinished),
			"finished_at": at,
		}).Error
	})
}

func (r *postgresRepository) PutMeasurement(ctx context.Context, m *domain.Measurement, replace bool) (*domain.Measurement, error) {
	var existing *domain.Measurement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p protocolRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", m.ProtocolID).Error; err != nil {
			return notFound(err, "protocol "+m.ProtocolID)
		}
		if p.Status == string(domain.StatusFinished) {
			return fmt.Errorf("protocol %s: %w", m.ProtocolID, domain.ErrProtocolClosed)
		}

		var prev measurementRecord
		err := tx.First(&prev, "protocol_id = ? AND dimension_id = ?", m.ProtocolID, m.DimensionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec := measurementRecord{
				ProtocolID:  m.ProtocolID,
				DimensionID: m.DimensionID,
				Value:       m.Value,
				Pass:        m.Pass,
				MeasuredAt:  m.MeasuredAt,
			}
			return tx.Create(&rec).Error
		case err != nil:
			return err
		case !replace:
			existing = prev.toDomain()
			return nil
		}

		return tx.Model(&prev).Updates(map[string]interface{}{
			"value":       m.Value,
			"pass":        m.Pass,
			"measured_at": m.MeasuredAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *postgresRepository) ListMeasurements(ctx context.Context, protocolID string) ([]domain.Measurement, error) {
	if _, err := r.GetProtocol(ctx, protocolID); err != nil {
		return nil, err
	}

	var recs []measurementRecord
	if err := r.db.WithContext(ctx).Where("protocol_id = ?", protocolID).Order("seq").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Measurement, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toDomain())
	}
	return out, nil
}

func (rec drawingRecord) toDomain() *domain.Drawing {
	return &domain.Drawing{
		ID:        rec.ID,
		Filename:  rec.Filename,
		Width:     rec.Width,
		Height:    rec.Height,
		Rotation:  rec.Rotation,
		PageCount: rec.PageCount,
		ImageKey:  rec.ImageKey,
		CreatedAt: rec.CreatedAt,
	}
}

func dimensionFromDomain(d *domain.Dimension) dimensionRecord {
	return dimensionRecord{
		ID:         d.ID,
		DrawingID:  d.DrawingID,
		X:          d.Rect.X,
		Y:          d.Rect.Y,
		Width:      d.Rect.Width,
		Height:     d.Rect.Height,
		IsVertical: d.IsVertical,
		Value:      d.Value,
		MinValue:   d.MinValue,
		MaxValue:   d.MaxValue,
		Type:       string(d.Type),
		Page:       d.Page,
	}
}

func (rec dimensionRecord) toDomain() *domain.Dimension {
	return &domain.Dimension{
		ID:         rec.ID,
		DrawingID:  rec.DrawingID,
		Rect:       domain.Rect{X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height},
		IsVertical: rec.IsVertical,
		Value:      rec.Value,
		MinValue:   rec.MinValue,
		MaxValue:   rec.MaxValue,
		Type:       domain.DimensionType(rec.Type),
		Page:       rec.Page,
	}
}

func (rec protocolRecord) toDomain() *domain.Protocol {
	return &domain.Protocol{
		ID:         rec.ID,
		DrawingID:  rec.DrawingID,
		Status:     domain.ProtocolStatus(rec.Status),
		CreatedAt:  rec.CreatedAt,
		FinishedAt: rec.FinishedAt,
	}
}

func (rec measurementRecord) toDomain() *domain.Measurement {
	return &domain.Measurement{
		DimensionID: rec.DimensionID,
		ProtocolID:  rec.ProtocolID,
		Value:       rec.Value,
		Pass:        rec.Pass,
		MeasuredAt:  rec.MeasuredAt,
	}
}
