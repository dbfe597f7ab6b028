package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/tolerance"
	"github.com/MykolaKantsir/web/pkg/utils"
)

// Export is a rendered download_protocol answer.
type Export struct {
	ContentType string
	Filename    string
	Body        []byte
}

var csvHeader = []string{
	"protocol_id", "drawing", "status", "number", "dimension_id",
	"nominal", "min_value", "max_value", "measured_value", "pass",
}

// Export renders one protocol, or every protocol of a drawing when protocolID is empty.
func (s *measuringService) Export(ctx context.Context, format domain.ExportFormat, drawingID, protocolID string) (*Export, error) {
	switch format {
	case domain.FormatCSV, domain.FormatJSON, domain.FormatOverlayPDF:
	case domain.FormatPDF:
		return nil, fmt.Errorf("pdf rendering: %w", domain.ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("export format %q: %w", format, domain.ErrInvalidInput)
	}

	protocols, name, err := s.exportScope(ctx, drawingID, protocolID)
	if err != nil {
		return nil, err
	}

	exports := make([]domain.ProtocolExport, 0, len(protocols))
	drawings := make(map[string]*domain.Drawing)
	dims := make(map[string][]domain.Dimension)
	for _, p := range protocols {
		if _, ok := drawings[p.DrawingID]; !ok {
			d, err := s.repo.GetDrawing(ctx, p.DrawingID)
			if err != nil {
				return nil, err
			}
			list, err := s.repo.ListDimensions(ctx, p.DrawingID)
			if err != nil {
				return nil, err
			}
			drawings[p.DrawingID], dims[p.DrawingID] = d, list
		}
		pe, err := s.protocolExport(ctx, p, drawings[p.DrawingID], dims[p.DrawingID])
		if err != nil {
			return nil, err
		}
		exports = append(exports, pe)
	}

	out := &Export{Filename: name}
	switch format {
	case domain.FormatCSV:
		out.ContentType = "text/csv"
		out.Filename += ".csv"
		out.Body, err = renderCSV(exports)
	case domain.FormatJSON:
		out.ContentType = "application/json"
		out.Filename += ".json"
		out.Body, err = json.MarshalIndent(domain.ExportResponse{Protocols: exports}, "", "  ")
	case domain.FormatOverlayPDF:
		out.ContentType = "application/json"
		out.Filename += "_overlay.json"
		var overlay *domain.OverlayResponse
		if overlay, err = s.overlay(ctx, exports, drawings, dims); err == nil {
			out.Body, err = json.Marshal(overlay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	s.log.Info("Protocol export rendered",
		zap.String("format", string(format)),
		zap.String("drawing_id", drawingID),
		zap.String("protocol_id", protocolID),
		zap.Int("protocols", len(exports)),
		zap.Int("size", len(out.Body)))
	return out, nil
}

func (s *measuringService) exportScope(ctx context.Context, drawingID, protocolID string) ([]domain.Protocol, string, error) {
	if protocolID != "" {
		p, err := s.repo.GetProtocol(ctx, protocolID)
		if err != nil {
			return nil, "", err
		}
		return []domain.Protocol{*p}, "protocol_" + p.ID, nil
	}
	if drawingID == "" {
		return nil, "", fmt.Errorf("drawing_id or protocol_id required: %w", domain.ErrInvalidInput)
	}
	if _, err := s.repo.GetDrawing(ctx, drawingID); err != nil {
		return nil, "", err
	}
	list, err := s.repo.ListProtocols(ctx, drawingID, "")
	if err != nil {
		return nil, "", err
	}
	return list, "drawing_" + drawingID + "_protocols", nil
}

func (s *measuringService) protocolExport(ctx context.Context, p domain.Protocol, d *domain.Drawing, dims []domain.Dimension) (domain.ProtocolExport, error) {
	values, err := s.repo.ListMeasurements(ctx, p.ID)
	if err != nil {
		return domain.ProtocolExport{}, err
	}
	byDim := make(map[string]domain.Measurement, len(values))
	for _, m := range values {
		byDim[m.DimensionID] = m
	}

	pe := domain.ProtocolExport{
		ProtocolID: p.ID,
		DrawingID:  p.DrawingID,
		Drawing:    d.Filename,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		FinishedAt: p.FinishedAt,
		Rows:       make([]domain.ExportRow, len(dims)),
	}
	for i, dim := range dims {
		row := domain.ExportRow{
			Number:      i + 1,
			DimensionID: dim.ID,
			Nominal:     tolerance.FormatValue(dim.Value),
			MinValue:    tolerance.FormatValue(dim.MinValue),
			MaxValue:    tolerance.FormatValue(dim.MaxValue),
		}
		if m, ok := byDim[dim.ID]; ok {
			pass := m.Pass
			row.Measured = tolerance.FormatValue(m.Value)
			row.Pass = &pass
		}
		pe.Rows[i] = row
	}
	return pe, nil
}

func renderCSV(exports []domain.ProtocolExport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, pe := range exports {
		for _, row := range pe.Rows {
			pass := ""
			if row.Pass != nil {
				pass = strconv.FormatBool(*row.Pass)
			}
			record := []string{
				pe.ProtocolID, pe.Drawing, string(pe.Status), strconv.Itoa(row.Number), row.DimensionID,
				row.Nominal, row.MinValue, row.MaxValue, row.Measured, pass,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// overlay places each protocol's measured values on its drawing for client-side rendering.
// Unmeasured dimensions are left out.
func (s *measuringService) overlay(ctx context.Context, exports []domain.ProtocolExport, drawings map[string]*domain.Drawing, dims map[string][]domain.Dimension) (*domain.OverlayResponse, error) {
	images := make(map[string]string)
	resp := &domain.OverlayResponse{Protocols: make([]domain.OverlayProtocol, 0, len(exports))}

	for _, pe := range exports {
		d := drawings[pe.DrawingID]
		img, ok := images[d.ID]
		if !ok {
			data, err := s.images.DownloadFile(ctx, d.ImageKey)
			if err != nil {
				return nil, fmt.Errorf("load drawing image: %w", err)
			}
			img = utils.EncodeBase64(data)
			images[d.ID] = img
		}

		op := domain.OverlayProtocol{
			ProtocolID:       pe.ProtocolID,
			Drawing:          d.Filename,
			ProtocolDatetime: pe.CreatedAt,
			ImageBase64:      img,
			Dimensions:       []domain.OverlayDimension{},
		}
		for i, row := range pe.Rows {
			if row.Pass == nil {
				continue
			}
			dim := dims[pe.DrawingID][i]
			op.Dimensions = append(op.Dimensions, domain.OverlayDimension{
				X:             dim.Rect.X,
				Y:             dim.Rect.Y,
				Width:         dim.Rect.Width,
				Height:        dim.Rect.Height,
				IsVertical:    dim.IsVertical,
				Page:          dim.Page,
				MeasuredValue: row.Measured,
			})
		}
		resp.Protocols = append(resp.Protocols, op)
	}
	return resp, nil
}
