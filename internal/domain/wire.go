package domain

import "time"

// Request and response bodies of the measuring HTTP API. Numeric values travel as
// decimal-point strings.

type CreateDrawingRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ImageBase64 string `json:"drawing_image_base64" binding:"required"`
	Rotation    int    `json:"flip_angle"`
	PageCount   int    `json:"pages_count"`
}

type CreateDrawingResponse struct {
	Success   bool   `json:"success"`
	DrawingID string `json:"drawing_id"`
}

type DrawingPayload struct {
	Drawing     Drawing     `json:"drawing"`
	ImageBase64 string      `json:"drawing_image_base64"`
	Dimensions  []Dimension `json:"dimensions"`
}

type GetDrawingResponse struct {
	Drawing DrawingPayload `json:"drawing"`
}

type DimensionRequest struct {
	DrawingID   string `json:"drawing_id" binding:"required"`
	DimensionID string `json:"dimension_id"`
	X           string `json:"x"`
	Y           string `json:"y"`
	Width       string `json:"width"`
	Height      string `json:"height"`
	Value       string `json:"value" binding:"required"`
	MinValue    string `json:"min_value"`
	MaxValue    string `json:"max_value"`
	IsVertical  bool   `json:"is_vertical"`
	Type        string `json:"type_selection"`
	Page        int    `json:"page"`

	// Used only when min_value and max_value are omitted. ToleranceMode is "flat" or
	// "table"; empty means the server's default offset.
	ToleranceMode  string `json:"tolerance_mode"`
	Tolerance      string `json:"tolerance"`
	ToleranceClass string `json:"tolerance_class"`
}

type DimensionResponse struct {
	Success     bool   `json:"success"`
	DimensionID string `json:"dimension_id"`
	Message     string `json:"message"`
}

type UnfinishedProtocolsResponse struct {
	Protocols []ProtocolSummary `json:"protocols"`
}

type MeasuredValue struct {
	DimensionID string `json:"dimension_id"`
	Value       string `json:"value"`
}

type ProtocolData struct {
	ID             string          `json:"id"`
	DrawingID      string          `json:"drawing_id"`
	Status         ProtocolStatus  `json:"status"`
	MeasuredValues []MeasuredValue `json:"measured_values"`
}

type ProtocolDataResponse struct {
	Protocol ProtocolData `json:"protocol"`
}

// SaveMeasurementRequest without a protocol id opens a protocol. NewProtocolID, when set,
// names that protocol so a retried first save lands in the same one.
type SaveMeasurementRequest struct {
	DimensionID   string `json:"dimension_id" binding:"required"`
	DrawingID     string `json:"drawing_id" binding:"required"`
	ProtocolID    string `json:"protocol_id"`
	NewProtocolID string `json:"new_protocol_id,omitempty"`
	MeasuredValue string `json:"measured_value" binding:"required"`
	Replace       bool   `json:"replace"`
}

// SaveMeasurementResponse is either an acknowledgement or a duplicate notice.
type SaveMeasurementResponse struct {
	Success       bool   `json:"success,omitempty"`
	ProtocolID    string `json:"protocolId,omitempty"`
	DimensionID   string `json:"dimensionId,omitempty"`
	Pass          bool   `json:"pass,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	ExistingValue string `json:"existing_value,omitempty"`
}

type FinishProtocolRequest struct {
	ProtocolID string `json:"protocol_id" binding:"required"`
}

type FinishProtocolResponse struct {
	Success bool `json:"success"`
}

type FindDrawingResponse struct {
	DrawingID string `json:"drawing_id"`
}

// FormRow is one numbered line of a blank protocol form.
type FormRow struct {
	Number    int       `json:"number"`
	Dimension Dimension `json:"dimension"`
}

type EmptyFormResponse struct {
	Drawing Drawing   `json:"drawing"`
	Rows    []FormRow `json:"rows"`
}

// ExportFormat names a download_protocol output.
type ExportFormat string

const (
	FormatPDF        ExportFormat = "pdf"
	FormatCSV        ExportFormat = "csv"
	FormatJSON       ExportFormat = "json"
	FormatOverlayPDF ExportFormat = "overlay_pdf"
)

// ExportRow is one dimension line of a protocol export.
type ExportRow struct {
	Number      int    `json:"number"`
	DimensionID string `json:"dimension_id"`
	Nominal     string `json:"nominal"`
	MinValue    string `json:"min_value"`
	MaxValue    string `json:"max_value"`
	Measured    string `json:"measured_value"`
	Pass        *bool  `json:"pass"`
}

type ProtocolExport struct {
	ProtocolID string         `json:"protocol_id"`
	DrawingID  string         `json:"drawing_id"`
	Drawing    string         `json:"drawing"`
	Status     ProtocolStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Rows       []ExportRow    `json:"rows"`
}

type ExportResponse struct {
	Protocols []ProtocolExport `json:"protocols"`
}

// OverlayDimension is a measured value placed on the drawing at its native rectangle.
type OverlayDimension struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	IsVertical    bool    `json:"is_vertical"`
	Page          int     `json:"page"`
	MeasuredValue string  `json:"measured_value"`
}

type OverlayProtocol struct {
	ProtocolID       string             `json:"protocol_id"`
	Drawing          string             `json:"drawing"`
	ProtocolDatetime time.Time          `json:"protocol_datetime"`
	ImageBase64      string             `json:"drawing_image_base64"`
	Dimensions       []OverlayDimension `json:"dimensions"`
}

type OverlayResponse struct {
	Protocols []OverlayProtocol `json:"protocols"`
}
