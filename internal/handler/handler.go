package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/service"
)

type Handler struct {
	service service.MeasuringService
	log     *zap.Logger
}

func NewHandler(service service.MeasuringService, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) CreateDrawing(c *gin.Context) {
	var req domain.CreateDrawingRequest
	if !h.bind(c, &req) {
		return
	}

	drawing, err := h.service.CreateDrawing(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to create drawing", err)
		return
	}

	c.JSON(http.StatusOK, domain.CreateDrawingResponse{Success: true, DrawingID: drawing.ID})
}

func (h *Handler) GetDrawing(c *gin.Context) {
	payload, err := h.service.GetDrawing(c.Request.Context(), c.Param("drawing_id"))
	if err != nil {
		h.fail(c, "Failed to get drawing", err)
		return
	}

	c.JSON(http.StatusOK, domain.GetDrawingResponse{Drawing: *payload})
}

func (h *Handler) FindDrawing(c *gin.Context) {
	drawing, err := h.service.FindDrawing(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.fail(c, "Failed to find drawing", err)
		return
	}

	c.JSON(http.StatusOK, domain.FindDrawingResponse{DrawingID: drawing.ID})
}

func (h *Handler) DimensionPreview(c *gin.Context) {
	maxSide := 0
	if v := c.Query("max_side"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_side must be a non-negative integer"})
			return
		}
		maxSide = n
	}

	data, contentType, err := h.service.DimensionPreview(c.Request.Context(),
		c.Param("drawing_id"), c.Param("dimension_id"), maxSide, c.Query("format"))
	if err != nil {
		h.fail(c, "Failed to render dimension preview", err)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) SaveDimension(c *gin.Context) {
	var req domain.DimensionRequest
	if !h.bind(c, &req) {
		return
	}

	dim, created, err := h.service.SaveDimension(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to save dimension", err)
		return
	}

	message := "Updated"
	if created {
		message = "Created"
	}
	c.JSON(http.StatusOK, domain.DimensionResponse{Success: true, DimensionID: dim.ID, Message: message})
}

func (h *Handler) EmptyProtocolForm(c *gin.Context) {
	form, err := h.service.EmptyForm(c.Request.Context(), c.Query("drawing_id"))
	if err != nil {
		h.fail(c, "Failed to build protocol form", err)
		return
	}

	c.JSON(http.StatusOK, form)
}

func (h *Handler) CheckUnfinishedProtocols(c *gin.Context) {
	protocols, err := h.service.CheckUnfinished(c.Request.Context(), c.Query("drawing_id"))
	if err != nil {
		h.fail(c, "Failed to check unfinished protocols", err)
		return
	}

	c.JSON(http.StatusOK, domain.UnfinishedProtocolsResponse{Protocols: protocols})
}

func (h *Handler) GetProtocolData(c *gin.Context) {
	data, err := h.service.GetProtocolData(c.Request.Context(), c.Query("protocol_id"))
	if err != nil {
		h.fail(c, "Failed to get protocol data", err)
		return
	}

	c.JSON(http.StatusOK, domain.ProtocolDataResponse{Protocol: *data})
}

func (h *Handler) SaveMeasurement(c *gin.Context) {
	var req domain.SaveMeasurementRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.service.SaveMeasurement(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to save measurement", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) FinishProtocol(c *gin.Context) {
	var req domain.FinishProtocolRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.service.FinishProtocol(c.Request.Context(), req.ProtocolID); err != nil {
		h.fail(c, "Failed to finish protocol", err)
		return
	}

	c.JSON(http.StatusOK, domain.FinishProtocolResponse{Success: true})
}

func (h *Handler) DownloadProtocol(c *gin.Context) {
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.FormatPDF)))
	export, err := h.service.Export(c.Request.Context(), format, c.Query("drawing_id"), c.Query("protocol_id"))
	if err != nil {
		h.fail(c, "Failed to export protocol", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Debug("Rejected request body",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// fail answers with the status matching err's domain class. Unclassified errors are logged
// and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.log.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
	case http.StatusConflict:
		c.JSON(status, gin.H{"error": domain.ErrProtocolClosed.Error()})
	default:
		h.log.Debug(msg, zap.Int("status", status), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// StatusFor maps the domain error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProtocolClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOutOfToleranceRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
