package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/config"
	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/handler"
	"github.com/MykolaKantsir/web/internal/repository"
	"github.com/MykolaKantsir/web/internal/service"
	"github.com/MykolaKantsir/web/pkg/utils"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{App: config.AppConfig{
		MaxUploadSize:    1 << 20,
		AllowedFormats:   []string{"png"},
		DefaultTolerance: 0.1,
		DefaultClass:     "m",
	}}
	svc, err := service.NewMeasuringService(repository.NewMemoryRepository(log), repository.NewMemoryImageStore(), cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(handler.NewHandler(svc, log))
}

func call(t *testing.T, router http.Handler, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func pngBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatal(err)
	}
	return utils.EncodeBase64(buf.Bytes())
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	var out map[string]string
	if code := call(t, router, http.MethodGet, "/health", nil, &out); code != http.StatusOK || out["status"] != "OK" {
		t.Errorf("health = %d %v", code, out)
	}
}

func TestMeasuringRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	var created domain.CreateDrawingResponse
	code := call(t, router, http.MethodPost, apiPrefix+"/create_drawing/", domain.CreateDrawingRequest{
		Filename:    "FLANGE-7.pdf",
		ImageBase64: pngBase64(t),
		PageCount:   2,
	}, &created)
	if code != http.StatusOK || !created.Success || created.DrawingID == "" {
		t.Fatalf("create_drawing = %d %+v", code, created)
	}
	drawingID := created.DrawingID

	var dim domain.DimensionResponse
	code = call(t, router, http.MethodPost, apiPrefix+"/create_or_update_dimension/", domain.DimensionRequest{
		DrawingID: drawingID,
		X:         "4",
		Y:         "4",
		Width:     "20",
		Height:    "10",
		Value:     "10.5",
		MinValue:  "10.4",
		MaxValue:  "10.6",
		Page:      2,
	}, &dim)
	if code != http.StatusOK || dim.Message != "Created" || dim.DimensionID == "" {
		t.Fatalf("create_or_update_dimension = %d %+v", code, dim)
	}

	var drawing domain.GetDrawingResponse
	code = call(t, router, http.MethodGet, apiPrefix+"/drawing/"+drawingID+"/", nil, &drawing)
	if code != http.StatusOK || len(drawing.Drawing.Dimensions) != 1 || drawing.Drawing.Drawing.PageCount != 2 {
		t.Fatalf("drawing = %d %+v", code, drawing.Drawing.Drawing)
	}

	var form domain.EmptyFormResponse
	code = call(t, router, http.MethodGet, apiPrefix+"/empty_protocol_form/?drawing_id="+drawingID, nil, &form)
	if code != http.StatusOK || len(form.Rows) != 1 || form.Rows[0].Number != 1 {
		t.Fatalf("empty_protocol_form = %d %+v", code, form)
	}

	var saved domain.SaveMeasurementResponse
	code = call(t, router, http.MethodPost, apiPrefix+"/save_measurement/", domain.SaveMeasurementRequest{
		DimensionID:   dim.DimensionID,
		DrawingID:     drawingID,
		MeasuredValue: "10.600",
	}, &saved)
	if code != http.StatusOK || !saved.Success || !saved.Pass || saved.ProtocolID == "" {
		t.Fatalf("save_measurement = %d %+v", code, saved)
	}

	var dup domain.SaveMeasurementResponse
	call(t, router, http.MethodPost, apiPrefix+"/save_measurement/", domain.SaveMeasurementRequest{
		DimensionID:   dim.DimensionID,
		DrawingID:     drawingID,
		ProtocolID:    saved.ProtocolID,
		MeasuredValue: "10.5",
	}, &dup)
	if !dup.Duplicate || dup.ExistingValue != "10.6" {
		t.Errorf("Expected duplicate notice, got %+v", dup)
	}

	var open domain.UnfinishedProtocolsResponse
	call(t, router, http.MethodGet, apiPrefix+"/check_unfinished_protocols/?drawing_id="+drawingID, nil, &open)
	if len(open.Protocols) != 1 || open.Protocols[0].MeasuredCount != 1 {
		t.Errorf("check_unfinished_protocols = %+v", open)
	}

	var finished domain.FinishProtocolResponse
	code = call(t, router, http.MethodPost, apiPrefix+"/finish_protocol/", domain.FinishProtocolRequest{ProtocolID: saved.ProtocolID}, &finished)
	if code != http.StatusOK || !finished.Success {
		t.Fatalf("finish_protocol = %d %+v", code, finished)
	}

	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/save_measurement/", strings.NewReader(
		`{"dimension_id":"`+dim.DimensionID+`","drawing_id":"`+drawingID+`","protocol_id":"`+saved.ProtocolID+`","measured_value":"10.5","replace":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict || strings.TrimSpace(w.Body.String()) != `{"error":"protocol closed"}` {
		t.Errorf("Expected 409 protocol closed, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, apiPrefix+"/download_protocol/?format=csv&protocol_id="+saved.ProtocolID, nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/csv" || !strings.Contains(w.Body.String(), "10.6,true") {
		t.Errorf("csv download = %d %q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "protocol_"+saved.ProtocolID+".csv") {
		t.Errorf("Unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, apiPrefix+"/download_protocol/?format=pdf&drawing_id="+drawingID, nil))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 for pdf, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, apiPrefix+"/drawing/"+drawingID+"/dimension/"+dim.DimensionID+"/preview?max_side=10", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("preview = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestErrorStatuses(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown drawing", http.MethodGet, apiPrefix + "/drawing/nope/", nil, http.StatusNotFound},
		{"unknown protocol", http.MethodGet, apiPrefix + "/get_protocol_data/?protocol_id=nope", nil, http.StatusNotFound},
		{"find without match", http.MethodGet, apiPrefix + "/find_drawing/?query=zzz", nil, http.StatusNotFound},
		{"find without query", http.MethodGet, apiPrefix + "/find_drawing/", nil, http.StatusBadRequest},
		{"missing filename", http.MethodPost, apiPrefix + "/create_drawing/", map[string]string{"drawing_image_base64": "x"}, http.StatusBadRequest},
		{"finish unknown", http.MethodPost, apiPrefix + "/finish_protocol/", domain.FinishProtocolRequest{ProtocolID: "nope"}, http.StatusNotFound},
		{"bad preview size", http.MethodGet, apiPrefix + "/drawing/a/dimension/b/preview?max_side=-1", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := call(t, router, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestOutOfToleranceTable(t *testing.T) {
	router := newTestRouter(t)

	var created domain.CreateDrawingResponse
	call(t, router, http.MethodPost, apiPrefix+"/create_drawing/", domain.CreateDrawingRequest{
		Filename:    "BIG.pdf",
		ImageBase64: pngBase64(t),
	}, &created)

	code := call(t, router, http.MethodPost, apiPrefix+"/create_or_update_dimension/", domain.DimensionRequest{
		DrawingID:     created.DrawingID,
		X:             "1",
		Y:             "1",
		Width:         "5",
		Height:        "5",
		Value:         "4500",
		ToleranceMode: "table",
	}, nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", code)
	}
}
