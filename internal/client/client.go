// Package client talks to the measuring HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
)

const apiPrefix = "/measuring/api"

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (c *Client) CreateDrawing(ctx context.Context, req domain.CreateDrawingRequest) (string, error) {
	var resp domain.CreateDrawingResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/create_drawing/", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.DrawingID, nil
}

func (c *Client) GetDrawing(ctx context.Context, drawingID string) (*domain.DrawingPayload, error) {
	var resp domain.GetDrawingResponse
	path := apiPrefix + "/drawing/" + url.PathEscape(drawingID) + "/"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Drawing, nil
}

// SaveDimension creates a dimension, or updates it when req.DimensionID is set.
func (c *Client) SaveDimension(ctx context.Context, req domain.DimensionRequest) (string, error) {
	var resp domain.DimensionResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/create_or_update_dimension/", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.DimensionID, nil
}

func (c *Client) FindDrawing(ctx context.Context, query string) (string, error) {
	var resp domain.FindDrawingResponse
	q := url.Values{"query": {query}}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/find_drawing/", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.DrawingID, nil
}

func (c *Client) CheckUnfinishedProtocols(ctx context.Context, drawingID string) ([]domain.ProtocolSummary, error) {
	var resp domain.UnfinishedProtocolsResponse
	q := url.Values{"drawing_id": {drawingID}}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/check_unfinished_protocols/", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Protocols, nil
}

func (c *Client) GetProtocolData(ctx context.Context, protocolID string) (*domain.ProtocolData, error) {
	var resp domain.ProtocolDataResponse
	q := url.Values{"protocol_id": {protocolID}}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/get_protocol_data/", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Protocol, nil
}

func (c *Client) SaveMeasurement(ctx context.Context, req domain.SaveMeasurementRequest) (*domain.SaveMeasurementResponse, error) {
	var resp domain.SaveMeasurementResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/save_measurement/", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) FinishProtocol(ctx context.Context, protocolID string) error {
	var resp domain.FinishProtocolResponse
	req := domain.FinishProtocolRequest{ProtocolID: protocolID}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/finish_protocol/", nil, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("finish protocol %s not confirmed: %w", protocolID, domain.ErrNetworkFailure)
	}
	return nil
}

func (c *Client) EmptyProtocolForm(ctx context.Context, drawingID string) (*domain.EmptyFormResponse, error) {
	var resp domain.EmptyFormResponse
	q := url.Values{"drawing_id": {drawingID}}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/empty_protocol_form/", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadProtocol fetches an export. Exactly one of drawingID and protocolID is used;
// protocolID wins when both are set.
func (c *Client) DownloadProtocol(ctx context.Context, format domain.ExportFormat, drawingID, protocolID string) ([]byte, error) {
	q := url.Values{"format": {string(format)}}
	if protocolID != "" {
		q.Set("protocol_id", protocolID)
	} else {
		q.Set("drawing_id", drawingID)
	}

	resp, err := c.send(ctx, http.MethodGet, apiPrefix+"/download_protocol/", q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w: %w", domain.ErrNetworkFailure, err)
	}
	return data, nil
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", path, domain.ErrNetworkFailure, err)
	}
	return nil
}

// send performs the request and converts transport errors and non-2xx answers into domain
// errors. The caller owns the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrNetworkFailure, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	c.log.Debug("Request rejected",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", apiErr.Error))
	return nil, fmt.Errorf("%s %s: %s: %w", method, path, apiErr.Error, statusError(resp.StatusCode))
}

func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrProtocolClosed
	case http.StatusUnprocessableEntity:
		return domain.ErrOutOfToleranceRange
	case http.StatusNotImplemented:
		return domain.ErrUnsupportedFormat
	}
	return fmt.Errorf("status %d: %w", status, domain.ErrNetworkFailure)
}

// IsRetryable reports whether err leaves the caller free to resend the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrNetworkFailure)
}
