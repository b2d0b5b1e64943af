// Package yupan is a Go client for the yupan-server HTTP API.
package yupan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"yupan/internal/api"
	"yupan/internal/engine"
	"yupan/internal/sweep"
)

// Client provides a Go SDK for interacting with the yupan-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new yupan API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yupan: %d: %s", e.Status, e.Message)
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Modes lists the strategy modes the server knows.
func (c *Client) Modes(ctx context.Context) (*api.ModesResponse, error) {
	var out api.ModesResponse
	if err := c.do(ctx, http.MethodGet, "/api/modes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Backtest runs a single-symbol backtest.
func (c *Client) Backtest(ctx context.Context, req engine.Request) (*engine.Report, error) {
	var out engine.Report
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict runs a buy or sell prediction over the symbols named by req.
func (c *Client) Predict(ctx context.Context, req api.PredictRequest) (*sweep.Report, error) {
	var out sweep.Report
	if err := c.do(ctx, http.MethodPost, "/api/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
