package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Put performs HTTP PUT request with JSON body
func (c *TestClient) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

// Patch performs HTTP PATCH request with JSON body
func (c *TestClient) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs HTTP DELETE request
func (c *TestClient) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}


// ---- Mod Helpers ----

// APIError is the error body returned by the server.
type APIError struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// ListMods lists the mods the server manages
func (c *TestClient) ListMods(ctx context.Context) ([]types.ModInfo, error) {
	resp, err := c.Get(ctx, "/mods")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to list mods: %d - %s", resp.StatusCode, resp.String())
	}

	var mods []types.ModInfo
	if err := resp.JSON(&mods); err != nil {
		return nil, err
	}
	return mods, nil
}

// GetSettings retrieves the stored settings of a mod
func (c *TestClient) GetSettings(ctx context.Context, mod string) (*types.PlayerSettings, error) {
	resp, err := c.Get(ctx, "/mods/"+mod+"/settings")
	if err != nil {
		return nil, err
	}
	return decodeSettings(resp)
}

// PatchSettings sets selected values of a mod
func (c *TestClient) PatchSettings(ctx context.Context, mod string, values map[string]any) (*types.PlayerSettings, error) {
	resp, err := c.Patch(ctx, "/mods/"+mod+"/settings", values)
	if err != nil {
		return nil, err
	}
	return decodeSettings(resp)
}

func decodeSettings(resp *Response) (*types.PlayerSettings, error) {
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("settings request failed: %d - %s", resp.StatusCode, resp.String())
	}
	return settings.Decode(resp.Body)
}

// Apply runs an apply pass on a mod
func (c *TestClient) Apply(ctx context.Context, mod string, dryRun bool) (*apply.Report, error) {
	var opts []RequestOption
	if dryRun {
		opts = append(opts, WithQuery(map[string]string{"dryRun": "true"}))
	}
	resp, err := c.Post(ctx, "/mods/"+mod+"/apply", nil, opts...)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to apply: %d - %s", resp.StatusCode, resp.String())
	}

	var report apply.Report
	if err := resp.JSON(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Check runs every drift check on a mod
func (c *TestClient) Check(ctx context.Context, mod string) (*types.CheckReport, error) {
	resp, err := c.Get(ctx, "/mods/"+mod+"/check")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to check: %d - %s", resp.StatusCode, resp.String())
	}

	var report types.CheckReport
	if err := resp.JSON(&report); err != nil {
		return nil, err
	}
	return &report, nil
}
