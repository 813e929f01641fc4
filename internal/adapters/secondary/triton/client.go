package triton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"triton-deployer/internal/core/domain"
	ports "triton-deployer/internal/core/ports/output"
)

type tritonClient struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the Triton HTTP/REST v2 API. A URL
// without a scheme is treated as plain http, matching what the Triton
// python client accepts.
func NewClient(serverURL string, timeout time.Duration) (ports.InferenceServer, error) {
	if strings.TrimSpace(serverURL) == "" {
		return nil, domain.ErrMissingTritonURL
	}
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse triton url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse triton url: missing host in %q", serverURL)
	}

	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &tritonClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// NewDialer returns a dialer that opens clients with the given timeout
func NewDialer(timeout time.Duration) ports.InferenceServerDialer {
	return func(serverURL string) (ports.InferenceServer, error) {
		return NewClient(serverURL, timeout)
	}
}

type loadRequest struct {
	Parameters map[string]string `json:"parameters,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *tritonClient) LoadModel(ctx context.Context, name string, cfg domain.ModelConfig) error {
	var body loadRequest
	if cfg != nil {
		raw, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode model config: %w", err)
		}
		body.Parameters = map[string]string{"config": string(raw)}
	}

	resp, err := c.post(ctx, "/v2/repository/models/"+url.PathEscape(name)+"/load", body)
	if err != nil {
		return fmt.Errorf("load model %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load model %s: %w", name, readError(resp))
	}
	return nil
}

func (c *tritonClient) UnloadModel(ctx context.Context, name string) error {
	resp, err := c.post(ctx, "/v2/repository/models/"+url.PathEscape(name)+"/unload", loadRequest{})
	if err != nil {
		return fmt.Errorf("unload model %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unload model %s: %w", name, readError(resp))
	}
	return nil
}

func (c *tritonClient) GetModelConfig(ctx context.Context, name string) (domain.ModelConfig, error) {
	resp, err := c.get(ctx, "/v2/models/"+url.PathEscape(name)+"/config")
	if err != nil {
		return nil, fmt.Errorf("get model config %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get model config %s: %w", name, readError(resp))
	}

	// int64 fields such as dims must survive the round trip back into a load request
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	cfg := domain.ModelConfig{}
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode model config %s: %w", name, err)
	}
	return cfg, nil
}

func (c *tritonClient) IsModelReady(ctx context.Context, name string) (bool, error) {
	resp, err := c.get(ctx, "/v2/models/"+url.PathEscape(name)+"/ready")
	if err != nil {
		return false, fmt.Errorf("check model ready %s: %w", name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

func (c *tritonClient) IsServerLive(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/v2/health/live")
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrServerUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

func (c *tritonClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *tritonClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *tritonClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e errorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return fmt.Errorf("triton returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("triton returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

// Ensure interface compliance
var _ ports.InferenceServer = (*tritonClient)(nil)
