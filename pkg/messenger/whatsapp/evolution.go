package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EvolutionClient talks to an Evolution API server. It authenticates every
// request with the instance-global API key header.
type EvolutionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewEvolutionClient creates an Evolution API client.
func NewEvolutionClient(baseURL, apiKey string) *EvolutionClient {
	return &EvolutionClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EvolutionError is a non-2xx response from the Evolution API.
type EvolutionError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *EvolutionError) Error() string {
	return fmt.Sprintf("evolution api error (status %d): %s", e.StatusCode, e.Message)
}

// do performs a request and decodes the JSON response.
func (c *EvolutionClient) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &EvolutionError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CreateInstance implements Service.
func (c *EvolutionClient) CreateInstance(ctx context.Context, instanceName, integration string) error {
	payload := map[string]any{
		"instanceName": instanceName,
		"integration":  integration,
		"qrcode":       true,
	}
	err := c.do(ctx, http.MethodPost, "/instance/create", payload, nil)

	// Re-creating an existing instance comes back as a conflict.
	var evoErr *EvolutionError
	if errors.As(err, &evoErr) && evoErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

// ConnectInstance implements Service.
func (c *EvolutionClient) ConnectInstance(ctx context.Context, instanceName string) (string, error) {
	var resp struct {
		Code string `json:"code"`
	}
	if err := c.do(ctx, http.MethodGet, "/instance/connect/"+instanceName, nil, &resp); err != nil {
		return "", err
	}
	return resp.Code, nil
}

// ConnectionStatus implements Service.
func (c *EvolutionClient) ConnectionStatus(ctx context.Context, instanceName string) (string, error) {
	var resp struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+instanceName, nil, &resp); err != nil {
		return "", err
	}
	return resp.Instance.State, nil
}

// SendText implements Service.
func (c *EvolutionClient) SendText(ctx context.Context, instanceName, number, text string) error {
	payload := map[string]any{
		"number": number,
		"text":   text,
	}
	return c.do(ctx, http.MethodPost, "/message/sendText/"+instanceName, payload, nil)
}

// SendMedia implements Service.
func (c *EvolutionClient) SendMedia(ctx context.Context, instanceName string, msg MediaMessage) error {
	payload := map[string]any{
		"number":    msg.Number,
		"mediatype": msg.MediaType,
		"mimetype":  msg.MimeType,
		"caption":   msg.Caption,
		"media":     msg.Media,
		"fileName":  msg.FileName,
	}
	return c.do(ctx, http.MethodPost, "/message/sendMedia/"+instanceName, payload, nil)
}
