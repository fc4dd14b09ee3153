package llmadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultBaseURL = "https://api.openai.com/v1"

// HTTPTransport implements Transport against an OpenAI-compatible
// Responses API endpoint (POST {baseURL}/responses).
type HTTPTransport struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithBaseURL overrides the default OpenAI base URL, for OpenAI-compatible
// endpoints.
func WithBaseURL(url string) HTTPTransportOption {
	return func(t *HTTPTransport) { t.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = client }
}

// NewHTTPTransport builds a Transport backed by net/http.
func NewHTTPTransport(apiKey string, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{apiKey: apiKey, baseURL: defaultBaseURL, client: http.DefaultClient}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create sends req to {baseURL}/responses and decodes the Response.
func (t *HTTPTransport) Create(ctx context.Context, req Request) (*Response, error) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llmadapter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/responses", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("llmadapter: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llmadapter: HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmadapter: read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: httpResp.StatusCode, Err: fmt.Errorf("%s", string(body))}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llmadapter: unmarshal response: %w", err)
	}
	return &resp, nil
}
