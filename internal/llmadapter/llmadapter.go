// Package llmadapter sends the composed prompt bundle to the model and
// enforces the strict JSON-schema response contract (C12).
package llmadapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/promptc"
	"github.com/soochol/notegen/internal/schema"
)

// Transport is the injected capability the adapter calls through. A real
// implementation wraps an HTTP client against the Responses API; tests
// and scenario 4's empty-output stub implement it directly.
type Transport interface {
	Create(ctx context.Context, req Request) (*Response, error)
}

// TransportError marks a Transport failure as retryable or not, per the
// 429/5xx/ECONNRESET/ETIMEDOUT transient-failure list.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llmadapter: transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llmadapter: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) retryable() bool {
	if e.StatusCode == 429 || e.StatusCode >= 500 {
		return true
	}
	msg := e.Error()
	return strings.Contains(msg, "ECONNRESET") || strings.Contains(msg, "ETIMEDOUT")
}

// FatalError marks an error the adapter will never retry: truncation,
// content filtering, refusal, malformed JSON, or a hard schema violation.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "llmadapter: " + e.Reason }

// GenerationOptions configures one Generate call.
type GenerationOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (o GenerationOptions) withDefaults() GenerationOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay == 0 {
		o.BaseDelay = 200 * time.Millisecond
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = 5 * time.Second
	}
	return o
}

// gpt5TemperatureRejectPrefix is the model family that errors on an
// explicit temperature field.
const gpt5TemperatureRejectPrefix = "gpt-5"

// Client drives Transport with the retry policy and schema validation.
type Client struct {
	Transport  Transport
	Validators *ValidatorCache
}

// NewClient returns a Client backed by transport, with its own validator
// cache.
func NewClient(transport Transport) *Client {
	return &Client{Transport: transport, Validators: NewValidatorCache()}
}

// Generate sends bundle, enforces the json_schema response contract
// against ais, and returns the parsed AI payload plus any soft-constraint
// warnings. Hard failures (transport exhaustion, truncation, content
// filter, refusal, malformed JSON, schema violation, repeated empty
// output) are returned as error.
func (c *Client) Generate(ctx context.Context, bundle promptc.Bundle, ais *schema.Node, opts GenerationOptions) (Result, diag.List, error) {
	opts = opts.withDefaults()
	req := buildRequest(bundle, ais, opts)

	resp, err := c.callWithRetry(ctx, req, opts)
	if err != nil {
		return Result{}, nil, err
	}

	text, warnings, err := c.extractWithEmptyRetry(ctx, req, resp, opts)
	if err != nil {
		return Result{}, nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Result{}, nil, &FatalError{Reason: fmt.Sprintf("malformed JSON in model output: %v", err)}
	}

	validate := c.Validators.Get(schemaCacheKey(ais.ToJSONSchema()), ais)
	var diagWarnings diag.List
	for _, verr := range validate(payload) {
		if !verr.Soft {
			return Result{}, nil, &FatalError{Reason: fmt.Sprintf("schema violation at %s: %s", verr.Path, verr.Message)}
		}
		diagWarnings = diagWarnings.Add(diag.Warning{
			Stage:    diag.StageAIValidation,
			Code:     diag.CodeSoftConstraint,
			Path:     verr.Path,
			Message:  verr.Message,
			Severity: diag.SeverityWarning,
		})
	}
	for _, w := range warnings {
		diagWarnings = diagWarnings.Add(diag.Warning{
			Stage: diag.StageAIValidation, Code: diag.CodeMissingOutput,
			Message: w, Severity: diag.SeverityWarning,
		})
	}

	result := Result{Output: payload, Model: resp.Model, ResponseID: resp.ID, PromptID: resp.PromptID}
	if resp.Usage != nil {
		result.Usage = *resp.Usage
	}
	return result, diagWarnings, nil
}

func buildRequest(bundle promptc.Bundle, ais *schema.Node, opts GenerationOptions) Request {
	input := make([]InputMessage, 0, len(bundle.Messages))
	for _, m := range bundle.Messages {
		input = append(input, InputMessage{Role: m.Role, Content: []InputContent{{Type: "input_text", Text: m.Content}}})
	}
	req := Request{
		Model: opts.Model,
		Input: input,
		Text: TextFormat{Format: ResponseFormat{
			Type:   "json_schema",
			Name:   bundle.ID,
			Strict: true,
			Schema: ais.ToJSONSchema(),
		}},
		MaxOutputTokens: opts.MaxTokens,
	}
	if !strings.HasPrefix(opts.Model, gpt5TemperatureRejectPrefix) {
		req.Temperature = opts.Temperature
	}
	return req
}

// callWithRetry runs req through Transport, retrying transient failures
// with exponential backoff up to opts.MaxRetries. A context cancellation
// aborts immediately without retrying. Non-retryable transport errors
// surface on the first attempt.
func (c *Client) callWithRetry(ctx context.Context, req Request, opts GenerationOptions) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		resp, err := c.Transport.Create(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var transportErr *TransportError
		if te, ok := err.(*TransportError); ok {
			transportErr = te
		}
		if transportErr == nil || !transportErr.retryable() || attempt == opts.MaxRetries {
			return nil, err
		}
		if sleepErr := sleepBackoff(ctx, opts.BaseDelay, opts.MaxDelay, attempt); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, base, max time.Duration, attempt int) error {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max {
		delay = max
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// extractWithEmptyRetry handles status translation and the one-shot
// empty-output retry: a completed response with no extractable text is
// retried once, identically, for a total of two attempts.
func (c *Client) extractWithEmptyRetry(ctx context.Context, req Request, resp *Response, opts GenerationOptions) (string, []string, error) {
	text, refusal, err := interpretResponse(resp)
	if err != nil {
		return "", nil, err
	}
	if refusal != "" {
		return "", nil, &FatalError{Reason: "model refused: " + refusal}
	}
	if text != "" {
		return text, nil, nil
	}

	retryResp, err := c.callWithRetry(ctx, req, opts)
	if err != nil {
		return "", nil, err
	}
	text2, refusal2, err := interpretResponse(retryResp)
	if err != nil {
		return "", nil, err
	}
	if refusal2 != "" {
		return "", nil, &FatalError{Reason: "model refused: " + refusal2}
	}
	if text2 == "" {
		return "", nil, &FatalError{Reason: "empty output after retry"}
	}
	return text2, []string{"model returned empty output on the first attempt; succeeded on retry"}, nil
}

// interpretResponse translates status and extracts text/refusal content.
// Returns ("", "", nil) for a completed-but-empty response.
func interpretResponse(resp *Response) (text string, refusal string, err error) {
	switch resp.Status {
	case "", "completed":
	case "incomplete":
		reason := ""
		if resp.IncompleteDetails != nil {
			reason = resp.IncompleteDetails.Reason
		}
		if reason == "max_output_tokens" {
			return "", "", &FatalError{Reason: "truncated: response incomplete (max_output_tokens)"}
		}
		return "", "", &FatalError{Reason: fmt.Sprintf("response incomplete: %s", reason)}
	case "content_filter":
		return "", "", &FatalError{Reason: "halted by filter"}
	default:
		return "", "", &FatalError{Reason: fmt.Sprintf("unexpected response status %q", resp.Status)}
	}

	if resp.OutputText != "" {
		return resp.OutputText, "", nil
	}
	for _, item := range resp.Output {
		if item.Type == "output_text" && item.Text != "" {
			return item.Text, "", nil
		}
		for _, c := range item.Content {
			if c.Type == "refusal" && c.Refusal != "" {
				return "", c.Refusal, nil
			}
			if c.Text == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || strings.HasPrefix(c.Type, "json") {
				return c.Text, "", nil
			}
		}
	}
	return "", "", nil
}

// schemaCacheKey derives a stable cache key from a JSON schema document,
// used when callers want a key independent of the bundle ID (e.g. the
// same template re-rendered with a new request ID each time).
func schemaCacheKey(schemaDoc map[string]any) string {
	b, err := json.Marshal(schemaDoc)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
