// Package cloud provides the HTTP client for the remote cloud voice API.
//
// All speech synthesis and voice embedding is performed by the remote service;
// this client only marshals requests, forwards payloads, and re-serializes
// responses. The client is constructed explicitly and passed to its callers,
// so there is no process-wide singleton.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/voice-gateway/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/tts"
	apiCloneVoice = "/v1/voices/clone"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// Default values.
const (
	defaultSpeed  = 1.0
	defaultFormat = "wav"
)

// Static errors.
var (
	ErrTextEmpty      = errors.New("text cannot be empty")
	ErrSampleEmpty    = errors.New("sample audio cannot be empty")
	ErrVoiceNameEmpty = errors.New("voice name cannot be empty")
	ErrEmptyAudio     = errors.New("received empty audio payload")
	ErrEmptyVoiceID   = errors.New("received empty voice identifier")
)

// Error message formats.
const (
	errFmtServiceErrorWithCode = "cloud voice API error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "cloud voice API returned non-OK status: %s, body: %s"
)

// Client is an HTTP client for the cloud voice API. It implements both
// core.Synthesizer and core.VoiceCloner.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// synthesizeRequest is the JSON payload for the synthesis endpoint.
type synthesizeRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"`
	Speed   float64 `json:"speed"`
	Format  string  `json:"format"`
}

// synthesizeResponse is the JSON payload returned by the synthesis endpoint.
// The audio arrives complete and base64-encoded; there is no partial
// delivery at this boundary.
type synthesizeResponse struct {
	Audio      string `json:"audio"`
	DurationMS int64  `json:"duration_ms"`
	Format     string `json:"format"`
}

// cloneRequest is the JSON payload for the voice-clone endpoint.
type cloneRequest struct {
	Name   string `json:"name"`
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

// cloneResponse is the JSON payload returned by the voice-clone endpoint.
type cloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// errorResponse represents a structured error from the cloud voice API.
type errorResponse struct {
	// Detail contains a human-readable error description.
	Detail string `json:"detail"`

	// ErrorCode provides a machine-readable error classification.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates and configures an HTTP client for the cloud voice API.
// The baseURL should include the protocol and host (e.g.
// "https://voice.example.com"). The timeout applies to every request made by
// this client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends a synthesis request and returns the complete base64 audio
// payload reported by the provider.
func (c *Client) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) (core.SynthesisResult, error) {
	if req.Text == "" {
		return core.SynthesisResult{}, ErrTextEmpty
	}

	speed := req.Speed
	if speed == 0 {
		speed = defaultSpeed
	}

	payload := synthesizeRequest{
		Text:    req.Text,
		VoiceID: req.VoiceID,
		Speed:   speed,
		Format:  defaultFormat,
	}

	var resp synthesizeResponse

	err := c.postJSON(ctx, apiSynthesize, payload, &resp)
	if err != nil {
		return core.SynthesisResult{}, fmt.Errorf("synthesis request failed: %w", err)
	}

	if resp.Audio == "" {
		return core.SynthesisResult{}, ErrEmptyAudio
	}

	return core.SynthesisResult{
		AudioBase64: resp.Audio,
		DurationMS:  resp.DurationMS,
		Format:      resp.Format,
	}, nil
}

// CloneVoice forwards an uploaded sample to the provider's voice-clone
// endpoint and returns the assigned voice identifier. The sample is sent
// exactly as received from the caller.
func (c *Client) CloneVoice(
	ctx context.Context,
	req core.CloneRequest,
) (core.CloneResult, error) {
	if req.Name == "" {
		return core.CloneResult{}, ErrVoiceNameEmpty
	}

	if req.SampleBase64 == "" {
		return core.CloneResult{}, ErrSampleEmpty
	}

	format := req.Format
	if format == "" {
		format = defaultFormat
	}

	payload := cloneRequest{
		Name:   req.Name,
		Audio:  req.SampleBase64,
		Format: format,
	}

	var resp cloneResponse

	err := c.postJSON(ctx, apiCloneVoice, payload, &resp)
	if err != nil {
		return core.CloneResult{}, fmt.Errorf("clone request failed: %w", err)
	}

	if resp.VoiceID == "" {
		return core.CloneResult{}, ErrEmptyVoiceID
	}

	return core.CloneResult{VoiceID: resp.VoiceID}, nil
}

// HealthCheck verifies that the cloud voice API is reachable and reports
// healthy. It should be performed before large workloads to fail fast.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// postJSON sends a JSON POST request and decodes a JSON response into target.
func (c *Client) postJSON(ctx context.Context, path string, payload, target any) error {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeJSON)
	httpReq.Header.Set(headerAuthorization, bearerPrefix+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf(
			"failed to send request to cloud voice API at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	decodeErr := json.NewDecoder(resp.Body).Decode(target)
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// service. If structured parsing fails, it falls back to returning the raw
// response body so diagnostic information is preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	// Fallback to raw response for non-JSON errors
	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
