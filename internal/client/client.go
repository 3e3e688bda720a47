// Package client provides the HTTP client and batch engine used by the
// voice-gateway command-line client.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/voice-gateway/internal/gateway"
)

// Gateway API paths.
const (
	synthesizePath = "/v1/tts"
	clonePath      = "/v1/voices/clone"
	voicesPath     = "/v1/voices"
	healthPath     = "/v1/healthz"
)

// Static errors.
var (
	ErrTextEmpty       = errors.New("text cannot be empty")
	ErrSamplePathEmpty = errors.New("sample path cannot be empty")
	ErrVoiceNameEmpty  = errors.New("voice name cannot be empty")
	ErrGatewayDegraded = errors.New("gateway reports upstream unreachable")
)

// APIClient is an HTTP client for the voice-gateway API.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewAPIClient creates a client for the gateway at baseURL. The token may be
// empty when the gateway runs without authentication.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// Synthesize requests speech for text and returns the decoded audio bytes.
func (c *APIClient) Synthesize(
	ctx context.Context,
	text, voiceID string,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	reqBody := gateway.SynthesizeRequest{Text: text, VoiceID: voiceID, Speed: 0}

	var resp gateway.SynthesizeResponse

	err := c.postJSON(ctx, synthesizePath, reqBody, &resp)
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	return audio, nil
}

// CloneVoice uploads the WAV sample at samplePath under the given voice name.
func (c *APIClient) CloneVoice(
	ctx context.Context,
	name, samplePath string,
) (gateway.CloneResponse, error) {
	if name == "" {
		return gateway.CloneResponse{}, ErrVoiceNameEmpty
	}

	if samplePath == "" {
		return gateway.CloneResponse{}, ErrSamplePathEmpty
	}

	body, contentType, err := buildCloneForm(name, samplePath)
	if err != nil {
		return gateway.CloneResponse{}, err
	}

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+clonePath, body,
	)
	if err != nil {
		return gateway.CloneResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Content-Type", contentType)
	c.setAuth(request)

	var resp gateway.CloneResponse

	err = c.do(request, &resp)
	if err != nil {
		return gateway.CloneResponse{}, err
	}

	return resp, nil
}

// ListVoices returns every clone record the gateway has persisted.
func (c *APIClient) ListVoices(ctx context.Context) (gateway.VoicesResponse, error) {
	request, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+voicesPath, nil,
	)
	if err != nil {
		return gateway.VoicesResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	c.setAuth(request)

	var resp gateway.VoicesResponse

	err = c.do(request, &resp)
	if err != nil {
		return gateway.VoicesResponse{}, err
	}

	return resp, nil
}

// HealthCheck verifies the gateway is up and its upstream is reachable.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	request, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+healthPath, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	var resp gateway.HealthResponse

	err = c.do(request, &resp)
	if err != nil {
		return err
	}

	if resp.Upstream != "ok" {
		return ErrGatewayDegraded
	}

	return nil
}

// postJSON sends a JSON request body and decodes the JSON response.
func (c *APIClient) postJSON(
	ctx context.Context,
	path string,
	reqBody, respBody any,
) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	c.setAuth(request)

	return c.do(request, respBody)
}

// do executes a request and decodes the JSON response into out, surfacing
// the gateway's error envelope on non-2xx statuses.
func (c *APIClient) do(request *http.Request, out any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return newGatewayError(response.StatusCode, raw)
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *APIClient) setAuth(request *http.Request) {
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// newGatewayError turns a non-2xx response into an error carrying the
// gateway's message when one is present.
func newGatewayError(status int, raw []byte) error {
	var envelope gateway.ErrorResponse

	err := json.Unmarshal(raw, &envelope)
	if err == nil && envelope.Error != "" {
		return fmt.Errorf("gateway returned %d: %s", status, envelope.Error)
	}

	return fmt.Errorf("gateway returned %d: %s", status, string(raw))
}

// buildCloneForm assembles the multipart body for a clone upload.
func buildCloneForm(name, samplePath string) (*bytes.Buffer, string, error) {
	sample, err := os.ReadFile(samplePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sample: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	err = writer.WriteField("name", name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write name field: %w", err)
	}

	part, err := writer.CreateFormFile("sample", filepath.Base(samplePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}

	_, err = part.Write(sample)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write sample bytes: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
