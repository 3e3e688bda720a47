package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/book-expert/voice-gateway/internal/audioutil"
	"github.com/book-expert/voice-gateway/internal/core"
	"github.com/book-expert/voice-gateway/internal/wave"
)

// Request limits.
const (
	// MaxTextLength bounds synthesis input length in bytes.
	MaxTextLength = 2000

	// MaxUploadBytes bounds the clone sample upload size.
	MaxUploadBytes = 20 << 20

	upstreamHealthTimeout = 5 * time.Second
)

// Multipart form field names for the clone endpoint.
const (
	formFieldName   = "name"
	formFieldSample = "sample"
)

// SynthesizeRequest is the request body for POST /v1/tts and /v1/tts/stream.
type SynthesizeRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
}

// SynthesizeResponse is the response body for POST /v1/tts.
type SynthesizeResponse struct {
	RequestID  string `json:"request_id"`
	Audio      string `json:"audio"`
	DurationMS int64  `json:"duration_ms"`
	Format     string `json:"format"`
}

// CloneResponse is the response body for POST /v1/voices/clone.
type CloneResponse struct {
	VoiceID  string   `json:"voice_id"`
	Name     string   `json:"name"`
	Warnings []string `json:"warnings,omitempty"`
}

// VoicesResponse is the response body for GET /v1/voices.
type VoicesResponse struct {
	Voices []core.VoiceRecord `json:"voices"`
}

// HealthResponse is the response body for GET /v1/healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream"`
}

// ErrorResponse is the JSON error envelope used by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes a response body with the given status code.
func writeJSON(responseWriter http.ResponseWriter, status int, body any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(status)

	_ = json.NewEncoder(responseWriter).Encode(body)
}

// writeError serializes the JSON error envelope with the given status code.
func writeError(responseWriter http.ResponseWriter, status int, message string) {
	writeJSON(responseWriter, status, ErrorResponse{Error: message})
}

// handleHealthz reports gateway liveness and upstream reachability.
func (s *Server) handleHealthz(responseWriter http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), upstreamHealthTimeout)
	defer cancel()

	upstream := "ok"

	err := s.deps.Synthesizer.HealthCheck(ctx)
	if err != nil {
		s.log.Warn("Upstream health check failed: %v", err)

		upstream = "unreachable"
	}

	writeJSON(responseWriter, http.StatusOK, HealthResponse{
		Status:   "ok",
		Upstream: upstream,
	})
}

// handleListVoices returns every persisted clone record.
func (s *Server) handleListVoices(responseWriter http.ResponseWriter, _ *http.Request) {
	records, err := s.deps.Registry.List()
	if err != nil {
		s.log.Error("Failed to list voice records: %v", err)
		writeError(responseWriter, http.StatusInternalServerError, "failed to read voice registry")

		return
	}

	writeJSON(responseWriter, http.StatusOK, VoicesResponse{Voices: records})
}

// handleSynthesize handles POST /v1/tts: one upstream call, one JSON response
// carrying the complete base64 audio payload.
func (s *Server) handleSynthesize(responseWriter http.ResponseWriter, request *http.Request) {
	req, ok := s.decodeSynthesizeRequest(responseWriter, request)
	if !ok {
		return
	}

	result, err := s.deps.Synthesizer.Synthesize(request.Context(), core.SynthesisRequest{
		Text:    s.normalizer.Normalize(req.Text),
		VoiceID: req.VoiceID,
		Speed:   req.Speed,
	})
	if err != nil {
		s.log.Error("Synthesis failed: %v", err)
		writeError(responseWriter, http.StatusBadGateway, "speech synthesis failed")

		return
	}

	requestID := uuid.NewString()

	s.log.Info("Synthesized %d base64 bytes for request %s", len(result.AudioBase64), requestID)

	writeJSON(responseWriter, http.StatusOK, SynthesizeResponse{
		RequestID:  requestID,
		Audio:      result.AudioBase64,
		DurationMS: result.DurationMS,
		Format:     result.Format,
	})
}

// decodeSynthesizeRequest decodes and validates the shared synthesis request
// body used by both the synchronous and the pseudo-streaming endpoint.
func (s *Server) decodeSynthesizeRequest(
	responseWriter http.ResponseWriter,
	request *http.Request,
) (SynthesizeRequest, bool) {
	var req SynthesizeRequest

	err := json.NewDecoder(request.Body).Decode(&req)
	if err != nil {
		writeError(responseWriter, http.StatusBadRequest, "invalid JSON body")

		return SynthesizeRequest{}, false
	}

	if req.Text == "" {
		writeError(responseWriter, http.StatusBadRequest, "text is required")

		return SynthesizeRequest{}, false
	}

	if len(req.Text) > MaxTextLength {
		writeError(responseWriter, http.StatusBadRequest, "text exceeds maximum length")

		return SynthesizeRequest{}, false
	}

	if req.Speed < 0 {
		writeError(responseWriter, http.StatusBadRequest, "speed must be non-negative")

		return SynthesizeRequest{}, false
	}

	return req, true
}

// handleCloneVoice handles POST /v1/voices/clone. The uploaded sample is
// parsed and validated locally before any upstream call; on success the
// original bytes are forwarded unmodified, the clone record is persisted,
// and the sample is archived.
func (s *Server) handleCloneVoice(responseWriter http.ResponseWriter, request *http.Request) {
	name, sample, ok := s.readCloneUpload(responseWriter, request)
	if !ok {
		return
	}

	info, warnings, ok := s.validateCloneSample(responseWriter, sample)
	if !ok {
		return
	}

	result, err := s.deps.Cloner.CloneVoice(request.Context(), core.CloneRequest{
		Name:         name,
		SampleBase64: base64.StdEncoding.EncodeToString(sample),
		Format:       "wav",
	})
	if err != nil {
		s.log.Error("Voice clone failed: %v", err)
		writeError(responseWriter, http.StatusBadGateway, "voice cloning failed")

		return
	}

	record := core.VoiceRecord{
		VoiceID:       result.VoiceID,
		Name:          name,
		SampleSeconds: info.DurationSeconds,
		CreatedAt:     time.Now().UTC(),
	}

	appendErr := s.deps.Registry.Append(record)
	if appendErr != nil {
		s.log.Error("Failed to persist voice record %s: %v", record.VoiceID, appendErr)
		writeError(responseWriter, http.StatusInternalServerError, "failed to persist voice record")

		return
	}

	s.archiveAndAnnounce(request, record, sample)

	s.log.Info(
		"Cloned voice %s (%s) from a %s sample",
		record.VoiceID, record.Name, audioutil.FormatDuration(info.DurationSeconds),
	)

	writeJSON(responseWriter, http.StatusCreated, CloneResponse{
		VoiceID:  record.VoiceID,
		Name:     record.Name,
		Warnings: warnings,
	})
}

// readCloneUpload extracts the voice name and the fully buffered sample bytes
// from the multipart form.
func (s *Server) readCloneUpload(
	responseWriter http.ResponseWriter,
	request *http.Request,
) (string, []byte, bool) {
	request.Body = http.MaxBytesReader(responseWriter, request.Body, MaxUploadBytes)

	err := request.ParseMultipartForm(MaxUploadBytes)
	if err != nil {
		writeError(responseWriter, http.StatusBadRequest, "invalid multipart form")

		return "", nil, false
	}

	name := request.FormValue(formFieldName)
	if name == "" {
		writeError(responseWriter, http.StatusBadRequest, "name is required")

		return "", nil, false
	}

	file, header, err := request.FormFile(formFieldSample)
	if err != nil {
		writeError(responseWriter, http.StatusBadRequest, "sample file is required")

		return "", nil, false
	}

	defer func() {
		_ = file.Close()
	}()

	if !audioutil.IsWavFilename(header.Filename) {
		writeError(responseWriter, http.StatusBadRequest, "sample must be a .wav file")

		return "", nil, false
	}

	sample, err := io.ReadAll(file)
	if err != nil {
		s.log.Error("Failed to read uploaded sample: %v", err)
		writeError(responseWriter, http.StatusBadRequest, "failed to read sample file")

		return "", nil, false
	}

	return name, sample, true
}

// validateCloneSample gates the upload through the WAV parser and the sample
// policy. Parse and policy failures reject the request before any upstream
// call is made.
func (s *Server) validateCloneSample(
	responseWriter http.ResponseWriter,
	sample []byte,
) (wave.Info, []string, bool) {
	info, err := wave.Parse(sample)
	if err != nil {
		s.log.Warn("Rejected clone sample: %v", err)
		writeError(responseWriter, http.StatusUnprocessableEntity, cloneRejectionMessage(err))

		return wave.Info{}, nil, false
	}

	warnings, err := wave.Validate(info)
	if err != nil {
		s.log.Warn("Rejected clone sample: %v", err)
		writeError(responseWriter, http.StatusUnprocessableEntity, cloneRejectionMessage(err))

		return wave.Info{}, nil, false
	}

	if info.Estimated {
		warnings = append(warnings, "sample duration was estimated from file size")
	}

	return info, warnings, true
}

// cloneRejectionMessage maps parser and policy errors to user-facing
// validation messages.
func cloneRejectionMessage(err error) string {
	switch {
	case errors.Is(err, wave.ErrTooSmall):
		return "sample is too small to be a WAV file"
	case errors.Is(err, wave.ErrNotRiffWave):
		return "sample is not a WAV file"
	case errors.Is(err, wave.ErrMalformedChunkTable):
		return "sample WAV header is malformed"
	case errors.Is(err, wave.ErrDegenerateFormat):
		return "sample WAV format fields are invalid"
	case errors.Is(err, wave.ErrSampleTooShort):
		return "sample is too short; record at least 4 seconds (5-12s recommended)"
	default:
		return "sample failed validation"
	}
}

// archiveAndAnnounce performs the best-effort post-clone steps: archiving the
// original sample and publishing the lifecycle event. Failures are logged
// but do not fail the request, which already succeeded upstream.
func (s *Server) archiveAndAnnounce(
	request *http.Request,
	record core.VoiceRecord,
	sample []byte,
) {
	if s.deps.Archive != nil {
		// The voice ID comes from the provider; sanitize it before using it
		// as an object key.
		key := audioutil.SanitizeFilename(record.VoiceID) + ".wav"

		archiveErr := s.deps.Archive.Upload(request.Context(), key, sample)
		if archiveErr != nil {
			s.log.Warn("Failed to archive sample for %s: %v", record.VoiceID, archiveErr)
		}
	}

	if s.deps.Events != nil {
		publishErr := s.deps.Events.PublishVoiceCloneCreated(request.Context(), record)
		if publishErr != nil {
			s.log.Warn("Failed to publish clone event for %s: %v", record.VoiceID, publishErr)
		}
	}
}
