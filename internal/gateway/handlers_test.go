// Package gateway_test tests the HTTP API handlers with fake collaborators.
package gateway_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-gateway/internal/config"
	"github.com/book-expert/voice-gateway/internal/core"
	"github.com/book-expert/voice-gateway/internal/gateway"
)

var errUpstreamDown = errors.New("upstream down")

type fakeSynthesizer struct {
	result    core.SynthesisResult
	err       error
	healthErr error
	gotReq    core.SynthesisRequest
	calls     int
}

func (f *fakeSynthesizer) Synthesize(
	_ context.Context,
	req core.SynthesisRequest,
) (core.SynthesisResult, error) {
	f.gotReq = req
	f.calls++

	return f.result, f.err
}

func (f *fakeSynthesizer) HealthCheck(_ context.Context) error {
	return f.healthErr
}

type fakeCloner struct {
	result core.CloneResult
	err    error
	gotReq core.CloneRequest
	calls  int
}

func (f *fakeCloner) CloneVoice(
	_ context.Context,
	req core.CloneRequest,
) (core.CloneResult, error) {
	f.gotReq = req
	f.calls++

	return f.result, f.err
}

type fakeRegistry struct {
	records   []core.VoiceRecord
	appendErr error
}

func (f *fakeRegistry) Append(record core.VoiceRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}

	f.records = append(f.records, record)

	return nil
}

func (f *fakeRegistry) List() ([]core.VoiceRecord, error) {
	return f.records, nil
}

type fakeArchive struct {
	uploads map[string][]byte
}

func (f *fakeArchive) Upload(_ context.Context, key string, data []byte) error {
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}

	f.uploads[key] = data

	return nil
}

func (f *fakeArchive) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type fakeEvents struct {
	published []core.VoiceRecord
}

func (f *fakeEvents) PublishVoiceCloneCreated(_ context.Context, record core.VoiceRecord) error {
	f.published = append(f.published, record)

	return nil
}

// testDeps bundles the fakes behind a gateway server for one test.
type testDeps struct {
	synth   *fakeSynthesizer
	cloner  *fakeCloner
	reg     *fakeRegistry
	archive *fakeArchive
	events  *fakeEvents
	handler http.Handler
}

func newTestServer(t *testing.T, bearerToken string) *testDeps {
	t.Helper()

	log, err := logger.New(t.TempDir(), "gateway-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	cfg := &config.Config{
		HTTP:  config.HTTPConfig{Port: 8080, BearerToken: bearerToken},
		Cloud: config.CloudConfig{BaseURL: "http://unused", APIKey: "k", TimeoutSeconds: 5},
		Paths: config.PathsConfig{VoiceRegistryFile: "unused.jsonl"},
	}

	deps := &testDeps{
		synth:   &fakeSynthesizer{result: core.SynthesisResult{AudioBase64: "QUJDREVGRw==", DurationMS: 1200, Format: "wav"}},
		cloner:  &fakeCloner{result: core.CloneResult{VoiceID: "vc-77"}},
		reg:     &fakeRegistry{},
		archive: &fakeArchive{},
		events:  &fakeEvents{},
	}

	server := gateway.New(cfg, log, gateway.Deps{
		Synthesizer: deps.synth,
		Cloner:      deps.cloner,
		Registry:    deps.reg,
		Archive:     deps.archive,
		Events:      deps.events,
	})
	deps.handler = server.Handler()

	return deps
}

// buildTestWAV builds a canonical WAV buffer with the given duration.
func buildTestWAV(t *testing.T, sampleRate uint32, seconds float64) []byte {
	t.Helper()

	dataSize := int(seconds * float64(sampleRate) * 2) // mono 16-bit

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	return buf
}

// cloneRequestBody builds a multipart body carrying a name and a sample file.
func cloneRequestBody(t *testing.T, name, filename string, sample []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	require.NoError(t, writer.WriteField("name", name))

	part, err := writer.CreateFormFile("sample", filename)
	require.NoError(t, err)

	_, err = part.Write(sample)
	require.NoError(t, err)

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var health gateway.HealthResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Upstream)
}

func TestHealthz_UpstreamUnreachable(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	deps.synth.healthErr = errUpstreamDown

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var health gateway.HealthResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "unreachable", health.Upstream)
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")

	request := httptest.NewRequest(
		http.MethodPost,
		"/v1/tts",
		strings.NewReader(`{"text":"hello   world","voice_id":"vc-77"}`),
	)
	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp gateway.SynthesizeResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "QUJDREVGRw==", resp.Audio)
	assert.Equal(t, int64(1200), resp.DurationMS)
	assert.Equal(t, "wav", resp.Format)

	// Input is normalized before it reaches the upstream boundary.
	assert.Equal(t, "hello world.", deps.synth.gotReq.Text)
	assert.Equal(t, "vc-77", deps.synth.gotReq.VoiceID)
}

func TestSynthesize_InputValidation(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")

	cases := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: "{not json"},
		{name: "empty text", body: `{"text":""}`},
		{name: "text too long", body: `{"text":"` + strings.Repeat("a", gateway.MaxTextLength+1) + `"}`},
		{name: "negative speed", body: `{"text":"hi","speed":-1}`},
	}

	for _, testCase := range cases {
		request := httptest.NewRequest(http.MethodPost, "/v1/tts", strings.NewReader(testCase.body))
		recorder := httptest.NewRecorder()
		deps.handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code, testCase.name)
	}

	assert.Zero(t, deps.synth.calls)
}

func TestSynthesize_UpstreamFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	deps.synth.err = errUpstreamDown

	request := httptest.NewRequest(http.MethodPost, "/v1/tts", strings.NewReader(`{"text":"hi"}`))
	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestAuth_BearerTokenEnforced(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "secret")

	noToken := httptest.NewRequest(http.MethodPost, "/v1/tts", strings.NewReader(`{"text":"hi"}`))
	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, noToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	wrongToken := httptest.NewRequest(http.MethodPost, "/v1/tts", strings.NewReader(`{"text":"hi"}`))
	wrongToken.Header.Set("Authorization", "Bearer wrong")
	recorder = httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, wrongToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	goodToken := httptest.NewRequest(http.MethodPost, "/v1/tts", strings.NewReader(`{"text":"hi"}`))
	goodToken.Header.Set("Authorization", "Bearer secret")
	recorder = httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, goodToken)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Health stays open without a token.
	recorder = httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCloneVoice_Success(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	sample := buildTestWAV(t, 16000, 6)

	body, contentType := cloneRequestBody(t, "narrator", "sample.wav", sample)
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp gateway.CloneResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "vc-77", resp.VoiceID)
	assert.Equal(t, "narrator", resp.Name)
	assert.Empty(t, resp.Warnings)

	// The original bytes are forwarded unmodified, base64-encoded.
	forwarded, err := base64.StdEncoding.DecodeString(deps.cloner.gotReq.SampleBase64)
	require.NoError(t, err)
	assert.Equal(t, sample, forwarded)

	// Record persisted, sample archived, event published.
	require.Len(t, deps.reg.records, 1)
	assert.Equal(t, "vc-77", deps.reg.records[0].VoiceID)
	assert.InDelta(t, 6.0, deps.reg.records[0].SampleSeconds, 0.001)
	assert.Equal(t, sample, deps.archive.uploads["vc-77.wav"])
	require.Len(t, deps.events.published, 1)
	assert.Equal(t, "vc-77", deps.events.published[0].VoiceID)
}

func TestCloneVoice_ShortSampleRejectedBeforeUpstream(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	sample := buildTestWAV(t, 16000, 3.9)

	body, contentType := cloneRequestBody(t, "narrator", "sample.wav", sample)
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "too short")
	assert.Zero(t, deps.cloner.calls)
	assert.Empty(t, deps.reg.records)
}

func TestCloneVoice_NonWavRejected(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")

	body, contentType := cloneRequestBody(t, "narrator", "sample.mp3", []byte("mp3-bytes"))
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, deps.cloner.calls)
}

func TestCloneVoice_NotRiffWaveRejected(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	junk := bytes.Repeat([]byte("x"), 128)

	body, contentType := cloneRequestBody(t, "narrator", "sample.wav", junk)
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "not a WAV")
	assert.Zero(t, deps.cloner.calls)
}

func TestCloneVoice_NonIdealRateAcceptedWithWarning(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	sample := buildTestWAV(t, 44100, 6)

	body, contentType := cloneRequestBody(t, "narrator", "sample.wav", sample)
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp gateway.CloneResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "44100")
	assert.Equal(t, 1, deps.cloner.calls)
}

func TestCloneVoice_MissingName(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	sample := buildTestWAV(t, 16000, 6)

	body, contentType := cloneRequestBody(t, "", "sample.wav", sample)
	request := httptest.NewRequest(http.MethodPost, "/v1/voices/clone", body)
	request.Header.Set("Content-Type", contentType)

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListVoices(t *testing.T) {
	t.Parallel()

	deps := newTestServer(t, "")
	deps.reg.records = []core.VoiceRecord{
		{VoiceID: "vc-1", Name: "a"},
		{VoiceID: "vc-2", Name: "b"},
	}

	recorder := httptest.NewRecorder()
	deps.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/voices", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp gateway.VoicesResponse

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Voices, 2)
	assert.Equal(t, "vc-1", resp.Voices[0].VoiceID)
}
