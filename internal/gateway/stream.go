package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/voice-gateway/internal/core"
)

// Pseudo-streaming parameters. The upstream response is already complete
// when delivery starts; the base64 payload is sliced into a fixed number of
// pieces emitted with an artificial delay, purely so clients can animate
// progressive playback.
const (
	// StreamChunkCount is the fixed number of pieces the payload is split into.
	StreamChunkCount = 5

	// streamChunkDelay is the artificial pause between consecutive pieces.
	streamChunkDelay = 200 * time.Millisecond
)

// SSE framing constants.
const (
	sseDataPrefix  = "data: "
	sseEventSuffix = "\n\n"
)

// StreamChunk is one piece of the sliced payload, emitted as an SSE data
// event.
type StreamChunk struct {
	// Seq is the 1-based piece index.
	Seq int `json:"seq"`

	// Total is always StreamChunkCount.
	Total int `json:"total"`

	// Chunk is this piece of the base64 audio payload.
	Chunk string `json:"chunk"`

	// Last marks the final piece.
	Last bool `json:"last"`
}

// handleSynthesizeStream handles POST /v1/tts/stream. It performs the same
// single upstream call as the synchronous endpoint, then delivers the
// complete result in delayed slices. No partial synthesis output ever
// crosses the upstream boundary.
func (s *Server) handleSynthesizeStream(responseWriter http.ResponseWriter, request *http.Request) {
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

	flusher, ok := responseWriter.(http.Flusher)
	if !ok {
		writeError(responseWriter, http.StatusInternalServerError, "streaming unsupported")

		return
	}

	responseWriter.Header().Set("Content-Type", "text/event-stream")
	responseWriter.Header().Set("Cache-Control", "no-cache")
	responseWriter.Header().Set("Connection", "keep-alive")
	responseWriter.WriteHeader(http.StatusOK)

	s.emitChunks(responseWriter, flusher, request, result.AudioBase64)
}

// emitChunks slices the base64 payload into StreamChunkCount pieces and
// writes each as an SSE event, pausing between pieces. Emission stops early
// if the client disconnects.
func (s *Server) emitChunks(
	responseWriter http.ResponseWriter,
	flusher http.Flusher,
	request *http.Request,
	payload string,
) {
	chunks := sliceChunks(payload, StreamChunkCount)

	for index, chunk := range chunks {
		event := StreamChunk{
			Seq:   index + 1,
			Total: StreamChunkCount,
			Chunk: chunk,
			Last:  index == len(chunks)-1,
		}

		data, err := json.Marshal(event)
		if err != nil {
			s.log.Error("Failed to marshal stream chunk %d: %v", event.Seq, err)

			return
		}

		_, writeErr := fmt.Fprint(responseWriter, sseDataPrefix+string(data)+sseEventSuffix)
		if writeErr != nil {
			s.log.Warn("Client disconnected during stream: %v", writeErr)

			return
		}

		flusher.Flush()

		if event.Last {
			break
		}

		select {
		case <-request.Context().Done():
			return
		case <-time.After(streamChunkDelay):
		}
	}
}

// sliceChunks splits a string into count pieces of equal size (the last may
// be shorter). Payloads shorter than count still yield count pieces, the
// trailing ones empty, so clients always see a fixed-length sequence.
func sliceChunks(payload string, count int) []string {
	chunkSize := (len(payload) + count - 1) / count
	if chunkSize == 0 {
		chunkSize = 1
	}

	chunks := make([]string, 0, count)

	for i := range count {
		start := i * chunkSize
		if start > len(payload) {
			start = len(payload)
		}

		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}

		chunks = append(chunks, payload[start:end])
	}

	return chunks
}
