// Package core defines the core business interfaces and shared types for the
// voice-gateway service.
package core

import (
	"context"
	"time"
)

// SynthesisRequest holds the parameters for a single synthesis call against
// the cloud voice API.
type SynthesisRequest struct {
	// Text is the input to convert to speech. Must be non-empty.
	Text string

	// VoiceID selects a stock or cloned voice. Empty selects the provider
	// default.
	VoiceID string

	// Speed is the playback speed multiplier. Zero selects the provider
	// default of 1.0.
	Speed float64
}

// SynthesisResult carries the audio returned by the cloud voice API.
type SynthesisResult struct {
	// AudioBase64 is the complete audio payload, base64-encoded as received
	// from the provider. It is never re-encoded locally.
	AudioBase64 string

	// DurationMS is the provider-reported audio duration in milliseconds.
	DurationMS int64

	// Format is the audio container format, e.g. "wav" or "mp3".
	Format string
}

// CloneRequest holds the parameters for a voice-clone call. The sample bytes
// are forwarded to the provider exactly as uploaded.
type CloneRequest struct {
	// Name is the caller-chosen display name for the cloned voice.
	Name string

	// SampleBase64 is the original uploaded audio, base64-encoded.
	SampleBase64 string

	// Format is the sample container format, always "wav" for gated uploads.
	Format string
}

// CloneResult carries the provider-assigned identity of a cloned voice.
type CloneResult struct {
	// VoiceID is the provider-assigned identifier usable in later synthesis
	// requests.
	VoiceID string
}

// Synthesizer defines the upstream speech-synthesis boundary.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error)
	HealthCheck(ctx context.Context) error
}

// VoiceCloner defines the upstream voice-cloning boundary.
type VoiceCloner interface {
	CloneVoice(ctx context.Context, req CloneRequest) (CloneResult, error)
}

// VoiceRecord is the persisted record of a completed clone operation.
type VoiceRecord struct {
	// VoiceID is the provider-assigned voice identifier.
	VoiceID string `json:"voice_id"`

	// Name is the caller-chosen display name.
	Name string `json:"name"`

	// SampleSeconds is the duration of the uploaded sample.
	SampleSeconds float64 `json:"sample_seconds"`

	// CreatedAt is the record creation time in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// VoiceRegistry defines the persistence boundary for clone records.
type VoiceRegistry interface {
	Append(record VoiceRecord) error
	List() ([]VoiceRecord, error)
}

// ObjectStore defines the interface for interacting with a key-value blob
// store used to archive uploaded voice samples.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// EventPublisher defines the boundary for emitting service lifecycle events.
type EventPublisher interface {
	PublishVoiceCloneCreated(ctx context.Context, record VoiceRecord) error
}
