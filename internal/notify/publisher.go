// Package notify publishes voice-gateway lifecycle events over NATS so that
// downstream consumers can react to newly cloned voices.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-gateway/internal/core"
)

// Static errors.
var (
	ErrConnectionNil = errors.New("nats connection cannot be nil")
	ErrSubjectEmpty  = errors.New("subject cannot be empty")
)

// VoiceCloneCreatedEvent is the payload published after a clone operation
// completes and its record is persisted.
type VoiceCloneCreatedEvent struct {
	// EventID uniquely identifies this event instance.
	EventID string `json:"event_id"`

	// VoiceID is the provider-assigned voice identifier.
	VoiceID string `json:"voice_id"`

	// Name is the caller-chosen display name.
	Name string `json:"name"`

	// SampleSeconds is the duration of the uploaded sample.
	SampleSeconds float64 `json:"sample_seconds"`

	// CreatedAt is the clone record creation time in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// NatsPublisher implements core.EventPublisher over a NATS connection.
type NatsPublisher struct {
	natsConnection *nats.Conn
	subject        string
}

// NewNatsPublisher creates a publisher that emits events on the given subject.
func NewNatsPublisher(natsConnection *nats.Conn, subject string) (*NatsPublisher, error) {
	if natsConnection == nil {
		return nil, ErrConnectionNil
	}

	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsPublisher{
		natsConnection: natsConnection,
		subject:        subject,
	}, nil
}

// PublishVoiceCloneCreated marshals and publishes a VoiceCloneCreatedEvent
// for the given record.
func (p *NatsPublisher) PublishVoiceCloneCreated(
	_ context.Context,
	record core.VoiceRecord,
) error {
	event := VoiceCloneCreatedEvent{
		EventID:       uuid.NewString(),
		VoiceID:       record.VoiceID,
		Name:          record.Name,
		SampleSeconds: record.SampleSeconds,
		CreatedAt:     record.CreatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal clone event: %w", err)
	}

	publishErr := p.natsConnection.Publish(p.subject, data)
	if publishErr != nil {
		return fmt.Errorf(
			"failed to publish clone event on subject '%s': %w",
			p.subject, publishErr,
		)
	}

	return nil
}
