package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/packsnap/packsnap/pkg/models"
)

// EventPublisher publishes CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName string) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
	}
}

// PublishSnapshotCreated publishes a snapshot.created event to the events
// stream after an ingestion session completes.
func (p *EventPublisher) PublishSnapshotCreated(ctx context.Context, data models.SnapshotCreatedEventData) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          "packsnap/core",
		Type:            "io.packsnap.snapshot.created",
		DataContentType: "application/json",
		Subject:         "events.snapshot.created",
		Time:            &data.SaveDate,
		Data:            data,
	}

	return p.publish(ctx, event)
}

func (p *EventPublisher) publish(ctx context.Context, event models.CloudEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	if _, err := p.js.Publish(ctx, event.Subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

// ConnectWithEventPublisher creates a NATS connection with JetStream and
// returns an EventPublisher over the given stream.
func ConnectWithEventPublisher(ctx context.Context, natsURL, streamName string, subjects []string, opts ...nats.Option) (*EventPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher, err := CreateEventPublisher(ctx, nc, streamName, subjects)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return publisher, nc, nil
}

// CreateEventPublisher creates an EventPublisher for an existing NATS
// connection, creating the stream if it does not exist yet.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, streamName string, subjects []string) (*EventPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.Stream(ctx, streamName); err != nil {
		if len(subjects) == 0 {
			subjects = []string{"events.snapshot.*"}
		}

		streamConfig := jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		}

		if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			return nil, fmt.Errorf("failed to create or get stream %s: %w", streamName, err)
		}
	}

	return NewEventPublisher(js, streamName), nil
}
