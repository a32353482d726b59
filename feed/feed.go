// Package feed carries change notifications of configuration documents
// over a gocloud pubsub topic. Every event names a document and the version
// it changed to; bodies are gob encoded.
package feed

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// Event notifies that the document EntityID now has version Version.
type Event struct {
	EntityID string
	Version  string
}

// Encode returns the gob encoding of e.
func (e Event) Encode() ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(e); err != nil {
		return nil, fmt.Errorf("encode gob: %w", err)
	}
	return b.Bytes(), nil
}

// Decode parses a gob encoded event.
func Decode(p []byte) (Event, error) {
	var e Event
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&e); err != nil {
		return Event{}, fmt.Errorf("decode gob: %w", err)
	}
	return e, nil
}

// Publisher sends events to a topic.
type Publisher struct {
	topic *pubsub.Topic
}

// NewPublisher returns a Publisher sending to topic.
func NewPublisher(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Publish sends e. The entity id is attached as message metadata so that
// brokers supporting keyed partitions keep events of one document ordered.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}
	msg := &pubsub.Message{Body: body, Metadata: map[string]string{"entityID": e.EntityID}}
	if err := p.topic.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Handler processes a single event.
type Handler func(ctx context.Context, e Event) error

// Subscriber receives events from a subscription.
type Subscriber struct {
	sub *pubsub.Subscription
}

// NewSubscriber returns a Subscriber reading from sub.
func NewSubscriber(sub *pubsub.Subscription) *Subscriber {
	return &Subscriber{sub: sub}
}

// Run receives events and passes them to h, one at a time, until ctx is
// done. It returns nil on cancellation and the receive error otherwise.
// Messages that cannot be decoded or whose handling fails are logged and
// acknowledged; notifications are advisory and are not redelivered.
func (s *Subscriber) Run(ctx context.Context, h Handler) error {
	logger := component.Logger(ctx)
	for {
		msg, err := s.sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		e, err := Decode(msg.Body)
		if err != nil {
			logger.Warn("Dropping undecodable change notification",
				slog.String("msg.id", msg.LoggableID),
				slog.Any("error", err),
			)
			msg.Ack()
			continue
		}

		if err := h(ctx, e); err != nil {
			logger.Error("Couldn't handle change notification",
				slog.String("document.id", e.EntityID),
				slog.String("version", e.Version),
				slog.Any("error", err),
			)
		}
		msg.Ack()
	}
}
