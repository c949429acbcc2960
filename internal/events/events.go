// Package events publishes domain events after successful writes. Publishing
// is best-effort: a broker failure is logged and never fails the request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Type names a domain event.
type Type string

const (
	UserRegistered Type = "user.registered"
	TagCreated     Type = "tag.created"
	TagUpdated     Type = "tag.updated"
	TagDeleted     Type = "tag.deleted"
	NoteCreated    Type = "note.created"
	NoteUpdated    Type = "note.updated"
	NoteDeleted    Type = "note.deleted"
)

// Event is the JSON envelope sent to the broker.
type Event struct {
	Type       Type      `json:"type"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

func New(eventType Type, userID string, data any) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher accepts domain events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Sender is the broker operation the publisher needs; *mq.MQ satisfies it.
type Sender interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// BrokerPublisher serializes events and sends them to one topic.
type BrokerPublisher struct {
	sender  Sender
	topic   string
	log     logrus.FieldLogger
	observe func(eventType string, err error)
}

func NewBrokerPublisher(sender Sender, topic string, log logrus.FieldLogger) *BrokerPublisher {
	return &BrokerPublisher{
		sender:  sender,
		topic:   topic,
		log:     log,
		observe: func(string, error) {},
	}
}

// WithObserver registers a callback invoked after every publish attempt.
func (p *BrokerPublisher) WithObserver(observe func(eventType string, err error)) *BrokerPublisher {
	if observe != nil {
		p.observe = observe
	}
	return p
}

func (p *BrokerPublisher) Publish(ctx context.Context, event Event) {
	entry := p.log.WithFields(logrus.Fields{
		"event":   event.Type,
		"user_id": event.UserID,
		"topic":   p.topic,
	})

	data, err := json.Marshal(event)
	if err != nil {
		entry.WithError(err).Error("failed to encode event")
		return
	}

	attrs := map[string]string{
		"type":    string(event.Type),
		"user_id": event.UserID,
	}
	id, err := p.sender.Publish(ctx, p.topic, data, attrs)
	p.observe(string(event.Type), err)
	if err != nil {
		entry.WithError(err).Warn("failed to publish event")
		return
	}
	entry.WithField("message_id", id).Debug("event published")
}
