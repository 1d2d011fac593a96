// Package messaging carries commands between the gateway and the core over
// a work queue with at-least-once delivery and manual acknowledgment.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrTransportClosed is returned by a transport used after Close
var ErrTransportClosed = errors.New("messaging: transport closed")

// Acknowledger settles one delivery with the broker
type Acknowledger interface {
	Ack() error
	Nack(requeue bool) error
	Reply(ctx context.Context, body []byte) error
}

// Delivery is one received command. It must be settled exactly once with
// Ack or Nack; a delivery left unsettled is redelivered by the broker.
type Delivery struct {
	ID            string
	Command       string
	Payload       json.RawMessage
	Redelivered   bool
	ReplyTo       string
	CorrelationID string

	ack Acknowledger
}

// NewDelivery binds a decoded message to the acknowledger that settles it
func NewDelivery(msg Message, ack Acknowledger) Delivery {
	return Delivery{
		ID:      msg.ID,
		Command: msg.Command,
		Payload: msg.Data,
		ack:     ack,
	}
}

// Ack confirms the delivery was handled
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack.Ack()
}

// Nack rejects the delivery, putting it back on the queue when requeue is set
func (d Delivery) Nack(requeue bool) error {
	if d.ack == nil {
		return nil
	}
	return d.ack.Nack(requeue)
}

// Reply sends body to the caller waiting on ReplyTo. Deliveries without a
// reply address drop the body.
func (d Delivery) Reply(ctx context.Context, body []byte) error {
	if d.ack == nil || d.ReplyTo == "" {
		return nil
	}
	return d.ack.Reply(ctx, body)
}

// Transport is a work queue the consumer reads from and producers publish to
type Transport interface {
	// Deliveries starts consuming. The channel is closed when ctx ends or
	// the connection is lost.
	Deliveries(ctx context.Context) (<-chan Delivery, error)
	Publish(ctx context.Context, command string, payload interface{}) error
	Close() error
}
