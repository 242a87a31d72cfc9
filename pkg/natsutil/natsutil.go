// Package natsutil provides typed NATS publish/subscribe helpers with
// OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// MsgIDHeader is the header JetStream uses to deduplicate publishes.
const MsgIDHeader = "Nats-Msg-Id"

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// PublishOption customizes an outgoing message.
type PublishOption func(*nats.Msg)

// WithMsgID sets the Nats-Msg-Id header so a JetStream stream drops
// duplicates of the same record.
func WithMsgID(id string) PublishOption {
	return func(m *nats.Msg) {
		if id != "" {
			(*natsHeaderCarrier)(m).Set(MsgIDHeader, id)
		}
	}
}

// WithHeader sets an arbitrary header.
func WithHeader(key, val string) PublishOption {
	return func(m *nats.Msg) { (*natsHeaderCarrier)(m).Set(key, val) }
}

// NewMsg builds the message Publish sends: v as JSON, trace context from ctx
// injected into the headers, then opts applied.
func NewMsg[T any](ctx context.Context, subject string, v T, opts ...PublishOption) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: marshal %s: %w", subject, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	for _, o := range opts {
		o(msg)
	}
	return msg, nil
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, p Publisher, subject string, v T, opts ...PublishOption) error {
	msg, err := NewMsg(ctx, subject, v, opts...)
	if err != nil {
		return err
	}
	return p.PublishMsg(msg)
}

// Decode unmarshals a message published with Publish and returns the trace
// context carried in its headers.
func Decode[T any](msg *nats.Msg) (context.Context, T, error) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return nil, v, fmt.Errorf("natsutil: decode %s: %w", msg.Subject, err)
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
	return ctx, v, nil
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the handler.
// Malformed messages are silently dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, v, err := Decode[T](msg)
		if err != nil {
			return // drop malformed messages
		}
		handler(ctx, v)
	})
}
