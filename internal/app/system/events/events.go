// Package events publishes membership changes to NATS as msgpack envelopes.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Version of the envelope layout.
const Version = 1

// DefaultSubjectPrefix is used when no prefix is configured. Events go to
// "<prefix>.<event>", e.g. "orghub.membership.joined".
const DefaultSubjectPrefix = "orghub"

// Envelope is the wire form of a membership change.
type Envelope struct {
	V              int    `msgpack:"v"`
	ID             string `msgpack:"id"`
	TS             int64  `msgpack:"ts"` // unix millis
	Event          string `msgpack:"event"`
	UserID         string `msgpack:"user_id"`
	OrganizationID string `msgpack:"organization_id"`
	Role           string `msgpack:"role"`
	PriorState     string `msgpack:"prior_state,omitempty"`
	Repaired       bool   `msgpack:"repaired"`
}

// Encode builds and marshals the envelope for c.
func Encode(c membership.Change) ([]byte, error) {
	env := Envelope{
		V:              Version,
		ID:             uuid.NewString(),
		TS:             c.At.UnixMilli(),
		Event:          c.Event,
		UserID:         c.UserID.Hex(),
		OrganizationID: c.OrganizationID.Hex(),
		Role:           c.Role,
		Repaired:       c.Repaired,
	}
	if c.Event != membership.EventOrgCreated {
		env.PriorState = c.Prior.String()
	}
	return msgpack.Marshal(&env)
}

// Decode is the consumer side of Encode.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode membership event: %w", err)
	}
	return env, nil
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher is a membership.Observer that forwards each change to NATS.
// Publishing is fire-and-forget: a failure is logged and the write that
// produced the change is unaffected.
type Publisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
}

var _ membership.Observer = (*Publisher)(nil)

// NewPublisher wraps conn. An empty prefix means DefaultSubjectPrefix.
func NewPublisher(conn Conn, prefix string, logger *zap.Logger) *Publisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, log: logger}
}

// Subject returns the subject a change with the given event name goes to.
func (p *Publisher) Subject(event string) string {
	return p.prefix + "." + event
}

func (p *Publisher) MembershipChanged(_ context.Context, c membership.Change) {
	data, err := Encode(c)
	if err != nil {
		p.log.Error("encode membership event", zap.String("event", c.Event), zap.Error(err))
		return
	}
	subject := p.Subject(c.Event)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("publish membership event",
			zap.String("subject", subject),
			zap.String("user_id", c.UserID.Hex()),
			zap.String("organization_id", c.OrganizationID.Hex()),
			zap.Error(err))
	}
}

// Connect dials NATS with reconnect settings suited to a long-lived
// publisher. Connection state changes are logged.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("orghub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1 * time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}
