package membership

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Change events emitted by the Coordinator.
const (
	EventJoined     = "membership.joined"
	EventRestored   = "membership.restored"
	EventOrgCreated = "organization.created"
)

// Change describes one membership write that completed.
type Change struct {
	Event          string
	UserID         primitive.ObjectID
	OrganizationID primitive.ObjectID
	Role           string
	Prior          State
	Repaired       bool
	At             time.Time
}

// Observer is told about completed membership changes. Implementations must
// not block for long; failures are theirs to log.
type Observer interface {
	MembershipChanged(ctx context.Context, c Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change)

func (f ObserverFunc) MembershipChanged(ctx context.Context, c Change) { f(ctx, c) }

// EventFor maps a join outcome to its change event name.
func EventFor(o Outcome) string {
	if o == Joined {
		return EventJoined
	}
	return EventRestored
}

func (c *Coordinator) notify(ctx context.Context, ch Change) {
	for _, o := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("membership observer panicked",
						zap.String("event", ch.Event), zap.Any("panic", r))
				}
			}()
			o.MembershipChanged(ctx, ch)
		}()
	}
}
