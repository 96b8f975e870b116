package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionLoaded      Type = "session.loaded"
	TypeSessionUnloaded    Type = "session.unloaded"
	TypeSessionExpiring    Type = "session.expiring"
	TypeSessionRefreshed   Type = "session.refreshed"
	TypeNotificationRaised Type = "notification.raised"
	TypeSignInRequired     Type = "auth.signin_required"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
}

func New(t Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Publisher interface {
	Publish(e Event)
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

// Discard drops every event. Components use it when no bus is wired.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
