package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUserRegistered      Type = "user.registered"
	TypeProjectCreated      Type = "project.created"
	TypeProjectAssigned     Type = "project.assigned"
	TypeProjectStatus       Type = "project.status_changed"
	TypeProjectDeleted      Type = "project.deleted"
	TypeBidPlaced           Type = "bid.placed"
	TypeDeliverableUploaded Type = "deliverable.uploaded"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId,omitempty"`
}

// New stamps an event with an id and the current time.
func New(typ Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
