package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventResourceFetched EventType = "resource_fetched"
	EventResourceCreated EventType = "resource_created"
	EventResourceUpdated EventType = "resource_updated"
	EventResourceDeleted EventType = "resource_deleted"
	EventResourceFailed  EventType = "resource_failed"
)

// Event represents a settled slice operation.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Resource  string      `json:"resource"`
	Operation string      `json:"operation"`
	EntityID  string      `json:"entity_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// FetchedPayload payload.
type FetchedPayload struct {
	Count int `json:"count"`
}

// MutationPayload payload for create/update/delete.
type MutationPayload struct {
	Matched bool `json:"matched"`
}

// FailedPayload payload.
type FailedPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// IsMutation reports whether the event describes a create, update or delete.
func (e Event) IsMutation() bool {
	switch e.Operation {
	case "create", "update", "delete":
		return true
	}
	return false
}
