package dto

import (
	"time"

	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/payload"
	"github.com/deskops/helpdesk-admin/internal/slice"
)

// ResourceSummary describes one registered resource.
type ResourceSummary struct {
	Name             string     `json:"name"`
	Entity           string     `json:"entity"`
	Collection       string     `json:"collection"`
	IDField          string     `json:"id_field"`
	Path             string     `json:"path"`
	SupportsInactive bool       `json:"supports_inactive"`
	ReadOnly         bool       `json:"read_only"`
	Count            int        `json:"count"`
	Loading          bool       `json:"loading"`
	LastUpdated      *time.Time `json:"last_updated"`
}

// ResourceStateResponse mirrors a slice snapshot.
type ResourceStateResponse struct {
	Resource    string                   `json:"resource"`
	Items       []domain.Record          `json:"items"`
	Loading     bool                     `json:"loading"`
	Error       *payload.ErrorPayload    `json:"error"`
	LastUpdated *time.Time               `json:"last_updated"`
	Status      map[slice.Op]slice.Phase `json:"status"`
}

// FetchRequest carries list filters for POST /resources/:name/fetch.
type FetchRequest struct {
	IncludeInactive bool              `json:"include_inactive"`
	Filters         map[string]string `json:"filters"`
}

// JournalEntryResponse is one persisted mutation record.
type JournalEntryResponse struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Resource   string    `json:"resource"`
	Operation  string    `json:"operation"`
	EntityID   string    `json:"entity_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewResourceSummary builds a summary from a descriptor and its state.
func NewResourceSummary(res domain.Resource, state slice.State) ResourceSummary {
	return ResourceSummary{
		Name:             res.Name,
		Entity:           res.Entity,
		Collection:       res.Collection,
		IDField:          res.IDField,
		Path:             res.Path,
		SupportsInactive: res.SupportsInactive,
		ReadOnly:         res.ReadOnly,
		Count:            len(state.Items),
		Loading:          state.Loading,
		LastUpdated:      state.LastUpdated,
	}
}

// NewResourceStateResponse wraps a snapshot.
func NewResourceStateResponse(name string, state slice.State) ResourceStateResponse {
	return ResourceStateResponse{
		Resource:    name,
		Items:       state.Items,
		Loading:     state.Loading,
		Error:       state.Error,
		LastUpdated: state.LastUpdated,
		Status:      state.Status,
	}
}

// NewJournalEntryResponse converts a journal entry.
func NewJournalEntryResponse(e domain.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:         e.ID,
		EventType:  e.EventType,
		Resource:   e.Resource,
		Operation:  e.Operation,
		EntityID:   e.EntityID,
		Outcome:    string(e.Outcome),
		Message:    e.Message,
		OccurredAt: e.OccurredAt,
	}
}
