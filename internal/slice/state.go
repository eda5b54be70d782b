package slice

import (
	"time"

	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/payload"
)

// Op names one of the four slice operations.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Phase is the lifecycle position of an operation.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// State is the Resource List State exposed to readers.
type State struct {
	Items       []domain.Record       `json:"items"`
	Loading     bool                  `json:"loading"`
	Error       *payload.ErrorPayload `json:"error"`
	LastUpdated *time.Time            `json:"last_updated"`
	Status      map[Op]Phase          `json:"status"`
}

func newState() State {
	return State{
		Items: []domain.Record{},
		Status: map[Op]Phase{
			OpFetch:  PhaseIdle,
			OpCreate: PhaseIdle,
			OpUpdate: PhaseIdle,
			OpDelete: PhaseIdle,
		},
	}
}

func (s State) clone() State {
	out := State{
		Items:   make([]domain.Record, len(s.Items)),
		Loading: s.Loading,
		Error:   s.Error,
		Status:  make(map[Op]Phase, len(s.Status)),
	}
	for i, item := range s.Items {
		out.Items[i] = item.Clone()
	}
	if s.LastUpdated != nil {
		ts := *s.LastUpdated
		out.LastUpdated = &ts
	}
	for op, phase := range s.Status {
		out.Status[op] = phase
	}
	return out
}
