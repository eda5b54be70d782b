package domain

import "time"

// JournalOutcome is the settlement of a recorded slice mutation.
type JournalOutcome string

const (
	JournalOutcomeFulfilled JournalOutcome = "FULFILLED"
	JournalOutcomeRejected  JournalOutcome = "REJECTED"
)

// JournalEntry records one settled slice operation.
type JournalEntry struct {
	ID         string
	EventType  string
	Resource   string
	Operation  string
	EntityID   string
	Outcome    JournalOutcome
	Message    string
	Payload    []byte
	OccurredAt time.Time
}
