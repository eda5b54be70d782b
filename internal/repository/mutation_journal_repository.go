package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

// JournalFilter narrows journal listings.
type JournalFilter struct {
	Resource *string
	Limit    int
}

// MutationJournalRepository persists settled slice mutations.
type MutationJournalRepository interface {
	Create(ctx context.Context, entry *domain.JournalEntry) error
	List(ctx context.Context, filter JournalFilter) ([]domain.JournalEntry, error)
}

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 500
)

type mutationJournalRepository struct {
	db DBTX
}

// NewMutationJournalRepository builds the repository.
func NewMutationJournalRepository(db DBTX) MutationJournalRepository {
	return &mutationJournalRepository{db: db}
}

func (r *mutationJournalRepository) Create(ctx context.Context, entry *domain.JournalEntry) error {
	const query = `
        INSERT INTO slice_mutations (id, event_type, resource, operation, entity_id, outcome, message, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.EventType,
		entry.Resource,
		entry.Operation,
		entry.EntityID,
		entry.Outcome,
		entry.Message,
		entry.Payload,
		entry.OccurredAt,
	)
	return err
}

func (r *mutationJournalRepository) List(ctx context.Context, filter JournalFilter) ([]domain.JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxJournalLimit {
		limit = defaultJournalLimit
	}
	const query = `
        SELECT id, event_type, resource, operation, entity_id, outcome, message, payload, occurred_at
        FROM slice_mutations
        WHERE ($1::text IS NULL OR resource = $1)
        ORDER BY occurred_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, filter.Resource, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.JournalEntry, 0)
	for rows.Next() {
		var entry domain.JournalEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.EventType,
			&entry.Resource,
			&entry.Operation,
			&entry.EntityID,
			&entry.Outcome,
			&entry.Message,
			&entry.Payload,
			&entry.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
