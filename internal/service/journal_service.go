package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/deskops/helpdesk-admin/internal/config"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/events"
	"github.com/deskops/helpdesk-admin/internal/repository"
)

// ErrJournalDisabled is returned when no journal repository is configured.
var ErrJournalDisabled = errors.New("mutation journal disabled")

// EventPublisher forwards events to an external channel.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// JournalService records settled slice operations: it logs every event,
// persists mutations and fans events out to an external publisher.
type JournalService struct {
	dispatcher events.Dispatcher
	repo       repository.MutationJournalRepository
	publisher  EventPublisher
	logger     *zap.Logger
	cfg        config.EventsConfig
}

// JournalDependencies bundles optional collaborators; nil ones are skipped.
type JournalDependencies struct {
	Dispatcher events.Dispatcher
	Repo       repository.MutationJournalRepository
	Publisher  EventPublisher
}

// NewJournalService creates the service.
func NewJournalService(deps JournalDependencies, logger *zap.Logger, cfg config.EventsConfig) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{
		dispatcher: deps.Dispatcher,
		repo:       deps.Repo,
		publisher:  deps.Publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every slice event.
func (j *JournalService) RegisterHandlers() {
	if j.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes() {
		j.dispatcher.Subscribe(eventType, j.handle)
	}
}

// List returns recent journal entries, optionally for a single resource.
func (j *JournalService) List(ctx context.Context, resource string, limit int) ([]domain.JournalEntry, error) {
	if j.repo == nil {
		return nil, ErrJournalDisabled
	}
	filter := repository.JournalFilter{Limit: limit}
	if resource != "" {
		filter.Resource = &resource
	}
	return j.repo.List(ctx, filter)
}

func (j *JournalService) handle(ctx context.Context, event events.Event) error {
	j.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("resource", event.Resource),
		zap.String("operation", event.Operation),
		zap.String("entity_id", event.EntityID),
		zap.Any("payload", event.Payload))

	var errs []error
	if event.IsMutation() {
		if err := j.persist(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, event); err != nil {
			j.logger.Warn("publish event failed", zap.String("event_id", event.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *JournalService) persist(ctx context.Context, event events.Event) error {
	if j.repo == nil || !j.cfg.Journal {
		return nil
	}
	entry := &domain.JournalEntry{
		ID:         event.ID,
		EventType:  string(event.Type),
		Resource:   event.Resource,
		Operation:  event.Operation,
		EntityID:   event.EntityID,
		Outcome:    domain.JournalOutcomeFulfilled,
		OccurredAt: event.Timestamp,
	}
	if failed, ok := event.Payload.(events.FailedPayload); ok {
		entry.Outcome = domain.JournalOutcomeRejected
		entry.Message = failed.Message
	}
	if event.Payload != nil {
		body, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		entry.Payload = body
	}
	if err := j.repo.Create(ctx, entry); err != nil {
		j.logger.Warn("journal insert failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}
