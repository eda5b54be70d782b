// Package slice implements the Async Resource Slice: a locally cached list of
// server entities kept consistent with the backend across fetch, create,
// update and delete calls.
package slice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/events"
	"github.com/deskops/helpdesk-admin/internal/payload"
)

// ErrStaleResponse is returned by FetchAll when a newer request superseded it.
// Only produced with WithLatestRequestWins.
var ErrStaleResponse = errors.New("stale response discarded")

// Service is the per-resource I/O boundary. Implementations return the decoded
// response body verbatim.
type Service interface {
	List(ctx context.Context, filter url.Values) (any, error)
	Create(ctx context.Context, payload domain.Record) (any, error)
	Update(ctx context.Context, id string, payload domain.Record) (any, error)
	Delete(ctx context.Context, id string) (any, error)
}

// Call is a single service invocation run through slice reconciliation.
type Call func(ctx context.Context) (any, error)

// OperationRecorder receives timing for every settled operation.
type OperationRecorder interface {
	RecordOperation(resource, op, outcome string, duration time.Duration)
}

// Slice owns one Resource List State. All writes go through its operations.
type Slice struct {
	res        domain.Resource
	svc        Service
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    OperationRecorder
	now        func() time.Time
	latestWins bool

	mu       sync.RWMutex
	state    State
	inflight map[Op]int
	epoch    uint64
}

// Option configures a Slice.
type Option func(*Slice)

// WithDispatcher publishes an event after every settled operation.
func WithDispatcher(d events.Dispatcher) Option {
	return func(s *Slice) { s.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Slice) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records operation outcomes.
func WithMetrics(m OperationRecorder) Option {
	return func(s *Slice) { s.metrics = m }
}

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Slice) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLatestRequestWins discards fetch responses that were superseded by a
// later fetch or by a settled mutation, and keeps Loading true while any
// operation is in flight.
func WithLatestRequestWins() Option {
	return func(s *Slice) { s.latestWins = true }
}

// New creates an empty slice for res backed by svc.
func New(res domain.Resource, svc Service, opts ...Option) *Slice {
	s := &Slice{
		res:      res.Normalize(),
		svc:      svc,
		logger:   zap.NewNop(),
		now:      time.Now,
		state:    newState(),
		inflight: make(map[Op]int, 4),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resource returns the descriptor the slice was built for.
func (s *Slice) Resource() domain.Resource {
	return s.res
}

// Snapshot returns a copy of the current state.
func (s *Slice) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Find returns a copy of the entity identified by id.
func (s *Slice) Find(id string) (domain.Record, bool) {
	key := domain.IDKey(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.Items {
		if item.MatchesID(s.res.IDField, key) {
			return item.Clone(), true
		}
	}
	return nil, false
}

// ClearError resets the stored error.
func (s *Slice) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = nil
}

// FetchAll replaces the list with the server's current collection. On failure
// the previous items are kept.
func (s *Slice) FetchAll(ctx context.Context, filter url.Values) error {
	started := time.Now()
	epoch := s.begin(OpFetch)

	raw, err := s.svc.List(ctx, filter)
	var items []domain.Record
	if err == nil {
		items, err = payload.ExtractList(raw, s.res)
	}
	errPayload := payload.NormalizeError(err)

	s.mu.Lock()
	if s.latestWins && epoch != s.epoch {
		s.discardLocked(OpFetch)
		s.mu.Unlock()
		s.logger.Debug("stale fetch discarded", zap.String("resource", s.res.Name))
		s.observe(OpFetch, "stale", started)
		return ErrStaleResponse
	}
	if errPayload == nil {
		now := s.now()
		s.state.Items = items
		s.state.LastUpdated = &now
		s.state.Error = nil
	}
	s.settleLocked(OpFetch, errPayload)
	count := len(s.state.Items)
	s.mu.Unlock()

	s.finish(ctx, OpFetch, "", errPayload, started, events.FetchedPayload{Count: count})
	if errPayload != nil {
		return errPayload
	}
	return nil
}

// Create sends payload to the server and prepends the created entity.
func (s *Slice) Create(ctx context.Context, p domain.Record) (domain.Record, error) {
	return s.CreateWith(ctx, func(ctx context.Context) (any, error) {
		return s.svc.Create(ctx, p)
	})
}

// CreateWith runs call and reconciles its result as a create.
func (s *Slice) CreateWith(ctx context.Context, call Call) (domain.Record, error) {
	started := time.Now()
	s.begin(OpCreate)

	raw, err := call(ctx)
	var entity domain.Record
	if err == nil {
		var ok bool
		if entity, ok = payload.ExtractEntity(raw, s.res); !ok {
			err = payload.NewErrorPayload(payload.CodeUnrecognized,
				fmt.Sprintf("create response carried no %s", s.res.Entity), payload.ErrUnrecognizedShape)
		}
	}
	errPayload := payload.NormalizeError(err)

	s.mu.Lock()
	if errPayload == nil {
		items := make([]domain.Record, 0, len(s.state.Items)+1)
		items = append(items, entity)
		items = append(items, s.state.Items...)
		s.state.Items = items
		s.epoch++
	}
	s.settleLocked(OpCreate, errPayload)
	s.mu.Unlock()

	id := ""
	if entity != nil {
		if v, ok := entity.IDValue(s.res.IDField); ok {
			id = domain.IDKey(v)
		}
	}
	s.finish(ctx, OpCreate, id, errPayload, started, events.MutationPayload{Matched: errPayload == nil})
	if errPayload != nil {
		return nil, errPayload
	}
	return entity.Clone(), nil
}

// Update sends payload for id and merges the result into the matching entity.
// When no local entity matches, the list is left unchanged and a nil record is
// returned without error.
func (s *Slice) Update(ctx context.Context, id string, p domain.Record) (domain.Record, error) {
	return s.UpdateWith(ctx, id, p, func(ctx context.Context) (any, error) {
		return s.svc.Update(ctx, id, p)
	})
}

// UpdateWith runs call and reconciles its result as an update of id, merging
// old fields, then patch, then whatever entity the response carries.
func (s *Slice) UpdateWith(ctx context.Context, id string, patch domain.Record, call Call) (domain.Record, error) {
	started := time.Now()
	key := domain.IDKey(id)
	s.begin(OpUpdate)

	raw, err := call(ctx)
	errPayload := payload.NormalizeError(err)

	var merged domain.Record
	s.mu.Lock()
	if errPayload == nil {
		serverEntity, _ := payload.ExtractEntity(raw, s.res)
		for i, item := range s.state.Items {
			if !item.MatchesID(s.res.IDField, key) {
				continue
			}
			merged = s.syncNested(item.Merge(patch).Merge(serverEntity))
			items := make([]domain.Record, len(s.state.Items))
			copy(items, s.state.Items)
			items[i] = merged
			s.state.Items = items
			s.epoch++
			break
		}
	}
	s.settleLocked(OpUpdate, errPayload)
	s.mu.Unlock()

	if errPayload == nil && merged == nil {
		s.logger.Debug("update matched no local entity",
			zap.String("resource", s.res.Name), zap.String("id", key))
	}
	s.finish(ctx, OpUpdate, key, errPayload, started, events.MutationPayload{Matched: merged != nil})
	if errPayload != nil {
		return nil, errPayload
	}
	return merged.Clone(), nil
}

// Delete removes the entity identified by id once the server confirms. Ids
// echoed by the response are never used to pick the row.
func (s *Slice) Delete(ctx context.Context, id string) error {
	started := time.Now()
	key := domain.IDKey(id)
	s.begin(OpDelete)

	raw, err := s.svc.Delete(ctx, key)
	errPayload := payload.NormalizeError(err)

	removed := 0
	s.mu.Lock()
	if errPayload == nil {
		items := make([]domain.Record, 0, len(s.state.Items))
		for _, item := range s.state.Items {
			if item.MatchesID(s.res.IDField, key) {
				removed++
				continue
			}
			items = append(items, item)
		}
		s.state.Items = items
		s.epoch++
	}
	s.settleLocked(OpDelete, errPayload)
	s.mu.Unlock()

	if errPayload == nil {
		if echoed := payload.ExtractID(raw, s.res, key); echoed != key {
			s.logger.Debug("delete response echoed a different id",
				zap.String("resource", s.res.Name), zap.String("id", key), zap.String("echoed", echoed))
		}
	}

	s.finish(ctx, OpDelete, key, errPayload, started, events.MutationPayload{Matched: removed > 0})
	if errPayload != nil {
		return errPayload
	}
	return nil
}

func (s *Slice) begin(op Op) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[op]++
	s.state.Loading = true
	s.state.Error = nil
	s.state.Status[op] = PhasePending
	if op == OpFetch {
		s.epoch++
	}
	return s.epoch
}

// settleLocked must be called with s.mu held.
func (s *Slice) settleLocked(op Op, errPayload *payload.ErrorPayload) {
	s.inflight[op]--
	if errPayload != nil {
		s.state.Error = errPayload
		s.state.Status[op] = PhaseRejected
	} else {
		s.state.Status[op] = PhaseFulfilled
	}
	s.state.Loading = s.latestWins && s.totalInflightLocked() > 0
}

func (s *Slice) discardLocked(op Op) {
	s.inflight[op]--
	if s.inflight[op] == 0 && s.state.Status[op] == PhasePending {
		s.state.Status[op] = PhaseIdle
	}
	s.state.Loading = s.totalInflightLocked() > 0
}

func (s *Slice) totalInflightLocked() int {
	total := 0
	for _, n := range s.inflight {
		total += n
	}
	return total
}

func (s *Slice) syncNested(rec domain.Record) domain.Record {
	for _, nested := range s.res.Nested {
		child, ok := rec[nested.Field].(map[string]any)
		if !ok {
			continue
		}
		updated := domain.Record(child).Clone()
		for _, k := range nested.Keys {
			if v, present := rec[k]; present {
				updated[k] = v
			}
		}
		rec[nested.Field] = map[string]any(updated)
	}
	return rec
}

func (s *Slice) finish(ctx context.Context, op Op, id string, errPayload *payload.ErrorPayload, started time.Time, body any) {
	outcome := string(PhaseFulfilled)
	if errPayload != nil {
		outcome = string(PhaseRejected)
		s.logger.Warn("slice operation rejected",
			zap.String("resource", s.res.Name),
			zap.String("op", string(op)),
			zap.String("id", id),
			zap.String("code", errPayload.Code),
			zap.String("message", errPayload.Message))
	} else {
		s.logger.Debug("slice operation fulfilled",
			zap.String("resource", s.res.Name),
			zap.String("op", string(op)),
			zap.String("id", id))
	}
	s.observe(op, outcome, started)

	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		Type:      eventTypeFor(op),
		Resource:  s.res.Name,
		Operation: string(op),
		EntityID:  id,
		Timestamp: s.now().UTC(),
		Payload:   body,
	}
	if errPayload != nil {
		event.Type = events.EventResourceFailed
		event.Payload = events.FailedPayload{Code: errPayload.Code, Message: errPayload.Message, Status: errPayload.Status}
	}
	if err := s.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("event handler failed", zap.String("resource", s.res.Name), zap.Error(err))
	}
}

func (s *Slice) observe(op Op, outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperation(s.res.Name, string(op), outcome, time.Since(started))
	}
}

func eventTypeFor(op Op) events.EventType {
	switch op {
	case OpCreate:
		return events.EventResourceCreated
	case OpUpdate:
		return events.EventResourceUpdated
	case OpDelete:
		return events.EventResourceDeleted
	default:
		return events.EventResourceFetched
	}
}
