// Package store holds the application state: one slice per catalog resource,
// created empty and kept for the life of the process.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deskops/helpdesk-admin/internal/client"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/payload"
	"github.com/deskops/helpdesk-admin/internal/slice"
)

// ErrUnknownResource is returned for names missing from the catalog.
var ErrUnknownResource = errors.New("unknown resource")

// preloadConcurrency bounds simultaneous fetches during Preload.
const preloadConcurrency = 4

// Store owns every resource slice.
type Store struct {
	slices  map[string]*slice.Slice
	order   []string
	tickets *client.TicketService
	systems *client.SystemService
	logger  *zap.Logger
}

// New builds one slice per catalog entry, each backed by a service on c.
func New(catalog []domain.Resource, c *client.Client, logger *zap.Logger, opts ...slice.Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		slices: make(map[string]*slice.Slice, len(catalog)),
		logger: logger,
	}
	opts = append([]slice.Option{slice.WithLogger(logger)}, opts...)
	for _, res := range catalog {
		res = res.Normalize()
		var svc slice.Service
		switch res.Name {
		case domain.ResourceTickets:
			s.tickets = client.NewTicketService(c, res)
			svc = s.tickets
		case domain.ResourceSystems:
			s.systems = client.NewSystemService(c, res)
			svc = s.systems
		default:
			svc = client.NewResourceService(c, res)
		}
		s.add(slice.New(res, svc, opts...))
	}
	return s
}

// NewWithSlices assembles a store from prebuilt slices.
func NewWithSlices(logger *zap.Logger, slices ...*slice.Slice) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{slices: make(map[string]*slice.Slice, len(slices)), logger: logger}
	for _, sl := range slices {
		s.add(sl)
	}
	return s
}

func (s *Store) add(sl *slice.Slice) {
	name := sl.Resource().Name
	if _, exists := s.slices[name]; !exists {
		s.order = append(s.order, name)
	}
	s.slices[name] = sl
}

// Slice returns the slice registered under name.
func (s *Store) Slice(name string) (*slice.Slice, error) {
	sl, ok := s.slices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return sl, nil
}

// Names lists resources in catalog order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Resources lists descriptors in catalog order.
func (s *Store) Resources() []domain.Resource {
	out := make([]domain.Resource, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.slices[name].Resource())
	}
	return out
}

// Preload fetches the named resources (all when none given) concurrently.
// Every slice is attempted; the first failure is returned.
func (s *Store) Preload(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = s.Names()
	}
	var g errgroup.Group
	g.SetLimit(preloadConcurrency)
	for _, name := range names {
		name := name
		sl, err := s.Slice(name)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := sl.FetchAll(ctx, nil); err != nil {
				s.logger.Warn("preload failed", zap.String("resource", name), zap.Error(err))
				return fmt.Errorf("preload %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CreateTicket submits a multipart ticket and prepends it to the tickets slice.
func (s *Store) CreateTicket(ctx context.Context, form domain.Record, files []client.File) (domain.Record, error) {
	sl, err := s.Slice(domain.ResourceTickets)
	if err != nil || s.tickets == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, domain.ResourceTickets)
	}
	return sl.CreateWith(ctx, func(ctx context.Context) (any, error) {
		return s.tickets.CreateWithAttachments(ctx, form, files)
	})
}

// ReplyTicket posts a reply. Reply bodies usually describe the message, not the
// ticket, so only a ticket returned under its own wrapper is merged.
func (s *Store) ReplyTicket(ctx context.Context, id string, form domain.Record, files []client.File) (domain.Record, error) {
	sl, err := s.Slice(domain.ResourceTickets)
	if err != nil || s.tickets == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, domain.ResourceTickets)
	}
	res := sl.Resource()
	return sl.UpdateWith(ctx, id, nil, func(ctx context.Context) (any, error) {
		raw, err := s.tickets.Reply(ctx, id, form, files)
		if err != nil {
			return nil, err
		}
		return replyTicket(raw, res, id), nil
	})
}

// replyTicket keeps the wrapped ticket from a reply response when it is the
// ticket being replied to; anything else reconciles as a no-entity update.
func replyTicket(raw any, res domain.Resource, id string) any {
	ticket, ok := payload.ExtractWrapped(raw, res)
	if !ok || !ticket.MatchesID(res.IDField, domain.IDKey(id)) {
		return nil
	}
	return map[string]any{res.Entity: map[string]any(ticket)}
}

// SetSystemStatus toggles a system registration; the system user's flag is
// reconciled in the same step.
func (s *Store) SetSystemStatus(ctx context.Context, id string, active bool) (domain.Record, error) {
	sl, err := s.Slice(domain.ResourceSystems)
	if err != nil || s.systems == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, domain.ResourceSystems)
	}
	return sl.UpdateWith(ctx, id, domain.Record{"is_active": active}, func(ctx context.Context) (any, error) {
		return s.systems.SetStatus(ctx, id, active)
	})
}

// Filter builds a list filter from key/value pairs.
func Filter(includeInactive bool, pairs map[string]string) url.Values {
	values := url.Values{}
	if includeInactive {
		values.Set(client.IncludeInactiveParam, "true")
	}
	for k, v := range pairs {
		values.Set(k, v)
	}
	return values
}
