package client

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

// ErrReadOnly is returned for mutations against read-only resources.
var ErrReadOnly = errors.New("resource is read-only")

// IncludeInactiveParam toggles inactive rows on list endpoints that support it.
const IncludeInactiveParam = "includeInactive"

// ResourceService translates CRUD intents for one resource into HTTP calls.
type ResourceService struct {
	client *Client
	res    domain.Resource
}

// NewResourceService builds the service for res.
func NewResourceService(c *Client, res domain.Resource) *ResourceService {
	return &ResourceService{client: c, res: res.Normalize()}
}

// Resource returns the descriptor.
func (s *ResourceService) Resource() domain.Resource {
	return s.res
}

// List fetches the collection. includeInactive is dropped for resources that
// do not support it.
func (s *ResourceService) List(ctx context.Context, filter url.Values) (any, error) {
	query := url.Values{}
	for key, values := range filter {
		if key == IncludeInactiveParam && !s.res.SupportsInactive {
			continue
		}
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				query.Add(key, v)
			}
		}
	}
	return s.client.Get(ctx, s.res.Path, query)
}

// Get fetches one entity.
func (s *ResourceService) Get(ctx context.Context, id string) (any, error) {
	return s.client.Get(ctx, s.itemPath(id), nil)
}

// Create posts a new entity.
func (s *ResourceService) Create(ctx context.Context, payload domain.Record) (any, error) {
	if s.res.ReadOnly {
		return nil, ErrReadOnly
	}
	return s.client.Post(ctx, s.res.Path, payload)
}

// Update puts changes for id.
func (s *ResourceService) Update(ctx context.Context, id string, payload domain.Record) (any, error) {
	if s.res.ReadOnly {
		return nil, ErrReadOnly
	}
	return s.client.Put(ctx, s.itemPath(id), payload)
}

// Delete removes id.
func (s *ResourceService) Delete(ctx context.Context, id string) (any, error) {
	if s.res.ReadOnly {
		return nil, ErrReadOnly
	}
	return s.client.Delete(ctx, s.itemPath(id))
}

func (s *ResourceService) itemPath(id string) string {
	return s.res.Path + "/" + url.PathEscape(strings.TrimSpace(id))
}
