package client

import (
	"context"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

// SystemService manages system registrations, including activation toggles.
type SystemService struct {
	*ResourceService
}

// NewSystemService builds the service.
func NewSystemService(c *Client, res domain.Resource) *SystemService {
	return &SystemService{ResourceService: NewResourceService(c, res)}
}

// SetStatus activates or deactivates a system registration and its system user.
func (s *SystemService) SetStatus(ctx context.Context, id string, active bool) (any, error) {
	return s.client.Patch(ctx, s.itemPath(id)+"/status", domain.Record{"is_active": active})
}
