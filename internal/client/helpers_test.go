package client

import "github.com/deskops/helpdesk-admin/internal/domain"

func domainResource(name string, inactive, readOnly bool) domain.Resource {
	return domain.Resource{Name: name, SupportsInactive: inactive, ReadOnly: readOnly}.Normalize()
}
