package domain

import "strings"

// NestedSync mirrors parent keys into an embedded object after every update,
// e.g. a system's is_active flag into its system_user.
type NestedSync struct {
	Field string   `yaml:"field" json:"field"`
	Keys  []string `yaml:"keys" json:"keys"`
}

// Resource describes one REST-backed entity collection.
type Resource struct {
	// Name is the slice key, e.g. "categories".
	Name string `yaml:"name" json:"name"`
	// Entity is the wrapper key used by mutation responses, e.g. {"category": {...}}.
	Entity string `yaml:"entity" json:"entity"`
	// Collection is the wrapper key used by list responses, e.g. {"categories": [...]}.
	Collection       string       `yaml:"collection" json:"collection"`
	IDField          string       `yaml:"id_field" json:"id_field"`
	Path             string       `yaml:"path" json:"path"`
	SupportsInactive bool         `yaml:"supports_inactive" json:"supports_inactive"`
	ReadOnly         bool         `yaml:"read_only" json:"read_only"`
	Nested           []NestedSync `yaml:"nested" json:"nested,omitempty"`
}

// Resource names used by specialised services.
const (
	ResourceCategories    = "categories"
	ResourceSubcategories = "subcategories"
	ResourcePriorities    = "priorities"
	ResourceSLAs          = "slas"
	ResourceIssueTypes    = "issue_types"
	ResourceExceptions    = "exceptions"
	ResourceUsers         = "users"
	ResourceWorkingHours  = "working_hours"
	ResourceSystems       = "systems"
	ResourceTickets       = "tickets"
	ResourceEscalations   = "escalations"
)

// DefaultCatalog returns the resources served by the admin backend.
func DefaultCatalog() []Resource {
	return []Resource{
		{Name: ResourceCategories, Entity: "category", Collection: "categories", IDField: "category_id", Path: "/admin/categories", SupportsInactive: true},
		{Name: ResourceSubcategories, Entity: "subcategory", Collection: "subcategories", IDField: "subcategory_id", Path: "/admin/subcategories", SupportsInactive: true},
		{Name: ResourcePriorities, Entity: "priority", Collection: "priorities", IDField: "priority_id", Path: "/admin/priorities", SupportsInactive: true},
		{Name: ResourceSLAs, Entity: "sla", Collection: "slas", IDField: "sla_id", Path: "/admin/slas", SupportsInactive: true},
		{Name: ResourceIssueTypes, Entity: "issue_type", Collection: "issue_types", IDField: "issue_type_id", Path: "/admin/issue-types", SupportsInactive: true},
		{Name: ResourceExceptions, Entity: "exception", Collection: "exceptions", IDField: "exception_id", Path: "/admin/exceptions"},
		{Name: ResourceUsers, Entity: "user", Collection: "users", IDField: "user_id", Path: "/admin/users", SupportsInactive: true},
		{Name: ResourceWorkingHours, Entity: "working_hours", Collection: "working_hours", IDField: "working_hours_id", Path: "/working-hours"},
		{
			Name: ResourceSystems, Entity: "system", Collection: "systems", IDField: "system_id", Path: "/system/registrations",
			SupportsInactive: true,
			Nested:           []NestedSync{{Field: "system_user", Keys: []string{"is_active"}}},
		},
		{Name: ResourceTickets, Entity: "ticket", Collection: "tickets", IDField: "ticket_id", Path: "/admin/tickets"},
		{Name: ResourceEscalations, Entity: "report", Collection: "reports", IDField: "escalation_id", Path: "/escalation-reports/admin/reports", ReadOnly: true},
	}
}

// Normalize fills derived defaults and trims user-provided values.
func (r Resource) Normalize() Resource {
	r.Name = strings.TrimSpace(r.Name)
	if r.Collection == "" {
		r.Collection = r.Name
	}
	if r.Entity == "" {
		r.Entity = strings.TrimSuffix(r.Collection, "s")
	}
	if r.IDField == "" {
		r.IDField = r.Entity + "_id"
	}
	if r.Path == "" {
		r.Path = "/admin/" + strings.ReplaceAll(r.Name, "_", "-")
	}
	r.Path = "/" + strings.Trim(strings.TrimSpace(r.Path), "/")
	return r
}

// CamelCase converts snake_case keys to camelCase ("issue_type" -> "issueType").
func CamelCase(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
