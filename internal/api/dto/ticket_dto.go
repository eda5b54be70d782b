package dto

// SystemStatusRequest toggles a system registration.
type SystemStatusRequest struct {
	IsActive *bool `json:"is_active"`
}
