package domain

import "strings"

// OperatorRole enumerates console operator roles.
type OperatorRole string

const (
	OperatorRoleViewer OperatorRole = "VIEWER"
	OperatorRoleAdmin  OperatorRole = "ADMIN"
)

// ParseOperatorRole maps free text to a role, defaulting to viewer.
func ParseOperatorRole(raw string) OperatorRole {
	if OperatorRole(strings.ToUpper(strings.TrimSpace(raw))) == OperatorRoleAdmin {
		return OperatorRoleAdmin
	}
	return OperatorRoleViewer
}

// Operator is an authenticated console user.
type Operator struct {
	Email string
	Role  OperatorRole
}

// CanMutate reports whether the operator may change resources.
func (o Operator) CanMutate() bool {
	return o.Role == OperatorRoleAdmin
}
