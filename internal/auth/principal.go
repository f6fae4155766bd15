// Package auth provides sessions, password hashing and login throttling.
package auth

import (
	"github.com/google/uuid"
)

// Role is the capability a caller acts with.
type Role string

const (
	RoleTenant     Role = "tenant"
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleAdmin, RoleSupervisor:
		return true
	}
	return false
}

// Principal identifies who is calling a service operation. TenantID is set
// only for tenant principals.
type Principal struct {
	Role     Role       `json:"role"`
	Subject  string     `json:"subject"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// Is reports whether the principal holds one of roles.
func (p Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// TenantPrincipal builds the principal for a logged-in tenant.
func TenantPrincipal(tenantID uuid.UUID, mobile string) Principal {
	id := tenantID
	return Principal{Role: RoleTenant, Subject: mobile, TenantID: &id}
}
