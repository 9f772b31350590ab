package auth

import (
	"context"
	"slices"
)

// Role names understood by the approval workflow.
const (
	RoleStudent         = "student"
	RoleFaculty         = "faculty"
	RoleHOD             = "hod"
	RolePrincipal       = "principal"
	RoleDepartmentAdmin = "department_admin"
	RoleCollegeAdmin    = "college_admin"
	RoleAdmin           = "admin"
)

// Principal is the acting identity of a request.
// It is transient: the auth middleware builds it from the bearer token on every request.
type Principal struct {
	ID           string  `json:"id"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId,omitempty"`
	CollegeID    *string `json:"collegeId,omitempty"`
}

// HasRole reports whether the principal holds one of the given roles.
func (p *Principal) HasRole(roles ...string) bool {
	return p != nil && slices.Contains(roles, p.Role)
}

// IsAdmin reports whether the principal administers workflows at any level.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin, RoleCollegeAdmin, RoleDepartmentAdmin)
}

// Department returns the department id or "" when unassigned.
func (p *Principal) Department() string {
	if p == nil || p.DepartmentID == nil {
		return ""
	}
	return *p.DepartmentID
}

// College returns the college id or "" when unassigned.
func (p *Principal) College() string {
	if p == nil || p.CollegeID == nil {
		return ""
	}
	return *p.CollegeID
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// PrincipalContextKey is the key for storing the Principal in request context
	PrincipalContextKey ContextKey = "principal"
)

// WithPrincipal returns a copy of ctx carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// GetPrincipal extracts the Principal from a request context.
// Returns nil if no principal is available (request had no valid token).
func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}
