package domain

import "time"

// Role is the privilege tier of an account within the platform.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// Elevated reports whether the role may invoke administrative actions at all.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Action is an administrative mutation requested through the dispatch endpoint.
type Action string

const (
	ActionCreateUser    Action = "createUser"
	ActionUpdateUser    Action = "updateUser"
	ActionDeleteUser    Action = "deleteUser"
	ActionResetPassword Action = "resetPassword"
)

// ParseAction maps a wire action name to a canonical Action.
// The password-reset aliases all resolve to ActionResetPassword.
func ParseAction(name string) (Action, bool) {
	switch name {
	case "createUser":
		return ActionCreateUser, true
	case "updateUser":
		return ActionUpdateUser, true
	case "deleteUser":
		return ActionDeleteUser, true
	case "setPassword", "resetPassword", "adminResetPassword":
		return ActionResetPassword, true
	}
	return "", false
}

// Caller is the authenticated actor of a single request. It is derived per
// request from the profile store plus the bootstrap superadmin list and is
// never persisted.
type Caller struct {
	ID    string
	Email string
	Role  Role
	// OrgID is empty only for superadmins without a stored profile.
	OrgID string
}

// IsSuper reports whether the caller bypasses org containment.
func (c Caller) IsSuper() bool {
	return c.Role == RoleSuperAdmin
}

// UserProfile is the stored profile of an account. Role and OrgID on the
// profile are the authoritative source for authorization; provider-side
// claims are a denormalized cache allowed to lag behind.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	OrgID        string    `json:"orgId"`
	DepartmentID *string   `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Department is an org-scoped grouping referenced by profiles. A department
// assigned to a profile must belong to the same org as the profile; the
// store does not enforce this, the authorization engine does at write time.
type Department struct {
	ID    string `json:"id"`
	OrgID string `json:"orgId"`
}

// ProfilePatch carries a partial profile update. Nil pointers mean the field
// was not supplied and must be left untouched.
type ProfilePatch struct {
	Email        *string
	FullName     *string
	Role         *Role
	OrgID        *string
	DepartmentID *string
}

// Empty reports whether the patch touches no profile column.
func (p ProfilePatch) Empty() bool {
	return p.Email == nil && p.FullName == nil && p.Role == nil &&
		p.OrgID == nil && p.DepartmentID == nil
}

// ProfileFilter holds query parameters for the org-scoped user listing.
type ProfileFilter struct {
	OrgID        string
	DepartmentID string
}
