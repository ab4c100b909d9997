// Package authz holds the administrative authorization engine: a pure,
// deterministic decision function over the caller, the requested action and
// the target descriptor. It performs no I/O; the application layer gathers
// the inputs (target resolution, department lookup) before asking for a
// decision.
package authz

import "vn.io.arda/useradmin/internal/domain"

// DepartmentRef describes the department lookup result when a departmentId
// was supplied with the request.
type DepartmentRef struct {
	Found bool
	OrgID string
}

// Input is everything the engine needs to decide a single action.
type Input struct {
	CallerRole domain.Role
	CallerOrg  string
	Action     domain.Action

	// Target descriptor, relevant for update/delete/password reset.
	TargetRole       domain.Role
	TargetOrg        string
	TargetHasProfile bool

	// RequestedRole is the role asked for on create/update, empty if absent.
	RequestedRole domain.Role
	// RequestedOrg is the org asked for on create, or an org transfer on
	// update. Nil when the request does not touch the org.
	RequestedOrg *string
	// Department is non-nil when a departmentId was supplied.
	Department *DepartmentRef
}

// Decide evaluates the rules in order and returns nil to allow, or a typed
// error naming the first rule that failed. Rule order:
//
//  1. only admin and superadmin may act at all
//  2. organization containment (non-superadmins stay inside their org)
//  3. role-escalation guard
//  4. org-transfer guard
//  5. department containment (applies to every caller, superadmin included)
//
// Nothing is coerced: an admin creating a user into another org is rejected,
// not silently rewritten to the admin's org.
func Decide(in Input) error {
	if !in.CallerRole.Elevated() {
		return domain.E(domain.KindPermissionDenied, "administrative privilege required")
	}

	if in.CallerRole != domain.RoleSuperAdmin {
		if err := decideScoped(in); err != nil {
			return err
		}
	}

	return decideDepartment(in)
}

// decideScoped applies the containment, escalation and transfer guards for
// non-superadmin callers.
func decideScoped(in Input) error {
	if in.CallerOrg == "" {
		return domain.E(domain.KindPermissionDenied, "caller has no organization")
	}

	switch in.Action {
	case domain.ActionCreateUser:
		if in.RequestedOrg == nil || *in.RequestedOrg != in.CallerOrg {
			return domain.E(domain.KindPermissionDenied, "cannot create users outside own organization")
		}

	case domain.ActionUpdateUser:
		if !in.TargetHasProfile {
			return domain.E(domain.KindNotFound, "target profile not found")
		}
		if in.TargetOrg != in.CallerOrg {
			return domain.E(domain.KindPermissionDenied, "target belongs to another organization")
		}

	case domain.ActionDeleteUser, domain.ActionResetPassword:
		// A target without a profile has no org to compare against;
		// only a superadmin may act on it.
		if !in.TargetHasProfile {
			return domain.E(domain.KindPermissionDenied, "target has no profile; superadmin required")
		}
		if in.TargetOrg != in.CallerOrg {
			return domain.E(domain.KindPermissionDenied, "target belongs to another organization")
		}
	}

	if in.RequestedRole == domain.RoleSuperAdmin {
		return domain.E(domain.KindPermissionDenied, "cannot grant superadmin role")
	}
	if in.Action != domain.ActionCreateUser && in.TargetRole == domain.RoleSuperAdmin {
		return domain.E(domain.KindPermissionDenied, "cannot act on a superadmin account")
	}

	if in.Action == domain.ActionUpdateUser && in.RequestedOrg != nil && *in.RequestedOrg != in.CallerOrg {
		return domain.E(domain.KindPermissionDenied, "cannot move user to another organization")
	}

	return nil
}

// decideDepartment enforces department/org referential integrity. This is
// the one rule a superadmin does not bypass.
func decideDepartment(in Input) error {
	if in.Department == nil {
		return nil
	}
	if !in.Department.Found {
		return domain.E(domain.KindInvalidArgument, "department does not exist")
	}

	// The effective org is the one the profile will carry after the write:
	// the requested org when the request sets it, else the target's
	// current org.
	effective := in.TargetOrg
	if in.RequestedOrg != nil {
		effective = *in.RequestedOrg
	}

	if in.Department.OrgID != effective {
		return domain.E(domain.KindInvalidArgument, "department belongs to a different organization")
	}
	return nil
}
