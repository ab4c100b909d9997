package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/useradmin/internal/authz"
	"vn.io.arda/useradmin/internal/domain"
)

// AuditEntry is one administrative mutation for the audit trail.
type AuditEntry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	ActorEmail string    `json:"actorEmail"`
	Action     string    `json:"action"`
	TargetID   string    `json:"targetId,omitempty"`
	Outcome    string    `json:"outcome"`
	At         time.Time `json:"at"`
}

// AuditSink receives audit entries. The implementation (a Kafka producer in
// internal/audit) must be best-effort: Record never blocks the action and
// never returns an error.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry)
}

// Service implements the administrative actions: it resolves the caller,
// asks the authorization engine for a decision and performs the permitted
// mutation against the identity provider and the profile store.
type Service struct {
	store    domain.ProfileStore
	dir      domain.Directory
	resolver *Resolver
	audit    AuditSink
}

// NewService creates the application Service. audit may be nil.
func NewService(store domain.ProfileStore, dir domain.Directory, resolver *Resolver, audit AuditSink) *Service {
	return &Service{store: store, dir: dir, resolver: resolver, audit: audit}
}

// Result is a successful action outcome. Warnings list best-effort steps
// that failed without failing the action (denormalized claim writes).
type Result struct {
	Data     map[string]any `json:"data"`
	Warnings []string       `json:"warnings,omitempty"`
}

func okResult() *Result {
	return &Result{Data: map[string]any{"ok": true}}
}

// Authenticate verifies the bearer credential and resolves the caller's
// effective role and organization.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	if token == "" {
		return domain.Caller{}, domain.E(domain.KindUnauthenticated, "missing bearer token")
	}
	ident, err := s.dir.VerifyToken(ctx, token)
	if err != nil {
		return domain.Caller{}, err
	}
	return s.resolver.ResolveCaller(ctx, *ident)
}

// Dispatch maps an inbound action name to its executor. It is the single
// entry point of the admin endpoint: authentication, role resolution,
// authorization and execution all happen behind it, and exactly one
// result or error comes back.
func (s *Service) Dispatch(ctx context.Context, token, action string, data json.RawMessage) (*Result, error) {
	caller, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	act, ok := domain.ParseAction(action)
	if !ok {
		return nil, domain.E(domain.KindInvalidArgument, "unknown action %q", action)
	}

	var res *Result
	switch act {
	case domain.ActionCreateUser:
		res, err = s.createUser(ctx, caller, data)
	case domain.ActionUpdateUser:
		res, err = s.updateUser(ctx, caller, data)
	case domain.ActionDeleteUser:
		res, err = s.deleteUser(ctx, caller, data)
	case domain.ActionResetPassword:
		res, err = s.resetPassword(ctx, caller, data)
	}

	s.recordAudit(ctx, caller, string(act), data, err)
	return res, err
}

// ListUsers returns the org-scoped user listing. Non-superadmins are
// confined to their own organization regardless of the requested filter.
func (s *Service) ListUsers(ctx context.Context, token string, f domain.ProfileFilter) ([]*domain.UserProfile, error) {
	caller, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !caller.Role.Elevated() {
		return nil, domain.E(domain.KindPermissionDenied, "administrative privilege required")
	}
	if !caller.IsSuper() {
		if caller.OrgID == "" {
			return nil, domain.E(domain.KindPermissionDenied, "caller has no organization")
		}
		f.OrgID = caller.OrgID
	}
	return s.store.ListProfiles(ctx, f)
}

// --- Executors ---

func (s *Service) createUser(ctx context.Context, caller domain.Caller, data json.RawMessage) (*Result, error) {
	var in createUserData
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, domain.E(domain.KindInvalidArgument, "malformed createUser data")
	}
	if in.Email == "" || in.Password == "" || in.FullName == "" || in.Role == "" || in.OrgID == "" {
		return nil, domain.E(domain.KindInvalidArgument, "email, password, fullName, role and orgId are required")
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, domain.E(domain.KindInvalidArgument, "unknown role %q", in.Role)
	}

	dept, err := s.departmentRef(ctx, in.DepartmentID)
	if err != nil {
		return nil, err
	}

	if err := authz.Decide(authz.Input{
		CallerRole:    caller.Role,
		CallerOrg:     caller.OrgID,
		Action:        domain.ActionCreateUser,
		RequestedRole: role,
		RequestedOrg:  &in.OrgID,
		Department:    dept,
	}); err != nil {
		return nil, err
	}

	uid, err := s.dir.CreateAccount(ctx, domain.NewAccount{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertProfile(ctx, domain.UserProfile{
		ID:           uid,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         role,
		OrgID:        in.OrgID,
		DepartmentID: in.DepartmentID,
	}); err != nil {
		return nil, err
	}

	res := &Result{Data: map[string]any{"uid": uid}}
	// Claims are a cache, the profile is truth: a failed claims write is a
	// warning, never a failure.
	if err := s.dir.SetClaims(ctx, uid, domain.RoleClaims{Role: role, OrgID: in.OrgID}); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("denormalized claims write failed")
		res.Warnings = append(res.Warnings, "claims write failed; profile remains authoritative")
	}

	log.Info().Str("uid", uid).Str("org", in.OrgID).Str("role", string(role)).
		Str("actor", caller.ID).Msg("user created")
	return res, nil
}

func (s *Service) updateUser(ctx context.Context, caller domain.Caller, data json.RawMessage) (*Result, error) {
	var in updateUserData
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, domain.E(domain.KindInvalidArgument, "malformed updateUser data")
	}
	if in.UID == "" {
		return nil, domain.E(domain.KindInvalidArgument, "uid is required")
	}

	var reqRole domain.Role
	if in.Role != nil {
		role, ok := domain.ParseRole(*in.Role)
		if !ok {
			return nil, domain.E(domain.KindInvalidArgument, "unknown role %q", *in.Role)
		}
		reqRole = role
	}

	target, err := s.resolver.ResolveTarget(ctx, in.UID)
	if err != nil {
		return nil, err
	}

	dept, err := s.departmentRef(ctx, in.DepartmentID)
	if err != nil {
		return nil, err
	}

	if err := authz.Decide(authz.Input{
		CallerRole:       caller.Role,
		CallerOrg:        caller.OrgID,
		Action:           domain.ActionUpdateUser,
		TargetRole:       target.Role,
		TargetOrg:        target.OrgID,
		TargetHasProfile: target.HasProfile,
		RequestedRole:    reqRole,
		RequestedOrg:     in.OrgID,
		Department:       dept,
	}); err != nil {
		return nil, err
	}

	// Provider first, store second: on partial failure the provider stays
	// authoritative and the store catches up on the next write.
	if in.Email != nil || in.FullName != nil || in.Password != nil {
		if err := s.dir.UpdateAccount(ctx, in.UID, domain.AccountPatch{
			Email:    in.Email,
			FullName: in.FullName,
			Password: in.Password,
		}); err != nil {
			return nil, err
		}
	}

	patch := domain.ProfilePatch{
		Email:        in.Email,
		FullName:     in.FullName,
		OrgID:        in.OrgID,
		DepartmentID: in.DepartmentID,
	}
	if in.Role != nil {
		patch.Role = &reqRole
	}
	if !patch.Empty() {
		if err := s.store.UpdateProfile(ctx, in.UID, patch); err != nil {
			return nil, err
		}
	}

	res := okResult()
	if in.Role != nil || in.OrgID != nil {
		claims := domain.RoleClaims{Role: target.Role, OrgID: target.OrgID}
		if in.Role != nil {
			claims.Role = reqRole
		}
		if in.OrgID != nil {
			claims.OrgID = *in.OrgID
		}
		if err := s.dir.SetClaims(ctx, in.UID, claims); err != nil {
			log.Warn().Err(err).Str("uid", in.UID).Msg("denormalized claims write failed")
			res.Warnings = append(res.Warnings, "claims write failed; profile remains authoritative")
		}
	}

	log.Info().Str("uid", in.UID).Str("actor", caller.ID).Msg("user updated")
	return res, nil
}

func (s *Service) deleteUser(ctx context.Context, caller domain.Caller, data json.RawMessage) (*Result, error) {
	var in deleteUserData
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, domain.E(domain.KindInvalidArgument, "malformed deleteUser data")
	}
	if in.UID == "" {
		return nil, domain.E(domain.KindInvalidArgument, "uid is required")
	}

	target, err := s.resolver.ResolveTarget(ctx, in.UID)
	if err != nil {
		return nil, err
	}

	if err := authz.Decide(authz.Input{
		CallerRole:       caller.Role,
		CallerOrg:        caller.OrgID,
		Action:           domain.ActionDeleteUser,
		TargetRole:       target.Role,
		TargetOrg:        target.OrgID,
		TargetHasProfile: target.HasProfile,
	}); err != nil {
		return nil, err
	}

	// Profile first, dependents second, provider account last. Every step
	// is idempotent so a retried delete converges instead of erroring.
	if err := s.store.DeleteProfile(ctx, in.UID); err != nil {
		return nil, err
	}

	if in.Cascade {
		ids, err := s.store.ScheduleIDsByCreator(ctx, in.UID)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			if err := s.store.DeleteSchedules(ctx, ids); err != nil {
				return nil, err
			}
			log.Info().Str("uid", in.UID).Int("schedules", len(ids)).Msg("cascade delete completed")
		}
	}

	if err := s.dir.DeleteAccount(ctx, in.UID); err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			log.Error().Err(err).Str("uid", in.UID).Msg("identity provider delete failed")
			return nil, domain.E(domain.KindInternal, "identity provider delete failed")
		}
	}

	log.Info().Str("uid", in.UID).Bool("cascade", in.Cascade).
		Str("actor", caller.ID).Msg("user deleted")
	return okResult(), nil
}

func (s *Service) resetPassword(ctx context.Context, caller domain.Caller, data json.RawMessage) (*Result, error) {
	var in resetPasswordData
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, domain.E(domain.KindInvalidArgument, "malformed password reset data")
	}
	if in.UID == "" || in.password() == "" {
		return nil, domain.E(domain.KindInvalidArgument, "uid and password are required")
	}

	target, err := s.resolver.ResolveTarget(ctx, in.UID)
	if err != nil {
		return nil, err
	}

	if err := authz.Decide(authz.Input{
		CallerRole:       caller.Role,
		CallerOrg:        caller.OrgID,
		Action:           domain.ActionResetPassword,
		TargetRole:       target.Role,
		TargetOrg:        target.OrgID,
		TargetHasProfile: target.HasProfile,
	}); err != nil {
		return nil, err
	}

	pw := in.password()
	if err := s.dir.UpdateAccount(ctx, in.UID, domain.AccountPatch{Password: &pw}); err != nil {
		return nil, err
	}

	log.Info().Str("uid", in.UID).Str("actor", caller.ID).Msg("password reset")
	return okResult(), nil
}

// --- Helpers ---

// departmentRef looks up a supplied department for the containment check.
// A nil ref means no departmentId was supplied; an empty departmentId on
// update clears the assignment and needs no lookup.
func (s *Service) departmentRef(ctx context.Context, id *string) (*authz.DepartmentRef, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	d, err := s.store.GetDepartment(ctx, *id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &authz.DepartmentRef{}, nil
	}
	return &authz.DepartmentRef{Found: true, OrgID: d.OrgID}, nil
}

func (s *Service) recordAudit(ctx context.Context, caller domain.Caller, action string, data json.RawMessage, actionErr error) {
	if s.audit == nil {
		return
	}
	outcome := "ok"
	if actionErr != nil {
		outcome = domain.KindOf(actionErr).String()
	}
	var target struct {
		UID string `json:"uid"`
	}
	_ = json.Unmarshal(data, &target)

	s.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Actor:      caller.ID,
		ActorEmail: caller.Email,
		Action:     action,
		TargetID:   target.UID,
		Outcome:    outcome,
		At:         time.Now().UTC(),
	})
}
