package application

import (
	"context"
	"fmt"
	"strings"

	"vn.io.arda/useradmin/internal/domain"
)

// roleBinding is a resolved role/org pair for one account.
type roleBinding struct {
	Role  domain.Role
	OrgID string
}

// roleSource inspects one backing source for a role binding. A nil binding
// means "this source has no answer"; the next source in the chain is asked.
type roleSource func(ctx context.Context) (*roleBinding, error)

// Resolver determines the effective role and organization of an account by
// walking an ordered chain of sources: stored profile first, then
// provider-side claims. The bootstrap superadmin list sits outside the
// chain and overrides the role (never the org) when the email matches.
type Resolver struct {
	store     domain.ProfileStore
	dir       domain.Directory
	bootstrap map[string]struct{}
}

// NewResolver builds a Resolver. bootstrapEmails come straight from
// configuration and are normalized to lower case.
func NewResolver(store domain.ProfileStore, dir domain.Directory, bootstrapEmails []string) *Resolver {
	set := make(map[string]struct{}, len(bootstrapEmails))
	for _, e := range bootstrapEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &Resolver{store: store, dir: dir, bootstrap: set}
}

// Bootstrapped reports whether the email is on the bootstrap superadmin list.
func (r *Resolver) Bootstrapped(email string) bool {
	_, ok := r.bootstrap[strings.ToLower(email)]
	return ok
}

// ResolveCaller turns a verified identity into a Caller. Fails with
// permission denied when no source yields a role and the email is not
// bootstrapped.
func (r *Resolver) ResolveCaller(ctx context.Context, ident domain.Identity) (domain.Caller, error) {
	binding, err := r.resolve(ctx, ident.ID, ident.Claims)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("resolve caller %s: %w", ident.ID, err)
	}

	caller := domain.Caller{ID: ident.ID, Email: ident.Email}
	if binding != nil {
		caller.Role = binding.Role
		caller.OrgID = binding.OrgID
	}
	if r.Bootstrapped(ident.Email) {
		// Role-level override only; the org, if any, stays as resolved.
		caller.Role = domain.RoleSuperAdmin
		return caller, nil
	}
	if binding == nil {
		return domain.Caller{}, domain.E(domain.KindPermissionDenied, "no role for account")
	}
	return caller, nil
}

// Target describes the subject of an update/delete/password-reset action.
type Target struct {
	Role          domain.Role
	OrgID         string
	HasProfile    bool
	AccountExists bool
	Email         string
}

// ResolveTarget resolves the effective role and org of the target account.
// Both the profile and the provider account may be absent (a repeated
// delete, for example); absence is reported, not treated as an error, and
// the authorization engine decides what it means for the action at hand.
func (r *Resolver) ResolveTarget(ctx context.Context, uid string) (Target, error) {
	profile, err := r.store.GetProfile(ctx, uid)
	if err != nil {
		return Target{}, fmt.Errorf("load target profile %s: %w", uid, err)
	}

	account, err := r.dir.GetAccount(ctx, uid)
	if err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			return Target{}, fmt.Errorf("load target account %s: %w", uid, err)
		}
		account = nil
	}

	var t Target
	if profile != nil {
		t.HasProfile = true
		t.Role = profile.Role
		t.OrgID = profile.OrgID
		t.Email = profile.Email
	} else if account != nil {
		t.Role = account.Claims.Role
		t.OrgID = account.Claims.OrgID
	}
	if account != nil {
		t.AccountExists = true
		if t.Email == "" {
			t.Email = account.Email
		}
	}

	// The bootstrap check for targets uses the provider-side email, so a
	// bootstrapped superadmin without a profile is still protected from
	// non-superadmin callers.
	if t.Email != "" && r.Bootstrapped(t.Email) {
		t.Role = domain.RoleSuperAdmin
	}
	return t, nil
}

// resolve walks the source chain; first non-nil binding wins.
func (r *Resolver) resolve(ctx context.Context, id string, claims domain.RoleClaims) (*roleBinding, error) {
	sources := []roleSource{
		r.fromProfile(id),
		fromClaims(claims),
	}
	for _, src := range sources {
		b, err := src(ctx)
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
	}
	return nil, nil
}

func (r *Resolver) fromProfile(id string) roleSource {
	return func(ctx context.Context) (*roleBinding, error) {
		p, err := r.store.GetProfile(ctx, id)
		if err != nil || p == nil {
			return nil, err
		}
		return &roleBinding{Role: p.Role, OrgID: p.OrgID}, nil
	}
}

func fromClaims(claims domain.RoleClaims) roleSource {
	return func(context.Context) (*roleBinding, error) {
		if claims.Role == "" {
			return nil, nil
		}
		return &roleBinding{Role: claims.Role, OrgID: claims.OrgID}, nil
	}
}
