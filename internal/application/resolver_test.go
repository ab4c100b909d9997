package application_test

import (
	"context"
	"testing"

	"vn.io.arda/useradmin/internal/application"
	"vn.io.arda/useradmin/internal/domain"
)

func TestResolveCaller_ProfileWinsOverClaims(t *testing.T) {
	store := newFakeStore()
	dir := newFakeDirectory()
	store.profiles["u1"] = &domain.UserProfile{ID: "u1", Email: "a@x.com", Role: domain.RoleAdmin, OrgID: "org1"}

	r := application.NewResolver(store, dir, nil)
	caller, err := r.ResolveCaller(context.Background(), domain.Identity{
		ID:    "u1",
		Email: "a@x.com",
		// Stale cached claims must lose to the stored profile.
		Claims: domain.RoleClaims{Role: domain.RoleMember, OrgID: "org9"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if caller.Role != domain.RoleAdmin || caller.OrgID != "org1" {
		t.Fatalf("got role=%s org=%s, want admin/org1", caller.Role, caller.OrgID)
	}
}

func TestResolveCaller_ClaimsWhenNoProfile(t *testing.T) {
	r := application.NewResolver(newFakeStore(), newFakeDirectory(), nil)
	caller, err := r.ResolveCaller(context.Background(), domain.Identity{
		ID:     "u1",
		Email:  "a@x.com",
		Claims: domain.RoleClaims{Role: domain.RoleAdmin, OrgID: "org2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if caller.Role != domain.RoleAdmin || caller.OrgID != "org2" {
		t.Fatalf("got role=%s org=%s, want admin/org2", caller.Role, caller.OrgID)
	}
}

func TestResolveCaller_BootstrapWithoutProfile(t *testing.T) {
	r := application.NewResolver(newFakeStore(), newFakeDirectory(), []string{"Root@X.com"})
	caller, err := r.ResolveCaller(context.Background(), domain.Identity{ID: "u1", Email: "root@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if caller.Role != domain.RoleSuperAdmin {
		t.Fatalf("got role=%s, want superadmin", caller.Role)
	}
	if caller.OrgID != "" {
		t.Fatalf("got org=%s, want empty", caller.OrgID)
	}
}

func TestResolveCaller_BootstrapOverridesRoleKeepsOrg(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &domain.UserProfile{ID: "u1", Email: "root@x.com", Role: domain.RoleMember, OrgID: "org1"}

	r := application.NewResolver(store, newFakeDirectory(), []string{"root@x.com"})
	caller, err := r.ResolveCaller(context.Background(), domain.Identity{ID: "u1", Email: "root@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if caller.Role != domain.RoleSuperAdmin {
		t.Fatalf("got role=%s, want superadmin", caller.Role)
	}
	if caller.OrgID != "org1" {
		t.Fatalf("got org=%s, want org1 from profile", caller.OrgID)
	}
}

func TestResolveCaller_NoRoleAnywhere(t *testing.T) {
	r := application.NewResolver(newFakeStore(), newFakeDirectory(), nil)
	_, err := r.ResolveCaller(context.Background(), domain.Identity{ID: "u1", Email: "a@x.com"})
	if domain.KindOf(err) != domain.KindPermissionDenied {
		t.Fatalf("got %v, want permission denied", err)
	}
}

func TestResolveTarget_ProfileAuthoritative(t *testing.T) {
	store := newFakeStore()
	dir := newFakeDirectory()
	store.profiles["t1"] = &domain.UserProfile{ID: "t1", Email: "t@x.com", Role: domain.RoleAdmin, OrgID: "org1"}
	dir.addAccount(domain.Account{ID: "t1", Email: "t@x.com", Claims: domain.RoleClaims{Role: domain.RoleMember, OrgID: "org9"}})

	r := application.NewResolver(store, dir, nil)
	target, err := r.ResolveTarget(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !target.HasProfile || target.Role != domain.RoleAdmin || target.OrgID != "org1" {
		t.Fatalf("got %+v, want profile-backed admin/org1", target)
	}
}

func TestResolveTarget_BootstrapUsesProviderEmail(t *testing.T) {
	// A bootstrapped superadmin with no profile: the target's effective
	// role must still come out as superadmin so the engine protects it.
	dir := newFakeDirectory()
	dir.addAccount(domain.Account{ID: "t1", Email: "root@x.com"})

	r := application.NewResolver(newFakeStore(), dir, []string{"root@x.com"})
	target, err := r.ResolveTarget(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if target.HasProfile {
		t.Fatal("target should have no profile")
	}
	if target.Role != domain.RoleSuperAdmin {
		t.Fatalf("got role=%s, want superadmin via bootstrap", target.Role)
	}
}

func TestResolveTarget_NothingExists(t *testing.T) {
	r := application.NewResolver(newFakeStore(), newFakeDirectory(), nil)
	target, err := r.ResolveTarget(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if target.HasProfile || target.AccountExists || target.Role != "" {
		t.Fatalf("got %+v, want empty target", target)
	}
}
