package domain

import "context"

// ProfileStore defines the port for profile, department and schedule
// persistence. Implementation lives in infrastructure/postgres.
type ProfileStore interface {
	// GetProfile fetches a profile by account id. Returns (nil, nil) when
	// no profile exists; absence is a policy question, not an error.
	GetProfile(ctx context.Context, id string) (*UserProfile, error)

	// InsertProfile stores a freshly created profile. CreatedAt/UpdatedAt
	// are assigned by the store.
	InsertProfile(ctx context.Context, p UserProfile) error

	// UpdateProfile merge-updates only the supplied fields plus UpdatedAt.
	// Returns a not-found Error when no profile exists for id.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error

	// DeleteProfile removes a profile. Idempotent: a missing profile is
	// not an error.
	DeleteProfile(ctx context.Context, id string) error

	// GetDepartment fetches a department by id. Returns (nil, nil) when absent.
	GetDepartment(ctx context.Context, id string) (*Department, error)

	// ListProfiles returns profiles matching the filter.
	ListProfiles(ctx context.Context, f ProfileFilter) ([]*UserProfile, error)

	// ScheduleIDsByCreator returns the ids of all schedules created by uid.
	ScheduleIDsByCreator(ctx context.Context, uid string) ([]string, error)

	// DeleteSchedules removes the given schedules in bounded batches,
	// committing batches concurrently.
	DeleteSchedules(ctx context.Context, ids []string) error
}

// Identity is a verified caller identity produced by token verification.
type Identity struct {
	ID     string
	Email  string
	Claims RoleClaims
}

// RoleClaims are the denormalized role/org attributes cached on the
// provider account. Zero values mean the claim is absent.
type RoleClaims struct {
	Role  Role
	OrgID string
}

// Account is the provider-side view of a user account.
type Account struct {
	ID     string
	Email  string
	Claims RoleClaims
}

// NewAccount is the input for provider account creation.
type NewAccount struct {
	Email    string
	Password string
	FullName string
}

// AccountPatch carries a partial provider account update. Nil means untouched.
type AccountPatch struct {
	Email    *string
	FullName *string
	Password *string
}

// Directory defines the port for the external identity provider.
// Implementation lives in infrastructure/keycloak.
type Directory interface {
	// VerifyToken verifies a bearer credential and returns the caller
	// identity. Fails with an unauthenticated Error for expired, malformed
	// or revoked tokens.
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// GetAccount fetches a provider account by id. Fails with a not-found
	// Error when the account does not exist.
	GetAccount(ctx context.Context, id string) (*Account, error)

	// CreateAccount creates a provider account and returns its id.
	// Fails with a conflict Error when the email is taken and an
	// invalid-argument Error when the password fails provider policy.
	CreateAccount(ctx context.Context, a NewAccount) (string, error)

	// UpdateAccount applies a partial update to a provider account.
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) error

	// DeleteAccount removes a provider account. Fails with a not-found
	// Error when the account does not exist.
	DeleteAccount(ctx context.Context, id string) error

	// SetClaims writes the denormalized role/org claims onto the account.
	SetClaims(ctx context.Context, id string, claims RoleClaims) error
}
