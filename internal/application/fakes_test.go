package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vn.io.arda/useradmin/internal/application"
	"vn.io.arda/useradmin/internal/domain"
)

// fakeStore is an in-memory domain.ProfileStore.
type fakeStore struct {
	mu          sync.Mutex
	profiles    map[string]*domain.UserProfile
	departments map[string]*domain.Department
	schedules   map[string]string // schedule id -> created_by
	deleteCalls [][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:    make(map[string]*domain.UserProfile),
		departments: make(map[string]*domain.Department),
		schedules:   make(map[string]string),
	}
}

func (s *fakeStore) GetProfile(_ context.Context, id string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) InsertProfile(_ context.Context, p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.profiles[p.ID] = &p
	return nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.E(domain.KindNotFound, "profile %s not found", id)
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.OrgID != nil {
		p.OrgID = *patch.OrgID
	}
	if patch.DepartmentID != nil {
		if *patch.DepartmentID == "" {
			p.DepartmentID = nil
		} else {
			p.DepartmentID = patch.DepartmentID
		}
	}
	p.UpdatedAt = time.Now().Add(time.Millisecond)
	return nil
}

func (s *fakeStore) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}

func (s *fakeStore) GetDepartment(_ context.Context, id string) (*domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (s *fakeStore) ListProfiles(_ context.Context, f domain.ProfileFilter) ([]*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.UserProfile
	for _, p := range s.profiles {
		if f.OrgID != "" && p.OrgID != f.OrgID {
			continue
		}
		if f.DepartmentID != "" && (p.DepartmentID == nil || *p.DepartmentID != f.DepartmentID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) ScheduleIDsByCreator(_ context.Context, uid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, creator := range s.schedules {
		if creator == uid {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) DeleteSchedules(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, ids)
	for _, id := range ids {
		delete(s.schedules, id)
	}
	return nil
}

// fakeDirectory is an in-memory domain.Directory.
type fakeDirectory struct {
	mu         sync.Mutex
	identities map[string]domain.Identity // token -> identity
	accounts   map[string]*domain.Account
	passwords  map[string]string
	nextID     int

	claimsErr error
	createErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		identities: make(map[string]domain.Identity),
		accounts:   make(map[string]*domain.Account),
		passwords:  make(map[string]string),
	}
}

func (d *fakeDirectory) addToken(token string, ident domain.Identity) {
	d.identities[token] = ident
}

func (d *fakeDirectory) addAccount(a domain.Account) {
	d.accounts[a.ID] = &a
}

func (d *fakeDirectory) VerifyToken(_ context.Context, token string) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.identities[token]
	if !ok {
		return nil, domain.E(domain.KindUnauthenticated, "token is expired or revoked")
	}
	return &ident, nil
}

func (d *fakeDirectory) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "account %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (d *fakeDirectory) CreateAccount(_ context.Context, a domain.NewAccount) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return "", d.createErr
	}
	for _, acc := range d.accounts {
		if acc.Email == a.Email {
			return "", domain.E(domain.KindConflict, "account with email %s already exists", a.Email)
		}
	}
	d.nextID++
	id := fmt.Sprintf("uid-%d", d.nextID)
	d.accounts[id] = &domain.Account{ID: id, Email: a.Email}
	d.passwords[id] = a.Password
	return id, nil
}

func (d *fakeDirectory) UpdateAccount(_ context.Context, id string, patch domain.AccountPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return domain.E(domain.KindNotFound, "account %s not found", id)
	}
	if patch.Email != nil {
		a.Email = *patch.Email
	}
	if patch.Password != nil {
		d.passwords[id] = *patch.Password
	}
	return nil
}

func (d *fakeDirectory) DeleteAccount(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[id]; !ok {
		return domain.E(domain.KindNotFound, "account %s not found", id)
	}
	delete(d.accounts, id)
	delete(d.passwords, id)
	return nil
}

func (d *fakeDirectory) SetClaims(_ context.Context, id string, claims domain.RoleClaims) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimsErr != nil {
		return d.claimsErr
	}
	a, ok := d.accounts[id]
	if !ok {
		return domain.E(domain.KindNotFound, "account %s not found", id)
	}
	a.Claims = claims
	return nil
}

// fakeAudit records entries synchronously.
type fakeAudit struct {
	mu      sync.Mutex
	entries []application.AuditEntry
}

func (a *fakeAudit) Record(_ context.Context, e application.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}
