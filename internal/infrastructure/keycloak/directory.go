package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vn.io.arda/useradmin/internal/domain"
)

// Claim attribute names on the provider account.
const (
	attrRole = "role"
	attrOrg  = "org_id"
)

// Directory implements domain.Directory by calling the Keycloak Admin REST
// API. Token verification goes through the introspection endpoint so that
// revoked sessions are caught, not just expired signatures.
type Directory struct {
	baseURL      string // e.g. "http://keycloak:8080"
	realm        string // realm holding the scheduling users
	adminRealm   string // realm used for admin login, usually "master"
	clientID     string
	clientSecret string

	httpClient *http.Client

	// Admin access tokens are short-lived; cache one until shortly before
	// it expires instead of fetching per call.
	mu          sync.Mutex
	adminTok    string
	adminTokExp time.Time
}

// New creates a Directory with a bounded per-call timeout.
func New(baseURL, realm, adminRealm, clientID, clientSecret string) *Directory {
	return &Directory{
		baseURL:      baseURL,
		realm:        realm,
		adminRealm:   adminRealm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// keycloakUser is the provider's user representation, reduced to the
// fields this service reads and writes.
type keycloakUser struct {
	ID         string              `json:"id,omitempty"`
	Username   string              `json:"username,omitempty"`
	Email      string              `json:"email,omitempty"`
	FirstName  string              `json:"firstName,omitempty"`
	Enabled    *bool               `json:"enabled,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// VerifyToken introspects the bearer credential and returns the caller
// identity with any cached role/org claims.
func (d *Directory) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", d.baseURL, d.realm)

	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", d.clientID)
	form.Set("client_secret", d.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak introspect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keycloak introspect: status %d", resp.StatusCode)
	}

	var body struct {
		Active bool   `json:"active"`
		Sub    string `json:"sub"`
		Email  string `json:"email"`
		Role   string `json:"role"`
		OrgID  string `json:"org_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.Active || body.Sub == "" {
		return nil, domain.E(domain.KindUnauthenticated, "token is expired or revoked")
	}

	ident := &domain.Identity{ID: body.Sub, Email: body.Email}
	if role, ok := domain.ParseRole(body.Role); ok {
		ident.Claims = domain.RoleClaims{Role: role, OrgID: body.OrgID}
	}
	return ident, nil
}

// GetAccount fetches a provider account by id.
func (d *Directory) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var u keycloakUser
	status, err := d.adminJSON(ctx, http.MethodGet, d.userURL(id), nil, &u)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.E(domain.KindNotFound, "account %s not found", id)
	default:
		return nil, fmt.Errorf("keycloak get user: status %d", status)
	}

	acc := &domain.Account{ID: u.ID, Email: u.Email}
	if role, ok := domain.ParseRole(firstAttr(u.Attributes, attrRole)); ok {
		acc.Claims = domain.RoleClaims{Role: role, OrgID: firstAttr(u.Attributes, attrOrg)}
	}
	return acc, nil
}

// CreateAccount creates a provider account and sets its initial password.
func (d *Directory) CreateAccount(ctx context.Context, a domain.NewAccount) (string, error) {
	enabled := true
	payload := keycloakUser{
		Username:  a.Email,
		Email:     a.Email,
		FirstName: a.FullName,
		Enabled:   &enabled,
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users", d.baseURL, d.realm)
	resp, err := d.adminDo(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", domain.E(domain.KindConflict, "account with email %s already exists", a.Email)
	default:
		return "", fmt.Errorf("keycloak create user: status %d", resp.StatusCode)
	}

	// Keycloak returns the new id only in the Location header.
	loc := resp.Header.Get("Location")
	id := loc[strings.LastIndex(loc, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("keycloak create user: missing Location header")
	}

	if err := d.setPassword(ctx, id, a.Password); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateAccount applies a partial update; password changes go through the
// dedicated reset endpoint.
func (d *Directory) UpdateAccount(ctx context.Context, id string, patch domain.AccountPatch) error {
	if patch.Email != nil || patch.FullName != nil {
		var payload keycloakUser
		if patch.Email != nil {
			payload.Username = *patch.Email
			payload.Email = *patch.Email
		}
		if patch.FullName != nil {
			payload.FirstName = *patch.FullName
		}
		status, err := d.adminJSON(ctx, http.MethodPut, d.userURL(id), payload, nil)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK, http.StatusNoContent:
		case http.StatusNotFound:
			return domain.E(domain.KindNotFound, "account %s not found", id)
		default:
			return fmt.Errorf("keycloak update user: status %d", status)
		}
	}

	if patch.Password != nil {
		return d.setPassword(ctx, id, *patch.Password)
	}
	return nil
}

// DeleteAccount removes a provider account.
func (d *Directory) DeleteAccount(ctx context.Context, id string) error {
	status, err := d.adminJSON(ctx, http.MethodDelete, d.userURL(id), nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return domain.E(domain.KindNotFound, "account %s not found", id)
	default:
		return fmt.Errorf("keycloak delete user: status %d", status)
	}
}

// SetClaims writes the denormalized role/org attributes onto the account.
func (d *Directory) SetClaims(ctx context.Context, id string, claims domain.RoleClaims) error {
	payload := keycloakUser{Attributes: map[string][]string{
		attrRole: {string(claims.Role)},
		attrOrg:  {claims.OrgID},
	}}
	status, err := d.adminJSON(ctx, http.MethodPut, d.userURL(id), payload, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return domain.E(domain.KindNotFound, "account %s not found", id)
	default:
		return fmt.Errorf("keycloak set attributes: status %d", status)
	}
}

// --- internal helpers ---

func (d *Directory) userURL(id string) string {
	return fmt.Sprintf("%s/admin/realms/%s/users/%s", d.baseURL, d.realm, url.PathEscape(id))
}

// setPassword sets a permanent credential on the account. Keycloak rejects
// passwords failing the realm policy with 400.
func (d *Directory) setPassword(ctx context.Context, id, password string) error {
	payload := map[string]any{
		"type":      "password",
		"value":     password,
		"temporary": false,
	}
	endpoint := d.userURL(id) + "/reset-password"
	status, err := d.adminJSON(ctx, http.MethodPut, endpoint, payload, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		return domain.E(domain.KindInvalidArgument, "password rejected by provider policy")
	case http.StatusNotFound:
		return domain.E(domain.KindNotFound, "account %s not found", id)
	default:
		return fmt.Errorf("keycloak set password: status %d", status)
	}
}

// adminToken fetches (or reuses) a short-lived admin access token.
func (d *Directory) adminToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.adminTok != "" && time.Now().Before(d.adminTokExp) {
		return d.adminTok, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", d.baseURL, d.adminRealm)
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", d.clientID)
	form.Set("client_secret", d.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak admin token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keycloak admin token: status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("keycloak returned empty access_token")
	}

	d.adminTok = tok.AccessToken
	d.adminTokExp = time.Now().Add(time.Duration(tok.ExpiresIn-10) * time.Second)
	return d.adminTok, nil
}

// adminDo issues an authenticated admin API request and returns the raw
// response for callers that need headers.
func (d *Directory) adminDo(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	token, err := d.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

// adminJSON issues an admin API request, optionally decoding the response
// body into out, and returns the status code.
func (d *Directory) adminJSON(ctx context.Context, method, endpoint string, payload, out any) (int, error) {
	resp, err := d.adminDo(ctx, method, endpoint, payload)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func firstAttr(attrs map[string][]string, key string) string {
	if vals, ok := attrs[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}
