// Package auth runs the login, signup and logout flows.
//
// A successful login stores the token and the claims blob, derives a fresh
// [session.Context] and runs the resume-point resolver, which persists the
// wizard's initial step index. Logout, and any 401/403 from the API, clear
// the whole store.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"onboard/internal/api"
	"onboard/internal/kvstore"
	"onboard/internal/output"
	"onboard/internal/router"
	"onboard/internal/session"
)

// Sentinel errors for authentication flows.
var (
	// ErrLoginFailed is returned when the server does not accept the credentials.
	ErrLoginFailed = errors.New("login failed: check your email and password")

	// ErrInvalidInput is returned when signup or login input is malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// MinPasswordLength is the minimum signup password length.
const MinPasswordLength = 8

// API is the server surface used by the auth flows.
type API interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Signup(ctx context.Context, req api.SignupRequest) (string, error)
	Me(ctx context.Context, token string) (json.RawMessage, error)
}

// Service runs the authentication flows against the store.
type Service struct {
	api    API
	store  kvstore.KV
	router *router.Router
}

// NewService creates a Service using the default router.
func NewService(a API, store kvstore.KV) *Service {
	return &Service{api: a, store: store, router: router.NewRouter()}
}

// SetRouter configures a custom resume-point router.
func (s *Service) SetRouter(r *router.Router) {
	s.router = r
}

// Login authenticates, persists the session and resolves the landing point.
func (s *Service) Login(ctx context.Context, email, password string) (session.Context, router.Decision, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Context{}, router.Decision{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrNoResponse) || errors.Is(err, api.ErrUnauthorized) {
			return session.Context{}, router.Decision{}, ErrLoginFailed
		}
		return session.Context{}, router.Decision{}, err
	}

	claims, err := session.ParseClaims(string(res.User))
	if err != nil {
		return session.Context{}, router.Decision{}, err
	}

	if err := s.store.Set(kvstore.KeyToken, res.Token); err != nil {
		return session.Context{}, router.Decision{}, fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.store.Set(kvstore.KeyUserData, string(res.User)); err != nil {
		return session.Context{}, router.Decision{}, fmt.Errorf("failed to store user data: %w", err)
	}

	if _, err := s.router.ResolveStrict(claims); errors.Is(err, router.ErrInconsistentClaims) {
		output.Debugf("auth: %v for user %s", err, claims.UserID)
	}

	decision, err := s.router.Apply(s.store, claims)
	if err != nil {
		return session.Context{}, router.Decision{}, err
	}

	output.Debugf("auth: %s logged in as %s, routing to %s", claims.UserID, claims.Role, decision.Route)
	return session.New(res.Token, claims), decision, nil
}

// Signup registers a new account and returns its identifier. It does not
// log the user in.
func (s *Service) Signup(ctx context.Context, req api.SignupRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(req.Password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	return s.api.Signup(ctx, req)
}

// Current derives the session context from the store.
func (s *Service) Current() (session.Context, error) {
	return session.Load(s.store)
}

// Refresh re-fetches the claims from the server, stores them and returns the
// new session context. Profile edits and admin actions change the claims, so
// callers refresh after them.
func (s *Service) Refresh(ctx context.Context) (session.Context, error) {
	cur, err := s.Current()
	if err != nil {
		return session.Context{}, err
	}

	raw, err := s.api.Me(ctx, cur.Token())
	if err != nil {
		return session.Context{}, err
	}
	claims, err := session.ParseClaims(string(raw))
	if err != nil {
		return session.Context{}, err
	}
	if err := s.store.Set(kvstore.KeyUserData, string(raw)); err != nil {
		return session.Context{}, fmt.Errorf("failed to store user data: %w", err)
	}
	return session.New(cur.Token(), claims), nil
}

// Logout clears the whole store.
func (s *Service) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// HandleUnauthorized is installed as the API client's unauthorized handler.
// It forces a logout; failures are only logged because the caller is
// already on an error path.
func (s *Service) HandleUnauthorized() {
	if err := s.Logout(); err != nil {
		output.Debugf("auth: forced logout failed: %v", err)
	}
}
