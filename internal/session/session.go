// Package session derives the Session Context from stored session data.
//
// The context is an immutable snapshot of the session token and the decoded
// user claims. It is re-derived with [Load] (or [New]) on every auth change and
// passed explicitly to the resume-point resolver, the wizard and the permission
// checks instead of being re-read from storage at arbitrary points.
//
// Key types:
//   - [Claims] - decoded user attributes (role, joinee type, form flags, permissions)
//   - [Context] - token + claims snapshot with capability checks
//
// [IsSpecialUser] is the single definition of the "special user" rule.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"onboard/internal/kvstore"
)

// Role is the user's role as reported by the server.
type Role string

// Known roles.
const (
	RoleAdmin    Role = "ADMIN"
	RoleEditor   Role = "EDITOR"
	RoleEmployee Role = "EMPLOYEE"
)

// JoineeType classifies how an employee joined.
type JoineeType string

// Known joinee types.
const (
	JoineeNew         JoineeType = "NEW"
	JoineeExisting    JoineeType = "EXISTING"
	JoineeExperienced JoineeType = "EXPERIENCED"
)

// Permission names carried in the claims permission list.
const (
	PermViewDirectory   = "directory:view"
	PermManageEmployees = "employees:manage"
	PermEditPolicies    = "policies:edit"
)

// ErrNoSession is returned by [Load] when no token is stored.
var ErrNoSession = errors.New("no active session")

// Claims are the decoded user attributes stored under [kvstore.KeyUserData].
type Claims struct {
	UserID         string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	JoineeType     JoineeType `json:"joineeType"`
	EditRights     bool       `json:"editRights"`
	AllFormsFilled bool       `json:"allFormsFilled"`
	Form1Filled    bool       `json:"form1Filled"`
	Form2Filled    bool       `json:"form2Filled"`
	Form3Filled    bool       `json:"form3Filled"`
	Form4Filled    bool       `json:"form4Filled"`
	Permissions    []string   `json:"permissions"`
}

// FormsFilled returns the per-form flags in wizard order.
func (c Claims) FormsFilled() [4]bool {
	return [4]bool{c.Form1Filled, c.Form2Filled, c.Form3Filled, c.Form4Filled}
}

// Marshal serializes the claims into the blob format stored in the key-value store.
func (c Claims) Marshal() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return string(data), nil
}

// ParseClaims decodes a claims blob.
//
// Decoding is lenient: missing fields take their zero value and a blob may be
// wrapped in a {"user": {...}} envelope as returned by the login endpoint.
// Only syntactically invalid JSON is an error.
func ParseClaims(blob string) (Claims, error) {
	if !gjson.Valid(blob) {
		return Claims{}, fmt.Errorf("invalid claims blob")
	}

	root := gjson.Parse(blob)
	if u := root.Get("user"); u.IsObject() {
		root = u
	}

	c := Claims{
		UserID:         root.Get("id").String(),
		Name:           root.Get("name").String(),
		Email:          root.Get("email").String(),
		Role:           Role(root.Get("role").String()),
		JoineeType:     JoineeType(root.Get("joineeType").String()),
		EditRights:     root.Get("editRights").Bool(),
		AllFormsFilled: root.Get("allFormsFilled").Bool(),
		Form1Filled:    root.Get("form1Filled").Bool(),
		Form2Filled:    root.Get("form2Filled").Bool(),
		Form3Filled:    root.Get("form3Filled").Bool(),
		Form4Filled:    root.Get("form4Filled").Bool(),
	}
	if perms := root.Get("permissions"); perms.IsArray() {
		for _, v := range perms.Array() {
			c.Permissions = append(c.Permissions, v.String())
		}
	}

	return c, nil
}

// IsSpecialUser reports whether the user skips the multi-step wizard.
//
// Privileged roles and "experienced" joinees go through the single-step
// shortcut: the wizard stays on step 0 and a successful submit leads to the
// profile.
func IsSpecialUser(c Claims) bool {
	return c.Role == RoleAdmin || c.JoineeType == JoineeExperienced
}

// Context is an immutable snapshot of the current session.
type Context struct {
	token  string
	claims Claims
}

// New builds a Context from a token and claims.
func New(token string, claims Claims) Context {
	c := claims
	c.Permissions = slices.Clone(claims.Permissions)
	return Context{token: token, claims: c}
}

// Load derives a Context from the key-value store.
//
// Returns [ErrNoSession] if no token is stored. A missing claims blob yields
// empty claims, which the resolver treats as a malformed user.
func Load(store kvstore.KV) (Context, error) {
	token, err := store.Get(kvstore.KeyToken)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Context{}, ErrNoSession
		}
		return Context{}, fmt.Errorf("failed to read session token: %w", err)
	}

	blob, err := store.Get(kvstore.KeyUserData)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return New(token, Claims{}), nil
		}
		return Context{}, fmt.Errorf("failed to read user data: %w", err)
	}

	claims, err := ParseClaims(blob)
	if err != nil {
		return Context{}, err
	}
	return New(token, claims), nil
}

// Token returns the session credential.
func (c Context) Token() string { return c.token }

// Claims returns a copy of the user claims.
func (c Context) Claims() Claims {
	cl := c.claims
	cl.Permissions = slices.Clone(c.claims.Permissions)
	return cl
}

// Authenticated reports whether the context carries a token.
func (c Context) Authenticated() bool { return c.token != "" }

// IsAdmin reports whether the user has the admin role.
func (c Context) IsAdmin() bool { return c.claims.Role == RoleAdmin }

// IsEditor reports whether the user may edit shared content such as policies.
// Admins are editors.
func (c Context) IsEditor() bool {
	return c.claims.Role == RoleEditor || c.IsAdmin() || c.HasPermission(PermEditPolicies)
}

// HasPermission reports whether the claims grant the named permission.
// Admins hold every permission.
func (c Context) HasPermission(p string) bool {
	if c.IsAdmin() {
		return true
	}
	return slices.Contains(c.claims.Permissions, p)
}

// IsSpecialUser applies [IsSpecialUser] to the session's claims.
func (c Context) IsSpecialUser() bool { return IsSpecialUser(c.claims) }
