// Package router resolves where a user lands after authentication.
//
// The resolver maps the user's role, joinee type, edit rights and per-form
// completion flags to a single [Decision]: the screen to open and the wizard
// step index to resume from. It is the central decision point run once after
// login; the wizard then reads the persisted step index on mount.
//
// Routing can use the default four-form layout ([NewRouter]) or a step
// manifest ([NewRouterFromManifest]) that names the form routes.
//
// Key types:
//   - [Router] - configurable resolver
//   - [Decision] - route + step index
//
// Package-level functions [Resolve] and [Apply] use the default router.
package router

import (
	"errors"
	"fmt"
	"strconv"

	"onboard/internal/kvstore"
	"onboard/internal/manifest"
	"onboard/internal/progress"
	"onboard/internal/session"
)

// Route names a post-login destination.
type Route string

// Known routes.
const (
	RouteDashboard Route = "dashboard"
	RouteProfile   Route = "profile"
	RouteForm1     Route = "form1"
	RouteForm2     Route = "form2"
	RouteForm3     Route = "form3"
	RouteForm4     Route = "form4"
)

// IsForm reports whether the route opens the onboarding wizard.
func (r Route) IsForm() bool {
	switch r {
	case RouteDashboard, RouteProfile, "":
		return false
	}
	return true
}

// ErrInconsistentClaims is returned by [Router.ResolveStrict] when a new
// joinee reports every form filled while allFormsFilled is false. The
// decision returned alongside it is still the safe Profile default.
var ErrInconsistentClaims = errors.New("claims report all forms filled but allFormsFilled is false")

// Decision is the computed landing point for a user.
type Decision struct {
	Route     Route
	StepIndex int
}

// Router resolves claims to a [Decision].
type Router struct {
	// forms holds the wizard routes in step order.
	forms []Route
}

// NewRouter creates a [Router] for the default form1..form4 layout.
func NewRouter() *Router {
	return &Router{
		forms: []Route{RouteForm1, RouteForm2, RouteForm3, RouteForm4},
	}
}

// NewRouterFromManifest creates a [Router] whose form routes follow the
// manifest's step order. Entries without a route fall back to formN.
func NewRouterFromManifest(m *manifest.Manifest) *Router {
	r := &Router{}
	for i, e := range m.Entries {
		route := Route(e.Route)
		if route == "" {
			route = Route("form" + strconv.Itoa(i+1))
		}
		r.forms = append(r.forms, route)
	}
	return r
}

// Forms returns the wizard routes in step order.
func (r *Router) Forms() []Route {
	out := make([]Route, len(r.forms))
	copy(out, r.forms)
	return out
}

// Resolve computes the landing point for the given claims.
//
// Rules are evaluated top to bottom and the first match wins:
//   - ADMIN -> Dashboard
//   - EMPLOYEE, NEW: no edit rights or all forms filled -> Profile;
//     otherwise the first unfilled form
//   - EMPLOYEE, EXISTING: no edit rights, all forms filled or form1 filled
//     -> Profile; otherwise Form1
//   - anything else, including a missing role -> Profile
func (r *Router) Resolve(c session.Claims) Decision {
	d, _ := r.ResolveStrict(c)
	return d
}

// ResolveStrict is [Router.Resolve] that also reports
// [ErrInconsistentClaims] for the contradictory new-joinee case.
func (r *Router) ResolveStrict(c session.Claims) (Decision, error) {
	profile := Decision{Route: RouteProfile}

	switch {
	case c.Role == session.RoleAdmin:
		return Decision{Route: RouteDashboard}, nil

	case c.Role == session.RoleEmployee && c.JoineeType == session.JoineeNew:
		if !c.EditRights || c.AllFormsFilled {
			return profile, nil
		}
		filled := c.FormsFilled()
		for i, route := range r.forms {
			if i >= len(filled) || !filled[i] {
				return Decision{Route: route, StepIndex: i}, nil
			}
		}
		return profile, ErrInconsistentClaims

	case c.Role == session.RoleEmployee && c.JoineeType == session.JoineeExisting:
		if !c.EditRights || c.AllFormsFilled || c.Form1Filled {
			return profile, nil
		}
		return Decision{Route: r.forms[0], StepIndex: 0}, nil
	}

	return profile, nil
}

// Apply resolves the claims and writes the step index into the store as
// the wizard resume point before returning the decision.
func (r *Router) Apply(store kvstore.KV, c session.Claims) (Decision, error) {
	d := r.Resolve(c)
	if err := progress.NewWriter(store).SetActiveStep(d.StepIndex); err != nil {
		return d, fmt.Errorf("failed to persist resume point: %w", err)
	}
	return d, nil
}

// defaultRouter is the package-level router.
var defaultRouter = NewRouter()

// Resolve computes the landing point using the default router.
func Resolve(c session.Claims) Decision {
	return defaultRouter.Resolve(c)
}

// Apply resolves with the default router and persists the step index.
func Apply(store kvstore.KV, c session.Claims) (Decision, error) {
	return defaultRouter.Apply(store, c)
}
