// Package directory provides the employee directory: paged search for anyone
// allowed to view it, and the admin lifecycle actions (edit rights,
// activation, joinee type).
package directory

import (
	"context"
	"errors"
	"fmt"

	"onboard/internal/api"
	"onboard/internal/output"
	"onboard/internal/session"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 20

// maxPages bounds [Directory.All] against a server that never reports the
// last page.
const maxPages = 1000

// Sentinel errors for directory operations.
var (
	// ErrForbidden is returned when the session lacks the permission for an action.
	ErrForbidden = errors.New("not permitted")

	// ErrUpdateRejected is returned when the server did not accept an admin update.
	ErrUpdateRejected = errors.New("update rejected by server")

	// ErrInvalidJoineeType is returned for joinee types other than NEW, EXISTING or EXPERIENCED.
	ErrInvalidJoineeType = errors.New("invalid joinee type")
)

// API is the server surface used by the directory.
type API interface {
	ListEmployees(ctx context.Context, token, query string, page, pageSize int) (*api.EmployeePage, error)
	UpdateEmployee(ctx context.Context, token, id string, fields map[string]any) (bool, error)
}

// Page is one page of search results.
type Page struct {
	Items      []api.Employee
	Page       int
	TotalPages int
	Total      int
}

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// Directory runs directory queries on behalf of one session.
type Directory struct {
	api      API
	sess     session.Context
	pageSize int
}

// New creates a Directory. A non-positive pageSize uses [DefaultPageSize].
func New(a API, sess session.Context, pageSize int) *Directory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Directory{api: a, sess: sess, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (d *Directory) PageSize() int { return d.pageSize }

func (d *Directory) canView() bool {
	return d.sess.IsAdmin() || d.sess.HasPermission(session.PermViewDirectory)
}

func (d *Directory) canManage() bool {
	return d.sess.IsAdmin() || d.sess.HasPermission(session.PermManageEmployees)
}

// Search returns one page of employees matching query. Pages start at 1;
// lower values are clamped.
func (d *Directory) Search(ctx context.Context, query string, page int) (Page, error) {
	if !d.canView() {
		return Page{}, fmt.Errorf("view directory: %w", ErrForbidden)
	}
	if page < 1 {
		page = 1
	}

	res, err := d.api.ListEmployees(ctx, d.sess.Token(), query, page, d.pageSize)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      res.Items,
		Page:       res.Page,
		TotalPages: res.TotalPages,
		Total:      res.Total,
	}, nil
}

// All walks every page of the listing for query.
func (d *Directory) All(ctx context.Context, query string) ([]api.Employee, error) {
	var all []api.Employee
	for page := 1; page <= maxPages; page++ {
		p, err := d.Search(ctx, query, page)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if !p.HasNext() || len(p.Items) == 0 {
			return all, nil
		}
	}
	return all, nil
}

// SetEditRights grants or revokes an employee's ability to edit their profile.
func (d *Directory) SetEditRights(ctx context.Context, id string, allowed bool) error {
	return d.update(ctx, id, map[string]any{"editRights": allowed})
}

// SetActive deactivates or reactivates an employee account.
func (d *Directory) SetActive(ctx context.Context, id string, active bool) error {
	return d.update(ctx, id, map[string]any{"active": active})
}

// SetJoineeType changes how an employee is classified for onboarding.
func (d *Directory) SetJoineeType(ctx context.Context, id string, jt session.JoineeType) error {
	switch jt {
	case session.JoineeNew, session.JoineeExisting, session.JoineeExperienced:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidJoineeType, jt)
	}
	return d.update(ctx, id, map[string]any{"joineeType": string(jt)})
}

func (d *Directory) update(ctx context.Context, id string, fields map[string]any) error {
	if !d.canManage() {
		return fmt.Errorf("manage employees: %w", ErrForbidden)
	}
	if id == "" {
		return fmt.Errorf("employee id is required")
	}

	ok, err := d.api.UpdateEmployee(ctx, d.sess.Token(), id, fields)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUpdateRejected
	}
	output.Debugf("directory: updated %s with %v", id, fields)
	return nil
}
