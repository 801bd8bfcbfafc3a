package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// Endpoint paths relative to the API base URL.
const (
	PathLogin         = "/auth/login"
	PathSignup        = "/auth/signup"
	PathMe            = "/employees/me"
	PathEmployees     = "/employees"
	PathPresignUpload = "/uploads/presign"
	PathPolicies      = "/policies"
)

// ErrNoResponse is returned by typed calls when the server answered with a
// non-2xx status other than 401/403, or with an empty body where data was
// required.
var ErrNoResponse = errors.New("request failed")

// Login exchanges credentials for a token and the user claims.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	raw, err := c.Request(ctx, PathLogin, Options{
		Method: http.MethodPost,
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("login: %w", ErrNoResponse)
	}

	res := gjson.ParseBytes(raw)
	token := res.Get("token").String()
	user := res.Get("user")
	if token == "" || !user.IsObject() {
		return nil, fmt.Errorf("login: response missing token or user")
	}
	return &LoginResult{Token: token, User: json.RawMessage(user.Raw)}, nil
}

// Signup registers a new account. Returns the new user identifier.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	raw, err := c.Request(ctx, PathSignup, Options{Method: http.MethodPost, Body: req})
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", fmt.Errorf("signup: %w", ErrNoResponse)
	}
	return gjson.GetBytes(raw, "id").String(), nil
}

// Me fetches the authenticated user's current claims.
func (c *Client) Me(ctx context.Context, token string) (json.RawMessage, error) {
	raw, err := c.Request(ctx, PathMe, Options{Token: token})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("me: %w", ErrNoResponse)
	}
	return raw, nil
}

// PatchStep upserts one wizard step's payload at endpoint.
//
// The result is the step's success indicator: true when the server returned
// a body that does not carry "success": false. Non-2xx responses yield false.
func (c *Client) PatchStep(ctx context.Context, token, endpoint string, payload any) (bool, error) {
	raw, err := c.Request(ctx, endpoint, Options{
		Method: http.MethodPatch,
		Body:   payload,
		Token:  token,
	})
	if err != nil {
		return false, err
	}
	return succeeded(raw), nil
}

// PresignUpload requests a presigned PUT URL for a document.
func (c *Client) PresignUpload(ctx context.Context, token, filename, contentType string) (*PresignResult, error) {
	raw, err := c.Request(ctx, PathPresignUpload, Options{
		Method: http.MethodPost,
		Token:  token,
		Body:   map[string]string{"filename": filename, "contentType": contentType},
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("presign: %w", ErrNoResponse)
	}

	var res PresignResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	if res.UploadURL == "" {
		return nil, fmt.Errorf("presign: response missing upload URL")
	}
	return &res, nil
}

// ListEmployees fetches one page of the directory, optionally filtered by query.
func (c *Client) ListEmployees(ctx context.Context, token, query string, page, pageSize int) (*EmployeePage, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	raw, err := c.Request(ctx, PathEmployees+"?"+q.Encode(), Options{Token: token})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("list employees: %w", ErrNoResponse)
	}

	var res EmployeePage
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return &res, nil
}

// UpdateEmployee patches fields of an employee record (admin only).
func (c *Client) UpdateEmployee(ctx context.Context, token, id string, fields map[string]any) (bool, error) {
	raw, err := c.Request(ctx, PathEmployees+"/"+url.PathEscape(id), Options{
		Method: http.MethodPatch,
		Token:  token,
		Body:   fields,
	})
	if err != nil {
		return false, err
	}
	return succeeded(raw), nil
}

// Policies lists the policy documents.
func (c *Client) Policies(ctx context.Context, token string) ([]Policy, error) {
	raw, err := c.Request(ctx, PathPolicies, Options{Token: token})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("policies: %w", ErrNoResponse)
	}

	var res []Policy
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("policies: %w", err)
	}
	return res, nil
}

func succeeded(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	s := gjson.GetBytes(raw, "success")
	return !s.Exists() || s.Bool()
}
