package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", 0)
}

func TestRequest_ResponsePolicy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantRaw     string
		wantErr     error
		wantCleared bool
	}{
		{name: "ok json", status: 200, body: `{"a":1}`, wantRaw: `{"a":1}`},
		{name: "created", status: 201, body: `[1,2]`, wantRaw: `[1,2]`},
		{name: "empty body", status: 204},
		{name: "whitespace body", status: 200, body: "  \n"},
		{name: "bad request", status: 400, body: `{"error":"x"}`},
		{name: "server error", status: 500, body: `oops`},
		{name: "unauthorized", status: 401, wantErr: ErrUnauthorized, wantCleared: true},
		{name: "forbidden", status: 403, wantErr: ErrUnauthorized, wantCleared: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			var cleared bool
			c.SetUnauthorizedHandler(func() { cleared = true })

			raw, err := c.Request(context.Background(), "/x", Options{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantRaw == "" {
				assert.Nil(t, raw)
			} else {
				assert.JSONEq(t, tt.wantRaw, string(raw))
			}
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}
}

func TestRequest_InvalidJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})
	_, err := c.Request(context.Background(), "/x", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestRequest_SendsMethodBodyAndHeaders(t *testing.T) {
	var got struct {
		method, path, auth, contentType, custom string
		body                                    map[string]any
	}
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		got.custom = r.Header.Get("X-Trace")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.Request(context.Background(), "/employees/me", Options{
		Method:  http.MethodPatch,
		Body:    map[string]any{"k": "v"},
		Token:   "tok",
		Headers: map[string]string{"X-Trace": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/employees/me", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, "abc", got.custom)
	assert.Equal(t, "v", got.body["k"])
}

func TestRequest_DefaultsToGetWithoutAuth(t *testing.T) {
	var method, auth string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		auth = r.Header.Get("Authorization")
	})

	raw, err := c.Request(context.Background(), "/policies", Options{})
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, http.MethodGet, method)
	assert.Empty(t, auth)
}

func TestRequest_NoRetry(t *testing.T) {
	calls := 0
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	raw, err := c.Request(context.Background(), "/x", Options{})
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, 1, calls)
}

func TestRequest_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(url, 0)
	_, err := c.Request(context.Background(), "/x", Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestRequest_CancelledContext(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "/x", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient("http://api.example.com/v1/", 0)
	assert.Equal(t, "http://api.example.com/v1", c.BaseURL())
}

func TestPatchStep_SuccessIndicator(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "success true", status: 200, body: `{"success":true}`, want: true},
		{name: "no success field", status: 200, body: `{"id":"1"}`, want: true},
		{name: "success false", status: 200, body: `{"success":false}`, want: false},
		{name: "empty body", status: 200, want: false},
		{name: "validation failure", status: 422, body: `{"error":"bad"}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPatch, r.Method)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			ok, err := c.PatchStep(context.Background(), "tok", "/employees/me/bank-details", map[string]string{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestLogin_Decoding(t *testing.T) {
	t.Run("token and user", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, PathLogin, r.URL.Path)
			_, _ = io.WriteString(w, `{"token":"t1","user":{"id":"u1","role":"ADMIN"}}`)
		})
		res, err := c.Login(context.Background(), "a@b.c", "pw")
		require.NoError(t, err)
		assert.Equal(t, "t1", res.Token)
		assert.JSONEq(t, `{"id":"u1","role":"ADMIN"}`, string(res.User))
	})

	t.Run("missing user", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"token":"t1"}`)
		})
		_, err := c.Login(context.Background(), "a@b.c", "pw")
		require.Error(t, err)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		_, err := c.Login(context.Background(), "a@b.c", "pw")
		assert.ErrorIs(t, err, ErrNoResponse)
	})
}

func TestListEmployees_QueryParams(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathEmployees, r.URL.Path)
		assert.Equal(t, "ra vi", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = io.WriteString(w, `{"items":[{"id":"1","name":"Ravi"}],"page":2,"totalPages":3,"total":11}`)
	})

	page, err := c.ListEmployees(context.Background(), "tok", "ra vi", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ravi", page.Items[0].Name)
}

func TestPresignUpload_MissingURL(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"key":"k"}`)
	})
	_, err := c.PresignUpload(context.Background(), "tok", "a.pdf", "application/pdf")
	require.Error(t, err)
}
