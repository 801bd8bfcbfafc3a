// Package devapi is an in-memory implementation of the HR REST API.
//
// It serves the endpoints the client consumes (auth, profile, wizard step
// upserts, presigned uploads, directory, admin updates and policies) so the
// CLI can run end to end without a backend, and so tests can exercise the
// real HTTP client. State lives in memory and is lost on exit.
package devapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"onboard/internal/api"
	"onboard/internal/output"
	"onboard/internal/session"
	"onboard/internal/upload"
)

// stepForms maps wizard step endpoints to their form number.
var stepForms = map[string]int{
	"personal-details": 1,
	"documents":        2,
	"bank-details":     3,
	"agreement":        4,
}

type account struct {
	api.Employee
	passwordHash []byte
	forms        [4]bool
	permissions  []string
	// steps holds the last submitted payload per step endpoint; drafts
	// holds the last draft.
	steps  map[string]json.RawMessage
	drafts map[string]json.RawMessage
}

func (a *account) claims() session.Claims {
	all := a.forms[0] && a.forms[1] && a.forms[2] && a.forms[3]
	return session.Claims{
		UserID:         a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Role:           session.Role(a.Role),
		JoineeType:     session.JoineeType(a.JoineeType),
		EditRights:     a.EditRights,
		AllFormsFilled: all,
		Form1Filled:    a.forms[0],
		Form2Filled:    a.forms[1],
		Form3Filled:    a.forms[2],
		Form4Filled:    a.forms[3],
		Permissions:    a.permissions,
	}
}

// Server is the in-memory API.
type Server struct {
	mu       sync.RWMutex
	accounts map[string]*account // by id
	byEmail  map[string]string   // email -> id
	tokens   map[string]string   // token -> id
	objects  map[string][]byte
	policies []api.Policy

	hashCost int
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithHashCost sets the bcrypt cost used for password hashes. Tests use
// bcrypt.MinCost to keep seeding fast.
func WithHashCost(cost int) Option {
	return func(s *Server) { s.hashCost = cost }
}

// New creates a Server populated from seed.
func New(seed Seed, opts ...Option) (*Server, error) {
	s := &Server{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		tokens:   make(map[string]string),
		objects:  make(map[string][]byte),
		hashCost: bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}

	for _, u := range seed.Users {
		if _, err := s.addUser(u); err != nil {
			return nil, err
		}
	}
	for _, p := range seed.Policies {
		s.policies = append(s.policies, api.Policy{ID: uuid.NewString(), Title: p.Title, URL: p.URL})
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) addUser(u SeedUser) (*account, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		return nil, fmt.Errorf("seed user %q has no email", u.Name)
	}
	if _, dup := s.byEmail[email]; dup {
		return nil, fmt.Errorf("duplicate user email %q", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := &account{
		Employee: api.Employee{
			ID:          "u-" + uuid.NewString(),
			Name:        u.Name,
			Email:       email,
			Department:  u.Department,
			Designation: u.Designation,
			Phone:       u.Phone,
			DOB:         u.DOB,
			JoiningDate: u.JoiningDate,
			Role:        defaultString(u.Role, string(session.RoleEmployee)),
			JoineeType:  defaultString(u.JoineeType, string(session.JoineeNew)),
			EditRights:  u.EditRights,
			Active:      !u.Inactive,
		},
		passwordHash: hash,
		permissions:  append([]string(nil), u.Permissions...),
		steps:        make(map[string]json.RawMessage),
		drafts:       make(map[string]json.RawMessage),
	}
	copy(a.forms[:], u.FormsFilled)

	s.accounts[a.ID] = a
	s.byEmail[email] = a.ID
	return a, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc(api.PathLogin, s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(api.PathSignup, s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/objects/{key:.+}", s.handlePutObject).Methods(http.MethodPut)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc(api.PathMe, s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc(api.PathMe+"/{step}", s.handleStep).Methods(http.MethodPatch)
	authed.HandleFunc(api.PathPresignUpload, s.handlePresign).Methods(http.MethodPost)
	authed.HandleFunc(api.PathEmployees, s.handleListEmployees).Methods(http.MethodGet)
	authed.HandleFunc(api.PathEmployees+"/{id}", s.handleUpdateEmployee).Methods(http.MethodPatch)
	authed.HandleFunc(api.PathPolicies, s.handlePolicies).Methods(http.MethodGet)
	return r
}

type ctxKey struct{}

// requireToken resolves the bearer token to an active account.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.RLock()
		id, ok := s.tokens[token]
		var acct *account
		if ok {
			acct = s.accounts[id]
		}
		s.mu.RUnlock()

		if acct == nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if !acct.Active {
			writeError(w, http.StatusForbidden, "account is deactivated")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), id)))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	acct := s.accounts[id]
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	if !acct.Active {
		writeError(w, http.StatusBadRequest, "account is deactivated")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = id
	output.Debugf("devapi: login %s", acct.Email)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.claims()})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.addUser(SeedUser{
		Name: req.Name, Email: req.Email, Password: req.Password,
		Role: string(session.RoleEmployee), JoineeType: string(session.JoineeNew), EditRights: true,
		Permissions: []string{session.PermViewDirectory},
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": acct.ID})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.accounts[accountID(r.Context())].claims())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	step := mux.Vars(r)["step"]
	form, ok := stepForms[step]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown step")
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var envelope struct {
		Draft bool            `json:"draft"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || body[0] != '{' {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[accountID(r.Context())]
	if !acct.EditRights {
		writeError(w, http.StatusUnprocessableEntity, "profile editing is locked")
		return
	}

	if envelope.Draft {
		acct.drafts[step] = envelope.Data
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "draft": true})
		return
	}

	acct.steps[step] = body
	acct.forms[form-1] = true
	delete(acct.drafts, step)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	key := upload.ObjectKey(accountID(r.Context()), "document", req.Filename)
	writeJSON(w, http.StatusOK, api.PresignResult{
		UploadURL: "http://" + r.Host + "/objects/" + key,
		Key:       key,
	})
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	buf := new(strings.Builder)
	if _, err := copyLimited(buf, r.Body, maxObjectSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	s.mu.Lock()
	s.objects[key] = []byte(buf.String())
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	pageSize := atoiDefault(r.URL.Query().Get("pageSize"), 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.RLock()
	var matched []api.Employee
	for _, a := range s.accounts {
		if q == "" || strings.Contains(strings.ToLower(a.Name), q) ||
			strings.Contains(a.Email, q) || strings.Contains(strings.ToLower(a.Department), q) {
			matched = append(matched, a.Employee)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	totalPages := (total + pageSize - 1) / pageSize
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	writeJSON(w, http.StatusOK, api.EmployeePage{
		Items:      append([]api.Employee{}, matched[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EditRights *bool   `json:"editRights"`
		Active     *bool   `json:"active"`
		JoineeType *string `json:"joineeType"`
		Role       *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[accountID(r.Context())].Role != string(session.RoleAdmin) {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	target, ok := s.accounts[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "employee not found")
		return
	}

	if req.EditRights != nil {
		target.EditRights = *req.EditRights
	}
	if req.Active != nil {
		target.Active = *req.Active
		if !target.Active {
			s.revokeTokens(target.ID)
		}
	}
	if req.JoineeType != nil {
		target.JoineeType = *req.JoineeType
	}
	if req.Role != nil {
		target.Role = *req.Role
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, append([]api.Policy{}, s.policies...))
}

// revokeTokens drops every token of the account. Caller holds mu.
func (s *Server) revokeTokens(id string) {
	for tok, owner := range s.tokens {
		if owner == id {
			delete(s.tokens, tok)
		}
	}
}

// StepPayload returns the last submitted payload for a user's step, for tests
// and diagnostics.
func (s *Server) StepPayload(email, step string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	p, ok := s.accounts[id].steps[step]
	return p, ok
}

// Object returns an uploaded object by key.
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	return b, ok
}

// UserID returns the identifier of the account with the given email.
func (s *Server) UserID(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	return id, ok
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
