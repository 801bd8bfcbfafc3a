package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"onboard/internal/api"
	"onboard/internal/config"
	"onboard/internal/devapi"
	"onboard/internal/kvstore"
	"onboard/internal/manifest"
	"onboard/internal/output"
)

// testClock is the fixed "today" of CLI tests.
var testClock = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

// testEnv is an App wired to an in-memory dev API and session store.
type testEnv struct {
	t      *testing.T
	app    *App
	server *devapi.Server
	store  *kvstore.Store
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv, err := devapi.New(devapi.DefaultSeed(), devapi.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	store, err := kvstore.Open(kvstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = ts.URL
	cfg.Store.InMemory = true

	out := &bytes.Buffer{}
	app := newApp(cfg, output.NewPrinterWithWriter(out), store, api.NewClient(ts.URL, 5*time.Second), manifest.Default())
	app.Now = func() time.Time { return testClock }

	return &testEnv{t: t, app: app, server: srv, store: store, out: out}
}

// run executes one command and returns its output and exit code.
func (e *testEnv) run(args ...string) (string, int) {
	e.t.Helper()
	e.out.Reset()

	cmd := NewRootCommand(e.app)
	cmd.SetOut(e.out)
	cmd.SetErr(e.out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return e.out.String(), 0
	}
	code, ok := IsExitError(err)
	if !ok {
		e.t.Fatalf("command %v returned a non-exit error: %v", args, err)
	}
	return e.out.String(), code
}

// mustRun executes a command that is expected to succeed.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, code := e.run(args...)
	require.Zero(e.t, code, "command %v failed:\n%s", args, out)
	return out
}

func (e *testEnv) login(email, password string) {
	e.t.Helper()
	e.mustRun("login", "--email", email, "--password", password)
}

// writeFile writes content into a temporary directory and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const (
	validPersonalYAML = `firstName: Asha
lastName: Rao
dob: 1998-11-20
phone: "9876543210"
aadhaar: "123412341234"
pan: abcde1234f
accountNumber: "123456789012"
`
	validBankYAML = `accountHolder: Asha Rao
accountNumber: "123456789012"
ifsc: sbin0001234
bankName: SBI
`
)
