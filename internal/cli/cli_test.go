package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/coursebook/internal/api"
	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/internal/mockapi"
	"github.com/me/coursebook/internal/storage"
	"github.com/me/coursebook/pkg/model"
)

type testEnv struct {
	srv     *mockapi.Server
	url     string
	storage storage.Storage
}

// startTestServer starts a seeded fake API and returns an environment whose
// session storage survives across CLI invocations.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := mockapi.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	srv := mockapi.New(cfg, srvLogger)
	if err := srv.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, url: ts.URL, storage: storage.NewMemoryStorage()}
}

func noSleep(context.Context, time.Duration) error { return nil }

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, cleanup := NewRootCmd(
		WithStorage(e.storage),
		WithClientOptions(apiclient.WithSleep(noSleep)),
		WithLogWriter(&bytes.Buffer{}),
	)
	defer cleanup()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--server", e.url}, args...))

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("%v: %v\noutput: %s", args, err, out)
	}
	return out
}

func (e *testEnv) loginAdmin(t *testing.T) {
	t.Helper()
	e.mustRun(t, "login", "--email", mockapi.DemoAdminEmail, "--password", mockapi.DemoAdminPassword)
}

func (e *testEnv) loginUser(t *testing.T) {
	t.Helper()
	e.mustRun(t, "login", "--email", mockapi.DemoUserEmail, "--password", mockapi.DemoUserPassword)
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("expected %q in output, got:\n%s", w, out)
		}
	}
}

func assertRoute(t *testing.T, err error, dest model.Destination) {
	t.Helper()
	var routeErr *RouteError
	if !errors.As(err, &routeErr) {
		t.Fatalf("error = %v, want *RouteError", err)
	}
	if routeErr.Destination != dest {
		t.Errorf("destination = %q, want %q", routeErr.Destination, dest)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := startTestServer(t)

	out := env.mustRun(t, "login", "--email", mockapi.DemoAdminEmail, "--password", mockapi.DemoAdminPassword)
	assertContains(t, out, "Logged in as Ada Admin", string(model.DestAdminCourses))

	out = env.mustRun(t, "whoami")
	assertContains(t, out, mockapi.DemoAdminEmail, "admin")

	if _, err := env.run(t, "", "login", "--email", mockapi.DemoUserEmail, "--password", mockapi.DemoUserPassword); err == nil {
		t.Error("login while logged in should be refused")
	}

	out = env.mustRun(t, "logout")
	assertContains(t, out, "Next: /")
	out = env.mustRun(t, "logout")
	assertContains(t, out, "Logged out.")

	out = env.mustRun(t, "whoami")
	assertContains(t, out, "Not logged in.")
}

func TestLoginPrompts(t *testing.T) {
	env := startTestServer(t)

	out, err := env.run(t, mockapi.DemoUserEmail+"\n"+mockapi.DemoUserPassword+"\n", "login")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	assertContains(t, out, "Email: ", "Password: ", "Next: "+string(model.DestDashboard))
}

func TestLoginWrongPassword(t *testing.T) {
	env := startTestServer(t)

	_, err := env.run(t, "", "login", "--email", mockapi.DemoUserEmail, "--password", "nope")
	if err == nil || err.Error() != "invalid email or password" {
		t.Fatalf("error = %v, want server message", err)
	}
	if apiclient.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiclient.StatusCode(err))
	}
	out := env.mustRun(t, "whoami")
	assertContains(t, out, "Not logged in.")
}

func TestRegister(t *testing.T) {
	env := startTestServer(t)

	_, err := env.run(t, "", "register", "--first-name", "Neo", "--last-name", "N", "--email", "neo@example.com",
		"--password", "secret1", "--confirm-password", "secret2")
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("mismatched passwords error = %v, want ValidationError", err)
	}

	out := env.mustRun(t, "register", "--first-name", "Neo", "--last-name", "N", "--email", "neo@example.com",
		"--password", "secret1", "--confirm-password", "secret1")
	assertContains(t, out, "Welcome, Neo N!", "Next: "+string(model.DestDashboard))

	out = env.mustRun(t, "whoami")
	assertContains(t, out, "neo@example.com")
}

func TestCoursesPublicAndEnrollment(t *testing.T) {
	env := startTestServer(t)

	out := env.mustRun(t, "courses", "list")
	assertContains(t, out, "ID", "TITLE", "Go for Beginners", "SQL Basics")

	out = env.mustRun(t, "courses", "show", "c-go")
	assertContains(t, out, "Go for Beginners", "syntax, concurrency", "0/12")

	_, err := env.run(t, "", "courses", "join", "c-go")
	assertRoute(t, err, model.DestLogin)

	env.loginUser(t)
	out = env.mustRun(t, "courses", "join", "c-go")
	assertContains(t, out, "successfully joined")

	_, err = env.run(t, "", "courses", "join", "c-go")
	if err == nil || !strings.Contains(err.Error(), "already enrolled") {
		t.Errorf("second join error = %v", err)
	}

	out = env.mustRun(t, "courses", "show", "c-go")
	assertContains(t, out, "You are enrolled.", "1/12")

	out = env.mustRun(t, "courses", "mine")
	assertContains(t, out, "Go for Beginners", "UX Workshop")
	out = env.mustRun(t, "courses", "mine", "--past")
	assertContains(t, out, "Git in Practice")

	out = env.mustRun(t, "courses", "leave", "c-go")
	assertContains(t, out, "successfully left")
}

func TestDashboard(t *testing.T) {
	env := startTestServer(t)

	_, err := env.run(t, "", "dashboard")
	assertRoute(t, err, model.DestLogin)

	env.loginUser(t)
	out := env.mustRun(t, "dashboard")
	assertContains(t, out, "Hello, Uli User", "My courses", "UX Workshop", "Past courses", "Git in Practice")
	if strings.Contains(out, "Administration") {
		t.Error("non-admin should not see the administration section")
	}

	env.mustRun(t, "logout")
	env.loginAdmin(t)
	out = env.mustRun(t, "dashboard")
	assertContains(t, out, "Administration", string(model.DestAdminUsers))
}

func TestProfile(t *testing.T) {
	env := startTestServer(t)
	env.loginUser(t)

	out := env.mustRun(t, "profile", "show")
	assertContains(t, out, "Uli User", mockapi.DemoUserEmail, "UX Workshop")

	out = env.mustRun(t, "profile", "update", "--first-name", "Ulrike")
	assertContains(t, out, "Profile updated: Ulrike User")

	if _, err := env.run(t, "", "profile", "update"); err == nil {
		t.Error("update without flags should fail")
	}
}

func TestAdminGuards(t *testing.T) {
	env := startTestServer(t)

	_, err := env.run(t, "", "admin", "courses", "list")
	assertRoute(t, err, model.DestLogin)

	env.loginUser(t)
	_, err = env.run(t, "", "admin", "courses", "list")
	assertRoute(t, err, model.DestDashboard)
	_, err = env.run(t, "", "users", "list")
	assertRoute(t, err, model.DestDashboard)
}

func TestAdminUsers(t *testing.T) {
	env := startTestServer(t)
	env.loginAdmin(t)

	out := env.mustRun(t, "users", "list")
	assertContains(t, out, mockapi.DemoAdminEmail, mockapi.DemoUserEmail)

	admin := env.mustRun(t, "whoami")
	selfID := fieldValue(admin, "ID:")
	before := env.srv.Requests()
	_, err := env.run(t, "", "admin", "users", "demote", selfID)
	if !errors.Is(err, api.ErrSelfDemotion) {
		t.Errorf("self demotion error = %v", err)
	}
	_, err = env.run(t, "", "admin", "users", "delete", "--yes", selfID)
	if !errors.Is(err, api.ErrSelfDeletion) {
		t.Errorf("self deletion error = %v", err)
	}
	if env.srv.Requests() != before {
		t.Error("self-guarded commands must not reach the server")
	}

	userID := userIDByEmail(t, env, mockapi.DemoUserEmail)
	out = env.mustRun(t, "admin", "users", "promote", userID)
	assertContains(t, out, mockapi.DemoUserEmail+" is now admin")

	out = env.mustRun(t, "users", "show", userID)
	assertContains(t, out, "UX Workshop")

	out, err = env.run(t, "n\n", "admin", "users", "delete", userID)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Really delete user", "Aborted.")

	out, err = env.run(t, "yes\n", "admin", "users", "delete", userID)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Deleted user "+userID)
}

func TestAdminCourses(t *testing.T) {
	env := startTestServer(t)
	env.loginAdmin(t)

	_, err := env.run(t, "", "admin", "courses", "create", "--title", "Rust", "--max", "0")
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("invalid create error = %v, want ValidationError", err)
	}

	out := env.mustRun(t, "admin", "courses", "create",
		"--title", "Rust", "--description", "Ownership", "--category", "Programming",
		"--start", "2030-01-10", "--end", "2030-01-12", "--max", "4", "--topics", "borrowck,traits")
	assertContains(t, out, "Course created:", "(Rust)")
	id := strings.Fields(out)[2]

	out = env.mustRun(t, "admin", "courses", "update", id, "--title", "Rust 2")
	assertContains(t, out, "Course updated: "+id+" (Rust 2)")

	out = env.mustRun(t, "courses", "show", id)
	assertContains(t, out, "Rust 2", "borrowck, traits", "0/4", model.CourseStatusActive)

	out = env.mustRun(t, "admin", "courses", "delete", "-y", id)
	assertContains(t, out, "Deleted course "+id)

	_, err = env.run(t, "", "admin", "courses", "update", id, "--title", "gone")
	if apiclient.StatusCode(err) != http.StatusNotFound {
		t.Errorf("update deleted course error = %v, want 404", err)
	}
}

func TestRetriesAreInvisibleToCommands(t *testing.T) {
	env := startTestServer(t)

	env.srv.FailNext(3, http.StatusBadGateway)
	out := env.mustRun(t, "courses", "list")
	assertContains(t, out, "Go for Beginners")

	env.srv.FailNext(4, http.StatusServiceUnavailable)
	_, err := env.run(t, "", "courses", "list")
	if apiclient.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want 503 after retries are exhausted", err)
	}
	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", httpErr.Attempts)
	}

	env.srv.DropNext(10)
	_, err = env.run(t, "", "courses", "list")
	if err == nil || err.Error() != api.ConnectionFailed {
		t.Errorf("error = %v, want %q", err, api.ConnectionFailed)
	}
}

func TestFileStorageSurvivesRestart(t *testing.T) {
	env := startTestServer(t)
	dir := t.TempDir()

	run := func(args ...string) string {
		t.Helper()
		root, cleanup := NewRootCmd(WithClientOptions(apiclient.WithSleep(noSleep)), WithLogWriter(&bytes.Buffer{}))
		defer cleanup()
		var buf bytes.Buffer
		root.SetOut(&buf)
		root.SetErr(&buf)
		root.SetArgs(append([]string{"--server", env.url, "--storage", "file", "--state-dir", dir}, args...))
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	run("login", "--email", mockapi.DemoUserEmail, "--password", mockapi.DemoUserPassword)
	out := run("whoami")
	assertContains(t, out, mockapi.DemoUserEmail)
}

func TestCleanupClosesOpenedStorage(t *testing.T) {
	env := startTestServer(t)
	root, a := newRoot(WithClientOptions(apiclient.WithSleep(noSleep)), WithLogWriter(&bytes.Buffer{}))
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"--server", env.url, "--storage", "sqlite", "--state-dir", t.TempDir(), "courses", "list"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("courses list: %v\n%s", err, buf.String())
	}

	st := a.storage
	if st == nil {
		t.Fatal("no storage opened")
	}
	if err := a.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := st.Get(context.Background(), storage.KeyToken); err == nil {
		t.Error("sqlite storage still usable after cleanup")
	}
	if err := a.close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestRetryBudgetCannotBeRaised(t *testing.T) {
	env := startTestServer(t)
	t.Setenv("COURSEBOOK_MAX_RETRIES", "10")
	env.srv.FailNext(20, http.StatusServiceUnavailable)

	_, err := env.run(t, "", "courses", "list")
	if err == nil || !strings.Contains(err.Error(), "max_retries") {
		t.Fatalf("error = %v, want a max_retries configuration error", err)
	}
	if n := env.srv.Requests(); n != 0 {
		t.Errorf("server saw %d requests, want none", n)
	}
}

func fieldValue(out, label string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	return ""
}

func userIDByEmail(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	out := env.mustRun(t, "admin", "users", "list")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, email) {
			return strings.Fields(line)[0]
		}
	}
	t.Fatalf("user %s not in:\n%s", email, out)
	return ""
}
