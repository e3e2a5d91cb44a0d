package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/internal/mockapi"
	"github.com/me/coursebook/pkg/model"
)

// tokenHolder is a mutable TokenSource and Identity for tests.
type tokenHolder struct {
	token string
	user  *model.User
}

func (h *tokenHolder) Token(context.Context) string { return h.token }
func (h *tokenHolder) CurrentUser() *model.User     { return h.user }

type fixture struct {
	srv    *mockapi.Server
	api    *API
	holder *tokenHolder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := mockapi.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	srv := mockapi.New(cfg, logger)
	if err := srv.Seed(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	holder := &tokenHolder{}
	client := apiclient.New(apiclient.DefaultConfig(ts.URL), holder, logger,
		apiclient.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return &fixture{srv: srv, api: New(client, holder), holder: holder}
}

func (f *fixture) loginAs(t *testing.T, email, password string) {
	t.Helper()
	res, err := f.api.Auth.Login(context.Background(), model.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	f.holder.token = res.Token
	u := res.User
	f.holder.user = &u
}

func TestAuth(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.api.Auth.Login(ctx, model.Credentials{Email: mockapi.DemoAdminEmail, Password: mockapi.DemoAdminPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || !res.User.IsAdmin() {
		t.Errorf("Login result = %+v", res)
	}

	_, err = f.api.Auth.Login(ctx, model.Credentials{Email: mockapi.DemoAdminEmail, Password: "wrong"})
	if apiclient.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("bad password error = %v, want 401", err)
	}
	if got := UserMessage(err, "login failed"); got != "invalid email or password" {
		t.Errorf("UserMessage = %q", got)
	}

	reg, err := f.api.Auth.Register(ctx, model.Registration{FirstName: "N", LastName: "P", Email: "n@p.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Role != model.RoleUser || reg.Token == "" {
		t.Errorf("Register result = %+v", reg)
	}
}

func TestPublicCourses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	courses, err := f.api.Public.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(courses) != 4 {
		t.Fatalf("len(courses) = %d, want 4", len(courses))
	}

	c, err := f.api.Public.Get(ctx, "c-ux")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Title != "UX Workshop" || c.Enrolled() != 1 {
		t.Errorf("course = %+v", c)
	}

	_, err = f.api.Public.Get(ctx, "missing")
	if apiclient.StatusCode(err) != http.StatusNotFound {
		t.Errorf("missing course error = %v, want 404", err)
	}
}

func TestCoursesJoinLeave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.api.Courses.Mine(ctx); apiclient.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("anonymous Mine error = %v, want 401", err)
	}

	f.loginAs(t, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	msg, err := f.api.Courses.Join(ctx, "c-go")
	if err != nil || msg == "" {
		t.Fatalf("Join = %q, %v", msg, err)
	}
	mine, err := f.api.Courses.Mine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("len(Mine) = %d, want 2", len(mine))
	}
	past, err := f.api.Courses.Past(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(past) != 1 || past[0].ID != "c-git" {
		t.Errorf("Past = %+v", past)
	}

	if _, err := f.api.Courses.Leave(ctx, "c-go"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	_, err = f.api.Courses.Leave(ctx, "c-go")
	if apiclient.StatusCode(err) != http.StatusBadRequest {
		t.Errorf("second Leave error = %v, want 400", err)
	}
}

func TestUsersProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.loginAs(t, mockapi.DemoUserEmail, mockapi.DemoUserPassword)

	p, err := f.api.Users.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.User.Email != mockapi.DemoUserEmail || len(p.Courses) != 2 {
		t.Errorf("profile = %+v", p)
	}

	u, err := f.api.Users.UpdateProfile(ctx, model.ProfileUpdate{FirstName: "Ulrike"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.FirstName != "Ulrike" || u.LastName != "User" {
		t.Errorf("updated user = %+v", u)
	}

	before := f.srv.Requests()
	var verr *model.ValidationError
	if _, err := f.api.Users.UpdateProfile(ctx, model.ProfileUpdate{}); !errors.As(err, &verr) {
		t.Errorf("empty update error = %v, want ValidationError", err)
	}
	if f.srv.Requests() != before {
		t.Error("empty update must not be sent")
	}

	if _, err := f.api.Users.List(ctx); apiclient.StatusCode(err) != http.StatusForbidden {
		t.Errorf("user List error = %v, want 403", err)
	}
}

func TestAdminSelfGuards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.loginAs(t, mockapi.DemoAdminEmail, mockapi.DemoAdminPassword)
	self := f.holder.user.ID

	before := f.srv.Requests()
	if _, err := f.api.Admin.UpdateUserRole(ctx, self, model.RoleUser); !errors.Is(err, ErrSelfDemotion) {
		t.Errorf("self demotion error = %v, want ErrSelfDemotion", err)
	}
	if err := f.api.Admin.DeleteUser(ctx, self); !errors.Is(err, ErrSelfDeletion) {
		t.Errorf("self deletion error = %v, want ErrSelfDeletion", err)
	}
	if f.srv.Requests() != before {
		t.Errorf("guarded calls sent %d requests", f.srv.Requests()-before)
	}

	// Re-asserting one's own admin role is harmless.
	if _, err := f.api.Admin.UpdateUserRole(ctx, self, model.RoleAdmin); err != nil {
		t.Errorf("self promote: %v", err)
	}
}

func TestAdminUsers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.loginAs(t, mockapi.DemoAdminEmail, mockapi.DemoAdminPassword)

	users, err := f.api.Admin.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var target string
	for _, u := range users {
		if u.Email == mockapi.DemoUserEmail {
			target = u.ID
		}
	}
	if target == "" {
		t.Fatalf("demo user missing from %+v", users)
	}

	u, err := f.api.Admin.UpdateUserRole(ctx, target, model.RoleAdmin)
	if err != nil || u.Role != model.RoleAdmin {
		t.Fatalf("promote = %+v, %v", u, err)
	}
	if _, err := f.api.Admin.UpdateUserRole(ctx, target, "root"); err == nil {
		t.Error("unknown role should be rejected")
	}
	if err := f.api.Admin.DeleteUser(ctx, target); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := f.api.Admin.DeleteUser(ctx, target); apiclient.StatusCode(err) != http.StatusNotFound {
		t.Errorf("second delete error = %v, want 404", err)
	}
}

func TestAdminCourses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.loginAs(t, mockapi.DemoAdminEmail, mockapi.DemoAdminPassword)

	in := model.CourseInput{
		Title: "Kubernetes", Description: "Pods and services", Category: "Ops",
		StartDate: time.Now().Add(24 * time.Hour), EndDate: time.Now().Add(72 * time.Hour),
		MaxParticipants: 10,
	}
	c, err := f.api.Admin.CreateCourse(ctx, in)
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if c.ID == "" || c.Status != model.CourseStatusActive {
		t.Errorf("created = %+v, want id and status %q", c, model.CourseStatusActive)
	}

	in.Title = "Kubernetes Deep Dive"
	updated, err := f.api.Admin.UpdateCourse(ctx, c.ID, in)
	if err != nil || updated.Title != in.Title {
		t.Fatalf("UpdateCourse = %+v, %v", updated, err)
	}

	before := f.srv.Requests()
	bad := in
	bad.MaxParticipants = 0
	bad.Title = ""
	var verr *model.ValidationError
	if _, err := f.api.Admin.CreateCourse(ctx, bad); !errors.As(err, &verr) || len(verr.Details) != 2 {
		t.Errorf("invalid course error = %v, want 2 field errors", err)
	}
	if f.srv.Requests() != before {
		t.Error("invalid course must not be sent")
	}

	all, err := f.api.Admin.ListCourses(ctx)
	if err != nil || len(all) != 5 {
		t.Fatalf("ListCourses = %d courses, %v", len(all), err)
	}
	if err := f.api.Admin.DeleteCourse(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
}

func TestRetriesThroughTypedLayer(t *testing.T) {
	f := setup(t)
	f.srv.FailNext(2, http.StatusServiceUnavailable)

	courses, err := f.api.Public.List(context.Background())
	if err != nil {
		t.Fatalf("List after transient failures: %v", err)
	}
	if len(courses) == 0 {
		t.Error("expected courses")
	}
	if f.srv.Requests() != 3 {
		t.Errorf("server saw %d requests, want 3", f.srv.Requests())
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"server message", &apiclient.HTTPError{StatusCode: 400, Message: "course is full"}, "course is full"},
		{"wrapped server message", fmt.Errorf("join: %w", &apiclient.HTTPError{StatusCode: 400, Message: "x"}), "x"},
		{"no server message", &apiclient.HTTPError{StatusCode: 500}, "fallback"},
		{"network", &apiclient.NetworkError{Err: errors.New("refused")}, ConnectionFailed},
		{"validation", model.NewValidationError("invalid course", model.FieldError{Field: "title", Message: "required"}), "invalid course: title required"},
		{"guard", ErrSelfDeletion, ErrSelfDeletion.Error()},
		{"other", errors.New("boom"), "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, "fallback"); got != tt.want {
				t.Errorf("UserMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
