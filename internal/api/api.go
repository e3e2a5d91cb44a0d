// Package api exposes the course API endpoints as typed calls on top of
// the retrying apiclient.
package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/pkg/model"
)

// Identity reports who is logged in. session.Store satisfies it.
type Identity interface {
	CurrentUser() *model.User
}

// Errors for admin actions refused before any request is sent.
var (
	ErrSelfDemotion = errors.New("you cannot remove your own admin role")
	ErrSelfDeletion = errors.New("you cannot delete your own account")
)

// API groups the endpoint families.
type API struct {
	Auth    *Auth
	Public  *PublicCourses
	Courses *Courses
	Users   *Users
	Admin   *Admin
}

// New binds all endpoint families to c. who is consulted by the admin
// self-guards and may be nil when no session exists.
func New(c *apiclient.Client, who Identity) *API {
	return &API{
		Auth:    &Auth{c: c},
		Public:  &PublicCourses{c: c},
		Courses: &Courses{c: c},
		Users:   &Users{c: c},
		Admin:   &Admin{c: c, who: who},
	}
}

type coursesPayload struct {
	Courses []model.Course `json:"courses"`
}

type coursePayload struct {
	Course model.Course `json:"course"`
}

type usersPayload struct {
	Users []model.User `json:"users"`
}

type userPayload struct {
	User model.User `json:"user"`
}

func getInto(ctx context.Context, c *apiclient.Client, path string, dest any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return apiclient.DecodeData(resp, dest)
}

func pathID(prefix, id, suffix string) string {
	return prefix + url.PathEscape(id) + suffix
}

// Auth wraps the login and register endpoints.
type Auth struct {
	c *apiclient.Client
}

// Login calls POST /api/users/login.
func (a *Auth) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	return a.authenticate(ctx, "/api/users/login", creds)
}

// Register calls POST /api/users/register.
func (a *Auth) Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error) {
	return a.authenticate(ctx, "/api/users/register", reg)
}

func (a *Auth) authenticate(ctx context.Context, path string, body any) (*model.AuthResult, error) {
	resp, err := a.c.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	var res model.AuthResult
	if err := apiclient.DecodeData(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PublicCourses wraps the catalog endpoints, which need no token.
type PublicCourses struct {
	c *apiclient.Client
}

// List returns every course.
func (p *PublicCourses) List(ctx context.Context) ([]model.Course, error) {
	var out coursesPayload
	if err := getInto(ctx, p.c, "/api/courses", &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// Get returns one course.
func (p *PublicCourses) Get(ctx context.Context, id string) (*model.Course, error) {
	var out coursePayload
	if err := getInto(ctx, p.c, pathID("/api/courses/", id, ""), &out); err != nil {
		return nil, err
	}
	return &out.Course, nil
}

// Courses wraps the enrollment endpoints of the logged-in user.
type Courses struct {
	c *apiclient.Client
}

// Mine returns the current and upcoming courses of the logged-in user.
func (cs *Courses) Mine(ctx context.Context) ([]model.Course, error) {
	var out coursesPayload
	if err := getInto(ctx, cs.c, "/api/courses/user/courses", &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// Past returns finished courses of the logged-in user.
func (cs *Courses) Past(ctx context.Context) ([]model.Course, error) {
	var out coursesPayload
	if err := getInto(ctx, cs.c, "/api/courses/user/past-courses", &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// Join enrolls the logged-in user and returns the server's message.
func (cs *Courses) Join(ctx context.Context, id string) (string, error) {
	resp, err := cs.c.Post(ctx, pathID("/api/courses/", id, "/join"), nil)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Leave withdraws the logged-in user and returns the server's message.
func (cs *Courses) Leave(ctx context.Context, id string) (string, error) {
	resp, err := cs.c.Post(ctx, pathID("/api/courses/", id, "/leave"), nil)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Users wraps the user directory and profile endpoints.
type Users struct {
	c *apiclient.Client
}

// List returns all users.
func (u *Users) List(ctx context.Context) ([]model.User, error) {
	var out usersPayload
	if err := getInto(ctx, u.c, "/api/users", &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Get returns a user with their courses.
func (u *Users) Get(ctx context.Context, id string) (*model.UserWithCourses, error) {
	var out model.UserWithCourses
	if err := getInto(ctx, u.c, pathID("/api/users/", id, ""), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the logged-in user with their courses.
func (u *Users) Profile(ctx context.Context) (*model.UserWithCourses, error) {
	var out model.UserWithCourses
	if err := getInto(ctx, u.c, "/api/users/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the non-empty fields of upd.
func (u *Users) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (*model.User, error) {
	if upd == (model.ProfileUpdate{}) {
		return nil, model.NewValidationError("nothing to update")
	}
	resp, err := u.c.Put(ctx, "/api/users/profile", upd)
	if err != nil {
		return nil, err
	}
	var out userPayload
	if err := apiclient.DecodeData(resp, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
