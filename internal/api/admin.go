package api

import (
	"context"
	"fmt"

	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/pkg/model"
)

// Admin wraps the back office endpoints. The server enforces the admin
// role; the client only guards against locking the caller out.
type Admin struct {
	c   *apiclient.Client
	who Identity
}

// ListCourses returns all courses including inactive ones.
func (a *Admin) ListCourses(ctx context.Context) ([]model.Course, error) {
	var out coursesPayload
	if err := getInto(ctx, a.c, "/api/admin/courses", &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// CreateCourse validates in and creates a course.
func (a *Admin) CreateCourse(ctx context.Context, in model.CourseInput) (*model.Course, error) {
	in, err := prepareCourse(in)
	if err != nil {
		return nil, err
	}
	resp, err := a.c.Post(ctx, "/api/admin/courses", in)
	if err != nil {
		return nil, err
	}
	var out coursePayload
	if err := apiclient.DecodeData(resp, &out); err != nil {
		return nil, err
	}
	return &out.Course, nil
}

// UpdateCourse validates in and replaces the course with the given id.
func (a *Admin) UpdateCourse(ctx context.Context, id string, in model.CourseInput) (*model.Course, error) {
	in, err := prepareCourse(in)
	if err != nil {
		return nil, err
	}
	resp, err := a.c.Put(ctx, pathID("/api/admin/courses/", id, ""), in)
	if err != nil {
		return nil, err
	}
	var out coursePayload
	if err := apiclient.DecodeData(resp, &out); err != nil {
		return nil, err
	}
	return &out.Course, nil
}

// DeleteCourse removes a course.
func (a *Admin) DeleteCourse(ctx context.Context, id string) error {
	_, err := a.c.Delete(ctx, pathID("/api/admin/courses/", id, ""))
	return err
}

// ListUsers returns all accounts.
func (a *Admin) ListUsers(ctx context.Context) ([]model.User, error) {
	var out usersPayload
	if err := getInto(ctx, a.c, "/api/admin/users", &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// UpdateUserRole sets the role of the user with the given id. Removing
// the caller's own admin role returns ErrSelfDemotion without a request.
func (a *Admin) UpdateUserRole(ctx context.Context, id string, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if role != model.RoleAdmin && a.isSelf(id) {
		return nil, ErrSelfDemotion
	}
	resp, err := a.c.Put(ctx, pathID("/api/admin/users/", id, "/role"), model.RoleChange{Role: role})
	if err != nil {
		return nil, err
	}
	var out userPayload
	if err := apiclient.DecodeData(resp, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// DeleteUser removes an account. Deleting the caller's own account
// returns ErrSelfDeletion without a request.
func (a *Admin) DeleteUser(ctx context.Context, id string) error {
	if a.isSelf(id) {
		return ErrSelfDeletion
	}
	_, err := a.c.Delete(ctx, pathID("/api/admin/users/", id, ""))
	return err
}

func (a *Admin) isSelf(id string) bool {
	if a.who == nil {
		return false
	}
	u := a.who.CurrentUser()
	return u != nil && u.ID == id
}

func prepareCourse(in model.CourseInput) (model.CourseInput, error) {
	if in.Status == "" {
		in.Status = model.CourseStatusActive
	}
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}
