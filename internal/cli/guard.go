package cli

import (
	"fmt"

	"github.com/me/coursebook/internal/api"
	"github.com/me/coursebook/pkg/model"
)

// RouteError is a refused command together with where the user should go
// instead.
type RouteError struct {
	Message     string
	Destination model.Destination
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s (go to %s)", e.Message, e.Destination)
}

func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return &RouteError{Message: "login required", Destination: model.DestLogin}
	}
	return nil
}

func (a *app) requireAdmin() error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return &RouteError{Message: "admin role required", Destination: model.DestDashboard}
	}
	return nil
}

// displayError carries a message fit for the terminal while keeping the
// underlying error for errors.Is and errors.As.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

// friendly rewrites err with api.UserMessage.
func friendly(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &displayError{msg: api.UserMessage(err, fallback), err: err}
}
