package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleUser is a standard participant account.
	RoleUser UserRole = "user"
	// RoleAdmin can manage courses and user roles.
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the account record returned by the course API.
type User struct {
	ID        string   `json:"_id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
}

// UnmarshalJSON accepts either "_id" or "id" as the identifier. The API
// uses "_id" in listings and "id" in some auth payloads.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// Validate checks that a decoded record carries the fields a session needs.
func (u *User) Validate() error {
	var missing []string
	if u.ID == "" {
		missing = append(missing, "id")
	}
	if u.Email == "" {
		missing = append(missing, "email")
	}
	if u.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return errors.New("user record missing " + strings.Join(missing, ", "))
	}
	if !u.Role.Valid() {
		return errors.New("user record has unknown role " + string(u.Role))
	}
	return nil
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserWithCourses is the payload of the user detail and profile endpoints.
type UserWithCourses struct {
	User    User     `json:"user"`
	Courses []Course `json:"courses"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}
