package model

import "encoding/json"

// Response envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the standard API response envelope.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AuthResult is the data payload of the login and register endpoints.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Credentials is the body of the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of the register endpoint.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RoleChange is the body of the admin role endpoint.
type RoleChange struct {
	Role UserRole `json:"role"`
}
