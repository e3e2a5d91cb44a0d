package model

// SessionState is the authentication state of the client.
type SessionState string

const (
	StateAnonymous     SessionState = "anonymous"
	StateAuthenticated SessionState = "authenticated"
)

// Destination is a navigation intent handed back to the UI layer.
type Destination string

const (
	DestLanding      Destination = "/"
	DestLogin        Destination = "/login"
	DestDashboard    Destination = "/dashboard"
	DestAdminCourses Destination = "/dashboard/admin/kurse"
	DestAdminUsers   Destination = "/dashboard/admin/benutzer"
)

// HomeFor returns where a freshly authenticated user lands.
func HomeFor(u *User) Destination {
	if u.IsAdmin() {
		return DestAdminCourses
	}
	return DestDashboard
}
