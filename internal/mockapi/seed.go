package mockapi

import (
	"fmt"
	"time"

	"github.com/me/coursebook/pkg/model"
)

// Demo accounts created by Seed.
const (
	DemoAdminEmail    = "admin@example.com"
	DemoAdminPassword = "admin123"
	DemoUserEmail     = "user@example.com"
	DemoUserPassword  = "user123"
)

// Seed loads demo accounts and courses relative to the server clock: two
// upcoming courses, one running and one finished.
func (s *Server) Seed() error {
	admin, err := s.AddUser(model.User{
		FirstName: "Ada", LastName: "Admin", Email: DemoAdminEmail, Role: model.RoleAdmin,
	}, DemoAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	user, err := s.AddUser(model.User{
		FirstName: "Uli", LastName: "User", Email: DemoUserEmail, Role: model.RoleUser,
	}, DemoUserPassword)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	day := 24 * time.Hour
	today := s.now().Truncate(day)
	courses := []model.Course{
		{
			ID: "c-go", Title: "Go for Beginners", Description: "Types, functions and goroutines.",
			Category: "Programming", StartDate: today.Add(7 * day), EndDate: today.Add(9 * day),
			MaxParticipants: 12, Topics: []string{"syntax", "concurrency"},
		},
		{
			ID: "c-sql", Title: "SQL Basics", Description: "Queries, joins and indexes.",
			Category: "Databases", StartDate: today.Add(14 * day), EndDate: today.Add(15 * day),
			MaxParticipants: 2,
		},
		{
			ID: "c-ux", Title: "UX Workshop", Description: "Interviews and prototyping.",
			Category: "Design", StartDate: today.Add(-day), EndDate: today.Add(2 * day),
			MaxParticipants: 8,
		},
		{
			ID: "c-git", Title: "Git in Practice", Description: "Branching and code review.",
			Category: "Programming", StartDate: today.Add(-30 * day), EndDate: today.Add(-29 * day),
			MaxParticipants: 10,
		},
	}
	for _, c := range courses {
		c.Status = model.CourseStatusActive
		s.data.putCourse(c)
	}

	if err := s.data.join("c-ux", user.ID, s.now()); err != nil {
		return fmt.Errorf("seed enrollment: %w", err)
	}
	// Past enrollment bypasses the end-date check.
	s.data.mu.Lock()
	s.data.courses["c-git"].participants = append(s.data.courses["c-git"].participants, user.ID, admin.ID)
	s.data.mu.Unlock()
	return nil
}
