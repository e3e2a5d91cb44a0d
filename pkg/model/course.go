package model

import (
	"encoding/json"
	"time"
)

// CourseStatusActive is the status assigned to courses created from the back office.
const CourseStatusActive = "aktiv"

// Course is a bookable course as returned by the API.
type Course struct {
	ID               string    `json:"_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	Category         string    `json:"category"`
	Status           string    `json:"status"`
	MaxParticipants  int       `json:"maxParticipants"`
	ParticipantCount int       `json:"participantCount,omitempty"`
	Topics           []string  `json:"topics,omitempty"`
	Participants     []User    `json:"participants,omitempty"`
}

// UnmarshalJSON accepts either "_id" or "id" as the identifier.
func (c *Course) UnmarshalJSON(data []byte) error {
	type plain Course
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Course(aux.plain)
	if c.ID == "" {
		c.ID = aux.AltID
	}
	return nil
}

// Enrolled returns the enrolled count, preferring the explicit counter.
func (c *Course) Enrolled() int {
	if c.ParticipantCount > 0 {
		return c.ParticipantCount
	}
	return len(c.Participants)
}

// IsFull reports whether no seats are left.
func (c *Course) IsFull() bool {
	return c.MaxParticipants > 0 && c.Enrolled() >= c.MaxParticipants
}

// HasParticipant reports whether the user with the given id is enrolled.
func (c *Course) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// CourseInput is the body of the admin create and update endpoints.
type CourseInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Category        string    `json:"category"`
	MaxParticipants int       `json:"maxParticipants"`
	Status          string    `json:"status"`
	Topics          []string  `json:"topics,omitempty"`
}

// Validate checks the fields the back office form requires.
func (in *CourseInput) Validate() error {
	var details []FieldError
	if in.Title == "" {
		details = append(details, FieldError{Field: "title", Message: "required"})
	}
	if in.Description == "" {
		details = append(details, FieldError{Field: "description", Message: "required"})
	}
	if in.Category == "" {
		details = append(details, FieldError{Field: "category", Message: "required"})
	}
	if in.StartDate.IsZero() {
		details = append(details, FieldError{Field: "startDate", Message: "required"})
	}
	if in.EndDate.IsZero() {
		details = append(details, FieldError{Field: "endDate", Message: "required"})
	}
	if in.MaxParticipants < 1 {
		details = append(details, FieldError{Field: "maxParticipants", Message: "must be at least 1"})
	}
	if len(details) > 0 {
		return NewValidationError("invalid course", details...)
	}
	return nil
}

// CourseFromInput builds the course an input describes (used by the fake API).
func CourseFromInput(id string, in CourseInput) Course {
	return Course{
		ID:              id,
		Title:           in.Title,
		Description:     in.Description,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Category:        in.Category,
		Status:          in.Status,
		MaxParticipants: in.MaxParticipants,
		Topics:          in.Topics,
	}
}
