package mockapi

import (
	"errors"
	"net/http"
)

var (
	errUserNotFound    = errors.New("user not found")
	errEmailTaken      = errors.New("email is already registered")
	errCourseNotFound  = errors.New("course not found")
	errAlreadyEnrolled = errors.New("already enrolled in this course")
	errNotEnrolled     = errors.New("not enrolled in this course")
	errCourseFull      = errors.New("course is full")
	errCourseOver      = errors.New("course has already ended")
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUserNotFound), errors.Is(err, errCourseNotFound):
		return http.StatusNotFound
	case errors.Is(err, errEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
