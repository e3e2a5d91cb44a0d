package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"courses": s.data.listCourses(nil)})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.data.course(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, errCourseNotFound.Error())
		return
	}
	respondOK(w, map[string]any{"course": c})
}

func (s *Server) handleMyCourses(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context()).ID
	now := s.now()
	courses := s.data.listCourses(func(rec *courseRecord) bool {
		return contains(rec.participants, userID) && !rec.course.EndDate.Before(now)
	})
	respondOK(w, map[string]any{"courses": courses})
}

func (s *Server) handlePastCourses(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context()).ID
	now := s.now()
	courses := s.data.listCourses(func(rec *courseRecord) bool {
		return contains(rec.participants, userID) && rec.course.EndDate.Before(now)
	})
	respondOK(w, map[string]any{"courses": courses})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if err := s.data.join(chi.URLParam(r, "id"), user.ID, s.now()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondMessage(w, "successfully joined the course")
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if err := s.data.leave(chi.URLParam(r, "id"), user.ID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondMessage(w, "successfully left the course")
}
