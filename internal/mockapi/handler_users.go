package mockapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/coursebook/pkg/model"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"users": s.data.listUsers()})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.respondUserWithCourses(w, chi.URLParam(r, "id"))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	s.respondUserWithCourses(w, userFromContext(r.Context()).ID)
}

func (s *Server) respondUserWithCourses(w http.ResponseWriter, id string) {
	u, ok := s.data.user(id)
	if !ok {
		respondError(w, http.StatusNotFound, errUserNotFound.Error())
		return
	}
	courses := s.data.listCourses(func(rec *courseRecord) bool {
		return contains(rec.participants, id)
	})
	respondOK(w, model.UserWithCourses{User: u, Courses: courses})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd model.ProfileUpdate
	if err := decodeBody(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := userFromContext(r.Context()).ID
	u, err := s.data.updateUser(id, func(u *model.User) {
		if v := strings.TrimSpace(upd.FirstName); v != "" {
			u.FirstName = v
		}
		if v := strings.TrimSpace(upd.LastName); v != "" {
			u.LastName = v
		}
		if v := strings.TrimSpace(upd.Email); v != "" {
			u.Email = v
		}
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"user": u})
}
