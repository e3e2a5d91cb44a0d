package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/me/coursebook/pkg/model"
)

func (s *Server) handleAdminListCourses(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"courses": s.data.listCourses(nil)})
}

func (s *Server) handleAdminCreateCourse(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCourseInput(w, r)
	if !ok {
		return
	}
	c := model.CourseFromInput(uuid.NewString(), in)
	s.data.putCourse(c)
	created, _ := s.data.course(c.ID)
	s.logger.Info("course created", "course_id", c.ID)
	respondCreated(w, map[string]any{"course": created})
}

func (s *Server) handleAdminUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.data.course(id); !ok {
		respondError(w, http.StatusNotFound, errCourseNotFound.Error())
		return
	}
	in, ok := decodeCourseInput(w, r)
	if !ok {
		return
	}
	s.data.putCourse(model.CourseFromInput(id, in))
	updated, _ := s.data.course(id)
	respondOK(w, map[string]any{"course": updated})
}

func (s *Server) handleAdminDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if !s.data.deleteCourse(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, errCourseNotFound.Error())
		return
	}
	respondMessage(w, "course deleted")
}

func decodeCourseInput(w http.ResponseWriter, r *http.Request) (model.CourseInput, bool) {
	var in model.CourseInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return in, false
	}
	if in.Status == "" {
		in.Status = model.CourseStatusActive
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

func (s *Server) handleAdminUpdateRole(w http.ResponseWriter, r *http.Request) {
	var change model.RoleChange
	if err := decodeBody(r, &change); err != nil || !change.Role.Valid() {
		respondError(w, http.StatusBadRequest, "role must be user or admin")
		return
	}
	u, err := s.data.updateUser(chi.URLParam(r, "id"), func(u *model.User) {
		u.Role = change.Role
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"user": u})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.data.deleteUser(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, errUserNotFound.Error())
		return
	}
	respondMessage(w, "user deleted")
}
