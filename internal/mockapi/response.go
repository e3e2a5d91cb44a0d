package mockapi

import (
	"encoding/json"
	"net/http"

	"github.com/me/coursebook/pkg/model"
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, envelope{Status: model.StatusSuccess, Data: data})
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusCreated, envelope{Status: model.StatusSuccess, Data: data})
}

// respondMessage writes a success response that carries only a message.
func respondMessage(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusOK, envelope{Status: model.StatusSuccess, Message: msg})
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, envelope{Status: model.StatusError, Message: msg})
}

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, dest any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}
