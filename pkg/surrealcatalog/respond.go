package surrealcatalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case models.IsNotFound(err):
		return http.StatusNotFound
	case models.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

// respondErr writes err with the status of its kind. Internal errors are
// logged and hidden from the client.
func (a *App) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.Error().Err(err).
			Str("request_id", requestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}
