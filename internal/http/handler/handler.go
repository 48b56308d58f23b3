package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
)

// writeErr maps error categories to status codes. NotFound and the
// conflict categories pass through with their message for the client
// to translate; anything else is a generic 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fault.NotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fault.AlreadyInRelation):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fault.StateConflict), errors.Is(err, fault.ReferentialViolation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
