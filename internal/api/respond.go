package api

import (
	"encoding/json"
	"net/http"

	"autorenta/internal/auth"
	"autorenta/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	msg := err.Error()
	if kind == errors.KindUnknown || kind == errors.KindUnavailable {
		// Internal details stay out of responses.
		msg = "internal error"
	}
	writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"error":   kind.String(),
		"message": msg,
	})
}

// requireActor extracts the authenticated actor or ends the request.
func requireActor(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return actor, ok
}
