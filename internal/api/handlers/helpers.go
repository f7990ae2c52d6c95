package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// dateParam parses the required ?date=YYYY-MM-DD query parameter. On failure
// it writes a 400 response and reports ok=false.
func dateParam(w http.ResponseWriter, r *http.Request) (domain.Date, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return domain.Date{}, false
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return domain.Date{}, false
	}
	return d, true
}
