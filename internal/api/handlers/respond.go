package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/niftron/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// queryDate parses an optional YYYY-MM-DD query parameter
func queryDate(r *http.Request, name string) (time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := contracts.ParseDay(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return t, true, nil
}
