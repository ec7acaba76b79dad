package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"cardledger/internal/core"
)

// parseCriteria builds filter criteria from query parameters. Unknown
// values degrade to their documented defaults instead of rejecting the
// request: the dashboard always renders something.
func parseCriteria(r *http.Request) core.FilterCriteria {
	q := r.URL.Query()

	c := core.FilterCriteria{
		SelectedCard:      strings.TrimSpace(q.Get("card")),
		SelectedCategory:  strings.TrimSpace(q.Get("category")),
		SelectedTimeRange: core.ParseTimeRange(q.Get("range")),
		GlobalFilter:      strings.TrimSpace(q.Get("q")),
	}

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			c.SelectedDate = d
		} else {
			slog.WarnContext(r.Context(), "Ignoring malformed date parameter", "date", v)
		}
	}

	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
