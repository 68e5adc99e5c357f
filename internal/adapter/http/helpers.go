package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hearthhub/hearth/internal/domain/apierror"
	"github.com/hearthhub/hearth/internal/middleware"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "code": "BAD_REQUEST", "message": "invalid request body",
		})
		return v, false
	}
	return v, true
}

// urlParamInt64 parses a numeric chi URL parameter. Writes a 400 and
// returns false on garbage.
func urlParamInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "code": "BAD_REQUEST", "message": "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeOK wraps a payload in the success envelope.
func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

// writeErr renders taxonomy errors through the shared renderer and logs
// anything unclassified.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if apierror.As(err) == nil {
		slog.Error("request failed", "error", err, "path", r.URL.Path)
	}
	middleware.WriteError(w, r, err)
}
