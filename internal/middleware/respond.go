package middleware

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/hearthhub/hearth/internal/domain/apierror"
)

// errorBody is the stable JSON error shape. Clients switch on code, never
// on message text.
type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError renders an error with its taxonomy status and code. API
// clients get JSON; browser clients asking for HTML get a minimal error
// page. Raw error text from unclassified errors never reaches the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "internal error"

	if apiErr := apierror.As(err); apiErr != nil {
		status = apiErr.Kind.Status()
		code = apiErr.Kind.Code()
		message = apiErr.Message
		if apiErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", apiErr.RetryAfter.Seconds()))
		}
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, "<!doctype html><title>%d %s</title><h1>%d</h1><p>%s</p>",
			status, code, status, html.EscapeString(message))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

// wantsHTML reports whether the client prefers an HTML error page. JSON is
// the default; only an explicit text/html Accept without application/json
// flips it.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
