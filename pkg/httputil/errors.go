package httputil

import (
	"fmt"
	"net/http"
	"strings"
)

// CheckMethod validates the request method. On mismatch it writes
// 405 {"error": "Method not allowed"} and returns false.
func CheckMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// RequireNotEmpty writes 400 with the given message when value is blank.
func RequireNotEmpty(w http.ResponseWriter, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		WriteError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

// StatusLine formats a response status the way error messages report it, e.g. "HTTP 502: Bad Gateway".
func StatusLine(code int) string {
	return fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
}
