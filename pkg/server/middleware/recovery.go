package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorBody matches the control API's failure response.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// response in the control API's {"success": false, "error": ...} shape. The
// panic is logged with its stack trace; clients see a generic message.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(errorBody{
					Success: false,
					Error:   "internal error",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
