package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminRealm names the protected area in WWW-Authenticate challenges.
const adminRealm = "slotkeeper-admin"

type unauthorizedError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// requireAdminToken serves next only for requests carrying
// "Authorization: Bearer <token>".
func requireAdminToken(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="`+adminRealm+`"`)
			writeJSON(w, http.StatusUnauthorized, unauthorizedError{
				Error:            "missing_token",
				ErrorDescription: "Missing Authorization header",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="`+adminRealm+`", error="invalid_token"`)
			writeJSON(w, http.StatusUnauthorized, unauthorizedError{
				Error:            "invalid_token",
				ErrorDescription: "Invalid admin token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
