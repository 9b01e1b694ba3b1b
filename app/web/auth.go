package web

import (
	"net/http"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"
)

// AuthUser is the basic auth user name
const AuthUser = "jobtrack"

// authMiddleware checks basic auth against the bcrypt hash
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && username == AuthUser {
			if err := bcrypt.CompareHashAndPassword([]byte(s.authHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("[WARN] invalid password from %s", r.RemoteAddr)
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="jobtrack"`)
		s.writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	})
}
