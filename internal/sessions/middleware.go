package sessions

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// HeaderName carries the session token on gated requests
const HeaderName = "X-Session-ID"

// Routes reachable without a session
var publicPrefixes = []string{
	"/api/checkSession",
	"/api/logout",
	"/api/login",
	"/api/users",
}

// Gate rejects /api requests that do not carry a valid session token.
// When issuer is not nil and the token is one of its own, the user id is
// added to the request context for logging.
func Gate(repo interfaces.SessionRepository, issuer *TokenIssuer, resp *api.Responder, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresSession(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(r.Header.Get(HeaderName))
			if token == "" {
				resp.Error(w, r, types.NewAuthenticationError(types.ErrCodeSessionInvalid, "Session required"), "")
				return
			}

			valid, err := repo.IsValid(r.Context(), token)
			if err != nil {
				resp.Error(w, r, err, "Error checking session")
				return
			}
			if !valid {
				log.Security(r.Context(), "invalid_session", map[string]interface{}{
					"path": r.URL.Path,
				})
				resp.Error(w, r, types.NewAuthenticationError(types.ErrCodeSessionInvalid, "Session expired or invalid"), "")
				return
			}

			ctx := r.Context()
			if issuer != nil {
				if claims, err := issuer.Parse(token); err == nil {
					ctx = logger.ContextWithUserID(ctx, claims.UserID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requiresSession(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return false
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
