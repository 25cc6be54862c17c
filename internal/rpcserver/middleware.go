package rpcserver

import (
	"net/http"
	"strings"

	"github.com/moved-network/moved/internal/engineapi"
)

// jwtMiddleware enforces the Engine API's bearer-token authentication
// (spec §5/§6) in front of the authenticated rpc.Server, the same
// "wrap the handler" middleware shape gorilla/handlers' own
// LoggingHandler/CORS wrappers use.
func jwtMiddleware(auth *engineapi.Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if err := auth.Authenticate(token); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
