package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/respond"
	"github.com/paybazaar/retailer-portal/internal/session"
)

// AuthMiddleware decodes the portal token once per request and stores the
// session in the request context. Browsers cannot set headers on websocket
// upgrades, so those may pass the token as ?token= instead.
func AuthMiddleware(log *logrus.Logger, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.FromBearer(r.Header.Get("Authorization"))
			if token == "" && isWebsocketUpgrade(r) {
				token = r.URL.Query().Get("token")
			}

			sess, err := session.Decode(token, now())
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}
			noteRetailer(r, sess.UserID)
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
