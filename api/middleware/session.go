package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/blakitny/storefront/pkg/logger"
)

// SessionHeader carries the storefront session id between the page and the gateway.
const SessionHeader = "X-Storefront-Session"

// Session resolves the caller's session id, minting one when the header is missing
// or malformed, and echoes it back so the page can keep using it.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
