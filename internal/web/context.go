package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

// withSession tags every log entry of the request with the session id and
// the client address.
func withSession(ctx context.Context, r *http.Request, sessionID string) context.Context {
	return logging.ContextWithAttrs(ctx,
		"session_id", sessionID,
		"ip", r.RemoteAddr, // already rewritten by the RealIP middleware
	)
}
