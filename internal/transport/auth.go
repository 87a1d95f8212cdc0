package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
)

type sessionKey struct{}

func sessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey{}).(*model.Session)
	return sess
}

// withAuth validates the bearer token via the Session Gate (C1) before
// any handler touches a conversation; a missing or invalid token never
// reaches the stream.
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(w, apperr.New(apperr.Unauthorized, "transport.missing_token", "missing bearer token"))
			return
		}

		sess, err := h.Sessions.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}
