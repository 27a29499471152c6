package realtime

import (
	"context"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/doloop/core/internal/domain/entities"
)

// UserResolver maps a bearer token to a user.
type UserResolver func(ctx context.Context, token string) (*entities.User, error)

// Handler authenticates the ?token= query parameter, upgrades the request
// and runs it as a hub client.
func Handler(hub *Hub, resolve UserResolver, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := resolve(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			hub.logger.Warnw("Rejected websocket connection", "remote_addr", r.RemoteAddr, "error", err)
			http.Error(w, `{"message":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			hub.logger.Warnw("Websocket accept failed", "user_id", user.ID, "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Infow("Websocket connected", "user_id", user.ID)
		NewClient(hub, conn, user.ID).Run(r.Context())
		hub.logger.Infow("Websocket disconnected", "user_id", user.ID)
	}
}
