// Package websocket streams editor events and notices to connected browsers.
package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"deployboard/application/auth"
)

// Authorizer validates the session token presented on upgrade.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string) (*auth.Claims, error)
}

// Server upgrades HTTP requests into hub clients.
type Server struct {
	hub        *Hub
	upgrader   websocket.Upgrader
	authorizer Authorizer
	logger     *zap.Logger
}

// NewServer creates the upgrade handler. Origins are matched exactly; an
// empty list accepts any origin.
func NewServer(hub *Hub, authorizer Authorizer, allowedOrigins []string, logger *zap.Logger) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		authorizer: authorizer,
		logger:     logger.Named("ws"),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeHTTP authenticates, then upgrades. Browsers cannot set headers on
// websocket requests, so the token may also come as ?token=.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		if cookie, err := r.Cookie("auth_token"); err == nil {
			token = cookie.Value
		}
	}
	if _, err := s.authorizer.Authorize(r.Context(), token); err != nil {
		s.logger.Info("websocket authentication failed", zap.Error(err), zap.String("remoteAddr", r.RemoteAddr))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err), zap.String("remoteAddr", r.RemoteAddr))
		return
	}
	newClient(s.hub, conn, s.logger).start()
}
