package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"deployboard/application/commands"
	"deployboard/interfaces/http/rest/api"
)

const authCookie = "auth_token"

// AuthHandler serves the login gate.
type AuthHandler struct {
	commands CommandSender
	sessions SessionReader
	logger   *zap.Logger
}

func NewAuthHandler(commands CommandSender, sessions SessionReader, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{commands: commands, sessions: sessions, logger: logger}
}

// Login handles POST /auth/login. The token is returned in the body and as
// an HttpOnly cookie for the websocket upgrade.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd commands.LoginCommand
	if err := api.Decode(r, &cmd, false); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	if err := h.commands.Send(r.Context(), &cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    cmd.Result.Token,
		Path:     "/",
		Expires:  cmd.Result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "登录成功",
		"token":     cmd.Result.Token,
		"expiresAt": cmd.Result.ExpiresAt,
		"username":  cmd.Result.Username,
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.commands.Send(r.Context(), &commands.LogoutCommand{}); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: authCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.sessions.Session(r.Context()))
}
