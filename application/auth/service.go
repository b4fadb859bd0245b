// Package auth is the login gate in front of the editor: static
// credentials, a persisted session flag, and signed tokens for the API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deployboard/application/ports"
	apperrors "deployboard/pkg/errors"
)

const (
	msgLoginOK     = "登录成功"
	msgLoginFailed = "用户名或密码错误"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// SessionState describes the login gate for the login form.
type SessionState struct {
	Authenticated    bool               `json:"authenticated"`
	SavedCredentials *ports.Credentials `json:"savedCredentials,omitempty"`
}

// Service checks credentials and tracks the session.
type Service struct {
	sessions ports.SessionStore
	account  ports.Credentials
	tokens   *Tokens
	notifier ports.Notifier
	logger   *zap.Logger
}

func NewService(sessions ports.SessionStore, account ports.Credentials, tokens *Tokens, notifier ports.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		account:  account,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger.Named("auth"),
	}
}

// Login verifies the static account. With rememberMe the credentials are
// kept for the next visit, otherwise any remembered ones are forgotten.
func (s *Service) Login(ctx context.Context, username, password string, rememberMe bool) (LoginResult, error) {
	if !s.matches(username, password) {
		s.logger.Info("login rejected", zap.String("username", username))
		s.notify(ctx, ports.NoticeError, msgLoginFailed)
		return LoginResult{}, apperrors.NewUnauthorizedError(msgLoginFailed).WithCode(apperrors.CodeBadCredentials)
	}

	if err := s.sessions.SetAuthenticated(ctx, true); err != nil {
		return LoginResult{}, apperrors.NewStorageError("set session", err)
	}
	var err error
	if rememberMe {
		err = s.sessions.SaveCredentials(ctx, ports.Credentials{Username: username, Password: password})
	} else {
		err = s.sessions.ClearCredentials(ctx)
	}
	if err != nil {
		return LoginResult{}, apperrors.NewStorageError("remember credentials", err)
	}

	token, exp, err := s.tokens.Issue(username, uuid.NewString())
	if err != nil {
		return LoginResult{}, apperrors.NewInternalError("issue token").WithCause(err)
	}

	s.logger.Info("login succeeded", zap.String("username", username), zap.Bool("remember_me", rememberMe))
	s.notify(ctx, ports.NoticeSuccess, msgLoginOK)
	return LoginResult{Token: token, ExpiresAt: exp, Username: username}, nil
}

func (s *Service) matches(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(s.account.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(s.account.Password))
	return u&p == 1
}

// Logout clears the session flag. Outstanding tokens stop working because
// Authorize also requires the flag.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.SetAuthenticated(ctx, false); err != nil {
		return apperrors.NewStorageError("clear session", err)
	}
	s.logger.Info("logged out")
	return nil
}

// Session reports whether a session is active and any remembered credentials.
func (s *Service) Session(ctx context.Context) SessionState {
	st := SessionState{Authenticated: s.sessions.IsAuthenticated(ctx)}
	if creds, ok := s.sessions.SavedCredentials(ctx); ok {
		st.SavedCredentials = &creds
	}
	return st
}

// Authorize validates a bearer token against the active session.
func (s *Service) Authorize(ctx context.Context, bearer string) (*Claims, error) {
	claims, err := s.tokens.Validate(bearer)
	if err != nil {
		code := apperrors.CodeNoSession
		msg := "invalid token"
		switch {
		case errors.Is(err, ErrMissingToken):
			msg = "missing token"
		case errors.Is(err, ErrExpiredToken):
			msg = "token expired"
		}
		return nil, apperrors.NewUnauthorizedError(msg).WithCode(code).WithCause(err)
	}
	if !s.sessions.IsAuthenticated(ctx) {
		return nil, apperrors.NewUnauthorizedError("not logged in").WithCode(apperrors.CodeNoSession)
	}
	return claims, nil
}

func (s *Service) notify(ctx context.Context, level, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ports.Notice{Level: level, Message: msg, Source: "auth", Time: time.Now()})
}
