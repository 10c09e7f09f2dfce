package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// SessionUseCase owns the auth token and the logout teardown of session-scoped state.
type SessionUseCase struct {
	auth   ports.AuthAPI
	store  ports.SessionStore
	status *StatusStore
	now    func() time.Time

	mu    sync.Mutex
	hooks []func(context.Context)
}

func NewSessionUseCase(auth ports.AuthAPI, store ports.SessionStore, status *StatusStore) *SessionUseCase {
	return &SessionUseCase{
		auth:   auth,
		store:  store,
		status: status,
		now:    time.Now,
	}
}

// OnLogout registers fn to run after the token and session keys are cleared.
func (uc *SessionUseCase) OnLogout(fn func(context.Context)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.hooks = append(uc.hooks, fn)
}

func (uc *SessionUseCase) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "login", errors.New("username and password are required"))
	}

	result, err := uc.auth.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if result.AccessToken == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("empty access token"))
	}
	if err := uc.store.Set(ctx, domain.SessionKeyAuthToken, result.AccessToken); err != nil {
		return nil, fmt.Errorf("store auth token: %w", err)
	}
	slog.Info("session_started", "username", result.User.Username)
	return result, nil
}

// Token returns the stored bearer token, or "" when there is none or it has expired.
func (uc *SessionUseCase) Token(ctx context.Context) (string, error) {
	token, ok, err := uc.store.Get(ctx, domain.SessionKeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	if !ok || token == "" {
		return "", nil
	}
	if tokenExpired(token, uc.now()) {
		slog.Info("session_token_expired")
		if err := uc.store.Delete(ctx, domain.SessionKeyAuthToken); err != nil {
			slog.Warn("session_token_clear_failed", "error", err)
		}
		return "", nil
	}
	return token, nil
}

func (uc *SessionUseCase) LoggedIn(ctx context.Context) bool {
	token, err := uc.Token(ctx)
	return err == nil && token != ""
}

func (uc *SessionUseCase) Me(ctx context.Context) (*domain.User, error) {
	if !uc.LoggedIn(ctx) {
		return nil, domain.WrapError(domain.ErrUnauthorized, "me", errors.New("not logged in"))
	}
	user, err := uc.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// Logout always clears local state; a failing backend logout is only logged.
func (uc *SessionUseCase) Logout(ctx context.Context) {
	if uc.LoggedIn(ctx) {
		if err := uc.auth.Logout(ctx); err != nil {
			slog.Warn("backend_logout_failed", "error", err)
		}
	}

	for _, key := range []string{domain.SessionKeyAuthToken, domain.SessionKeyActiveTaskID, domain.SessionKeyUserConfig} {
		if err := uc.store.Delete(ctx, key); err != nil {
			slog.Warn("session_key_clear_failed", "key", key, "error", err)
		}
	}

	uc.mu.Lock()
	hooks := append([]func(context.Context){}, uc.hooks...)
	uc.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
	uc.status.Reset(ctx)
	slog.Info("session_ended")
}

// tokenExpired reads the exp claim without verifying the signature. Opaque tokens never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
