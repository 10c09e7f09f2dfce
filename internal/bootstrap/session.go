package bootstrap

import (
	"context"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
	"github.com/kirillkom/invoice-hub-agent/internal/core/usecase"
)

// pollingSession starts the status poller under root whenever a login succeeds.
type pollingSession struct {
	*usecase.SessionUseCase
	poller *usecase.StatusPoller
	root   context.Context
}

func (s pollingSession) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	result, err := s.SessionUseCase.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.poller.Start(s.root)
	return result, nil
}

// SessionManager returns the session surface for long-running processes. The
// poller runs under root and is started right away when a token is stored.
func (a *App) SessionManager(root context.Context) ports.SessionManager {
	if a.Session.LoggedIn(root) {
		a.Poller.Start(root)
	}
	return pollingSession{SessionUseCase: a.Session, poller: a.Poller, root: root}
}
