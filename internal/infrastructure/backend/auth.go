package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "login", errors.New("username and password are required"))
	}
	var out domain.LoginResult
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login", creds, &out, "login"); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("backend returned no access token"))
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, "/api/auth/me", nil, &out, "me"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil, "logout")
}
