package backend

import (
	"context"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

func (c *Client) GetConfig(ctx context.Context) (*domain.UserConfig, error) {
	var out domain.UserConfig
	if err := c.getJSON(ctx, "/api/config", nil, &out, "user_config"); err != nil {
		return nil, err
	}
	return &out, nil
}
