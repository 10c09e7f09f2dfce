package main

import (
	"context"

	mcpadapter "github.com/kirillkom/invoice-hub-agent/internal/adapters/mcp"
)

var version = "dev"

// serveMCP keeps the poller running so global_status stays fresh.
func (c *cli) serveMCP(ctx context.Context) error {
	c.app.SessionManager(ctx)
	return mcpadapter.NewServer(version, c.app.Status, c.app.Drafts).ServeStdio()
}
