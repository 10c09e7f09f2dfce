package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kirillkom/invoice-hub-agent/internal/bootstrap"
	"github.com/kirillkom/invoice-hub-agent/internal/config"
	"github.com/kirillkom/invoice-hub-agent/internal/observability/logging"
)

const usage = `usage: invoicehub <command> [flags]

commands:
  login     sign in to the invoice dashboard
  logout    sign out and clear local session state
  whoami    show the signed-in user
  status    show review and processing counters (-watch to follow)
  upload    upload invoice files [-force] file...
  draft     manage the draft purchase order (list|add|quick|qty|rm|clear|proceed|export|pdf|history)
  mcp       serve MCP tools over stdio
`

var errUsage = errors.New("invalid usage")

type cli struct {
	app *bootstrap.App
	out io.Writer
	in  *bufio.Reader
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.ServiceName, cfg.LogLevel, "text", os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	c := &cli{app: app, out: os.Stdout, in: bufio.NewReader(os.Stdin)}
	err = c.run(ctx, os.Args[1], os.Args[2:])
	app.Close()
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.login(ctx, args)
	case "logout":
		c.app.Session.Logout(ctx)
		fmt.Fprintln(c.out, "signed out")
		return nil
	case "whoami":
		return c.whoami(ctx)
	case "status":
		return c.status(ctx, args)
	case "upload":
		return c.upload(ctx, args)
	case "draft":
		return c.draft(ctx, args)
	case "mcp":
		return c.serveMCP(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}
}

// prompt reads one trimmed line from stdin.
func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) confirm(label string) bool {
	answer, err := c.prompt(label + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
