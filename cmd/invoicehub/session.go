package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

const passwordEnv = "INVOICEHUB_PASSWORD"

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (defaults to $"+passwordEnv+" or a prompt)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var err error
	if *username == "" {
		if *username, err = c.prompt("username: "); err != nil {
			return err
		}
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}
	if *password == "" {
		if *password, err = c.prompt("password: "); err != nil {
			return err
		}
	}

	result, err := c.app.Session.Login(ctx, domain.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s", result.User.Username)
	if result.User.Industry != "" {
		fmt.Fprintf(c.out, " (%s)", result.User.Industry)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	user, err := c.app.Session.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\nindustry: %s\n", user.Username, orDash(user.Industry))
	if user.DashboardURL != "" {
		fmt.Fprintf(c.out, "dashboard: %s\n", user.DashboardURL)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
