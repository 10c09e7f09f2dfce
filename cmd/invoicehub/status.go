package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

func (c *cli) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "follow status changes until interrupted")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if !*watch {
		if _, err := c.app.Poller.RefreshStats(ctx); err != nil {
			return err
		}
		c.printStatus(c.app.Status.Snapshot(), time.Time{})
		return nil
	}

	// With a status bus the CLI follows the agent; otherwise it polls on its own.
	if c.app.StatusBus != nil {
		return c.app.StatusBus.SubscribeStatus(ctx, func(_ context.Context, s domain.GlobalStatus) {
			c.printStatus(s, time.Now())
		})
	}

	unsubscribe := c.app.Status.Subscribe(func(s domain.GlobalStatus) {
		c.printStatus(s, time.Now())
	})
	defer unsubscribe()
	c.app.SessionManager(ctx)
	<-ctx.Done()
	return nil
}

func (c *cli) printStatus(s domain.GlobalStatus, at time.Time) {
	if !at.IsZero() {
		fmt.Fprintf(c.out, "[%s] ", at.Format(time.TimeOnly))
	}
	fmt.Fprintf(c.out, "review: %s  synced: %s", humanize.Comma(int64(s.ReviewCount)), humanize.Comma(int64(s.SyncCount)))
	switch {
	case s.IsUploading:
		fmt.Fprint(c.out, "  uploading")
	case s.ProcessingCount > 0:
		fmt.Fprintf(c.out, "  processing %d/%d", s.ProcessingCount, s.TotalProcessing)
	case s.IsComplete:
		fmt.Fprint(c.out, "  complete")
	}
	fmt.Fprintln(c.out)
}
