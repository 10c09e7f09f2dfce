package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	force := fs.Bool("force", false, "upload even when duplicates are detected")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}

	var total int64
	handles := make([]domain.FileHandle, 0, fs.NArg())
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		handles = append(handles, domain.FileHandle{Name: filepath.Base(path), Size: info.Size(), Path: path})
		total += info.Size()
	}
	if dropped := c.app.Uploads.AddFiles(handles...); dropped > 0 {
		fmt.Fprintf(c.out, "%d duplicate selection(s) ignored\n", dropped)
	}
	fmt.Fprintf(c.out, "uploading %d file(s), %s\n", len(handles), humanize.Bytes(uint64(total)))

	stopProgress := c.reportProgress(ctx)
	state, err := c.app.Uploads.Upload(ctx, *force)
	stopProgress()
	if err != nil {
		return err
	}

	if state.Phase == domain.PhaseDuplicateDetected {
		if err := c.resolveDuplicates(ctx); err != nil {
			return err
		}
		state = c.app.Uploads.State()
	}
	c.printUploadResult(state)
	return nil
}

// reportProgress prints the upload percentage while it changes.
func (c *cli) reportProgress(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		last := -1
		lastPhase := domain.UploadPhase("")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := c.app.Uploads.State()
				if s.Progress == last && s.Phase == lastPhase {
					continue
				}
				last, lastPhase = s.Progress, s.Phase
				if s.Phase == domain.PhaseProcessing && s.Task != nil {
					fmt.Fprintf(c.out, "  processing %d/%d\n", s.Task.Progress.Processed, s.Task.Progress.Total)
					continue
				}
				fmt.Fprintf(c.out, "  %s %d%%\n", s.Phase, s.Progress)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (c *cli) resolveDuplicates(ctx context.Context) error {
	for {
		prompt, err := c.app.Duplicates.Current()
		if err != nil {
			if errors.Is(err, domain.ErrSequenceFinished) || errors.Is(err, domain.ErrNoPendingDuplicates) {
				return nil
			}
			return err
		}
		if prompt.Candidate == nil {
			return nil
		}

		inv := prompt.Candidate.ExistingInvoice
		fmt.Fprintf(c.out, "\nduplicate %d of %d: %s\n", prompt.Index+1, prompt.Total, prompt.Candidate.FileKey)
		fmt.Fprintf(c.out, "  matches receipt %s", orDash(inv.ReceiptNumber))
		if inv.Date != "" {
			fmt.Fprintf(c.out, " dated %s", inv.Date)
		}
		if inv.CustomerName != "" {
			fmt.Fprintf(c.out, " for %s", inv.CustomerName)
		}
		fmt.Fprintln(c.out)

		choice, err := c.prompt("[s]kip, [u]pload anyway, [v]iew existing: ")
		if err != nil {
			return err
		}
		switch choice {
		case "s", "skip":
			_, err = c.app.Duplicates.Skip(ctx)
		case "u", "upload":
			_, err = c.app.Duplicates.UploadAnyway(ctx)
		case "v", "view":
			view, viewErr := c.app.Duplicates.ViewExisting(ctx)
			if viewErr != nil {
				fmt.Fprintln(c.out, "  could not resolve file:", viewErr)
				continue
			}
			fmt.Fprintf(c.out, "  existing: %s\n  uploaded: %s\n", orDash(inv.ReceiptLink), orDash(view.FileURL))
			continue
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (c *cli) printUploadResult(state domain.UploadState) {
	switch state.Phase {
	case domain.PhaseCompleted:
		fmt.Fprintln(c.out, "processing complete")
	case domain.PhaseFailed:
		fmt.Fprintln(c.out, "processing failed:", state.Error)
	default:
		fmt.Fprintln(c.out, "upload finished:", state.Phase)
	}
	if len(state.SkippedKeys) > 0 {
		fmt.Fprintf(c.out, "%d duplicate(s) skipped\n", len(state.SkippedKeys))
	}
	c.printStatus(c.app.Status.Snapshot(), time.Time{})
}
