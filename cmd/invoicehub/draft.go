package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/extractor/pdftext"
)

func (c *cli) draft(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return c.draftList(ctx)
	case "add":
		return c.draftAdd(ctx, rest)
	case "quick":
		if len(rest) != 1 {
			return errUsage
		}
		if err := c.app.Drafts.QuickAdd(ctx, rest[0]); err != nil {
			return err
		}
		return c.draftList(ctx)
	case "qty":
		if len(rest) != 2 {
			return errUsage
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("reorder quantity %q: %w", rest[1], domain.ErrInvalidInput)
		}
		if err := c.app.Drafts.UpdateQuantity(ctx, rest[0], qty); err != nil {
			return err
		}
		return c.draftList(ctx)
	case "rm":
		if len(rest) != 1 {
			return errUsage
		}
		if err := c.app.Drafts.Remove(ctx, rest[0]); err != nil {
			return err
		}
		return c.draftList(ctx)
	case "clear":
		return c.draftClear(ctx, rest)
	case "proceed":
		return c.draftProceed(ctx, rest)
	case "export":
		return c.draftExport(ctx, rest)
	case "pdf":
		return c.draftPDF(ctx, rest)
	case "history":
		return c.draftHistory(ctx, rest)
	default:
		return fmt.Errorf("unknown draft command %q: %w", sub, errUsage)
	}
}

func (c *cli) draftList(ctx context.Context) error {
	if err := c.app.Drafts.Load(ctx); err != nil {
		return err
	}
	items := c.app.Drafts.Items()
	if len(items) == 0 {
		fmt.Fprintln(c.out, "draft purchase order is empty")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tITEM\tSTOCK\tQTY\tEST. COST\tADDED")
	for _, item := range items {
		cost := "-"
		if item.UnitValue != nil {
			cost = humanize.CommafWithDigits(item.EstimatedCost(), 2)
		}
		added := "-"
		if !item.AddedAt.IsZero() {
			added = humanize.Time(item.AddedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.PartNumber, item.ItemName, humanize.Ftoa(item.CurrentStock), item.ReorderQty, cost, added)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	summary := c.app.Drafts.Summary()
	fmt.Fprintf(c.out, "\n%d item(s), estimated total %s\n", summary.TotalItems, humanize.CommafWithDigits(summary.TotalEstimatedCost, 2))
	return nil
}

func (c *cli) draftAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft add", flag.ContinueOnError)
	item := domain.DraftPOItem{}
	fs.StringVar(&item.PartNumber, "part", "", "part number")
	fs.StringVar(&item.ItemName, "name", "", "item name")
	fs.Float64Var(&item.CurrentStock, "stock", 0, "current stock")
	fs.Float64Var(&item.ReorderPoint, "reorder-point", 0, "reorder point")
	fs.IntVar(&item.ReorderQty, "qty", 1, "reorder quantity")
	fs.StringVar(&item.Priority, "priority", "", "priority")
	fs.StringVar(&item.SupplierName, "supplier", "", "supplier name")
	fs.StringVar(&item.Notes, "notes", "", "notes")
	unitValue := fs.Float64("unit-value", -1, "unit value (omit when unknown)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *unitValue >= 0 {
		item.UnitValue = unitValue
	}
	if err := c.app.Drafts.Add(ctx, item); err != nil {
		return err
	}
	return c.draftList(ctx)
}

func (c *cli) draftClear(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft clear", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := c.app.Drafts.Load(ctx); err != nil {
		return err
	}
	removed, err := c.app.Drafts.Clear(ctx, func() bool {
		return *yes || c.confirm(fmt.Sprintf("remove all %d draft item(s)?", len(c.app.Drafts.Items())))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d item(s) removed\n", removed)
	return nil
}

func (c *cli) draftProceed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft proceed", flag.ContinueOnError)
	req := domain.ProceedRequest{}
	fs.StringVar(&req.SupplierName, "supplier", "", "supplier name")
	fs.StringVar(&req.Notes, "notes", "", "notes")
	fs.StringVar(&req.DeliveryDate, "delivery", "", "expected delivery date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	confirmation, err := c.app.Drafts.Proceed(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "purchase order %s created: %d item(s), total %s\n",
		confirmation.PONumber, confirmation.TotalItems, humanize.CommafWithDigits(confirmation.TotalCost, 2))
	switch {
	case confirmation.PDFKey != "":
		fmt.Fprintf(c.out, "pdf stored as %s (%d page(s))\n", confirmation.PDFKey, confirmation.PDFPages)
	case confirmation.PDFError != "":
		fmt.Fprintf(c.out, "pdf not stored (%s); run `invoicehub draft pdf %s` to fetch it again\n", confirmation.PDFError, confirmation.POID)
	}
	return nil
}

func (c *cli) draftExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft export", flag.ContinueOnError)
	output := fs.String("o", "draft-po.xlsx", "output file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := c.app.Drafts.Load(ctx); err != nil {
		return err
	}
	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create %s: %w", *output, err)
	}
	if err := c.app.Drafts.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *output, err)
	}
	fmt.Fprintln(c.out, "exported to", *output)
	return nil
}

func (c *cli) draftPDF(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft pdf", flag.ContinueOnError)
	preview := fs.Bool("preview", false, "print the first page text")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	key, err := c.app.Drafts.DownloadPDF(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "pdf stored as", key)
	if !*preview {
		return nil
	}

	rc, err := c.app.Objects.Open(ctx, key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	text, err := pdftext.NewInspector().FirstPageText(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n\n%s\n", humanize.Bytes(uint64(len(data))), text)
	return nil
}

func (c *cli) draftHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draft history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	status := fs.String("status", "", "filter by status")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	orders, err := c.app.Drafts.History(ctx, *limit, *offset, *status)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "no purchase orders")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPO\tDATE\tSUPPLIER\tITEMS\tTOTAL\tSTATUS")
	for _, po := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			po.ID, po.PONumber, po.PODate, orDash(po.SupplierName), po.TotalItems,
			humanize.CommafWithDigits(po.TotalEstimatedCost, 2), po.Status)
	}
	return tw.Flush()
}
