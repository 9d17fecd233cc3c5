package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/share"
)

func (a *App) handleShare(ctx context.Context, args []string) error {
	fs := a.flags("share")
	png := fs.String("png", "", "Also write the QR code as a PNG image to this path")
	noQR := fs.Bool("no-qr", false, "Only print the link")
	// allow the id before the flags: cf share 42 --png qr.png
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		args = append(args[1:], args[0])
	}
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		return a.usage("share")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return a.warn("Please enter a valid file ID", err)
	}

	link := share.Link(a.cfg.Share.BaseURL, id)
	if a.format == "json" {
		return printJSON(a.out, map[string]string{"id": strconv.FormatUint(id, 10), "link": link})
	}
	fmt.Fprintln(a.out, link)
	if !*noQR {
		qr, err := share.QR(link)
		if err != nil {
			return fail("Failed to render QR code", err)
		}
		fmt.Fprint(a.out, qr)
	}
	if *png != "" {
		img, err := share.QRPNG(link, 256)
		if err != nil {
			return fail("Failed to render QR code", err)
		}
		if err := os.WriteFile(*png, img, 0644); err != nil {
			return fail("Failed to save QR code", err)
		}
		a.notifier.Notify(notify.Success, "QR code saved to "+*png)
	}
	return nil
}

// handleOpen resolves a share link and shows, or with --download saves, the file.
func (a *App) handleOpen(ctx context.Context, args []string) error {
	fs := a.flags("open")
	download := fs.Bool("download", false, "Download the file instead of showing it")
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		args = append(args[1:], args[0])
	}
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		return a.usage("open")
	}

	id, err := share.ParseLink(fs.Arg(0))
	if err != nil {
		return fail("Invalid share link or wallet required", err)
	}
	a.notifier.Notify(notify.Info, "Loading shared file...")
	if *download {
		return a.handleDownload(ctx, []string{strconv.FormatUint(id, 10)})
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	l, err := a.Ledger(ctx)
	if err != nil {
		return fail("Invalid share link or wallet required", err)
	}
	rec, err := l.GetFile(ctx, id)
	if err != nil {
		return fail("Invalid share link or wallet required", err)
	}
	return a.printRecord(rec)
}
