package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

func (a *App) Images(ctx context.Context, args []string) error {
	id, err := parseID(args, "images <id>")
	if err != nil {
		return err
	}
	list, err := a.records.Images(ctx, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No images")
		return nil
	}
	printImages(a.out, list)
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("upload <id> <file>")
	}
	id, err := parseID(args, "upload <id> <file>")
	if err != nil {
		return err
	}
	img, size, err := a.records.Upload(ctx, id, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s as image %d\n%s\n", humanize.Bytes(uint64(size)), img.ID, img.ImageURL)
	return nil
}

func (a *App) RemoveImage(ctx context.Context, args []string) error {
	id, err := parseID(args, "rmimage <image-id>")
	if err != nil {
		return err
	}
	res, err := a.records.DeleteImage(ctx, id)
	if err != nil {
		return err
	}
	if res.BlobRemoved {
		fmt.Fprintf(a.out, "Deleted image %d\n", id)
	} else {
		fmt.Fprintf(a.out, "Deleted image %d, the stored file could not be removed\n", id)
	}
	return nil
}

// Import is admin only; the server enforces it as well.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("import <file.csv>")
	}
	if !a.state.IsAdmin() {
		return fmt.Errorf("only admins can import records")
	}
	rep, err := a.records.Import(ctx, args[0])
	if err != nil {
		return err
	}
	printImportReport(a.out, rep)
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	path, size, err := a.records.Export(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %s to %s\n", humanize.Bytes(uint64(size)), path)
	return nil
}
