package document

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"

	"github.com/aretw0/notes/pkg/core"
)

func (d *Document) save(ctx context.Context, root core.Root) error {
	d.mu.Lock()
	if d.status == LoadFailed {
		// Writing the empty in-memory state would clobber the package we
		// failed to read.
		err := core.Err(core.CannotAccessDocument, map[string]any{"package": root.Location(), "status": LoadFailed.String()})
		d.mu.Unlock()
		return err
	}
	content := core.RichText{Data: d.content.Data}
	attachments := d.snapshotAttachments()
	d.status = Saving
	d.mu.Unlock()

	if err := writePackage(ctx, root, content, attachments); err != nil {
		d.setStatus(SaveFailed, err)
		d.logger.Warn("failed to save note", "package", root.Location(), "error", err)
		return err
	}

	// QuickLook entries are derived data; a failure here never fails the save.
	if err := writeQuickLook(ctx, root, content, attachments); err != nil {
		d.logger.Warn("failed to update quicklook preview", "package", root.Location(), "error", err)
	}

	d.mu.Lock()
	d.root = root
	d.status = Loaded
	d.lastErr = nil
	d.saves++
	d.mu.Unlock()

	d.logger.Debug("saved note", "package", root.Location(), "attachments", len(attachments))
	return nil
}

// writePackage writes the text entry, then every attachment, then removes
// attachment entries that are no longer in the mapping.
func writePackage(ctx context.Context, root core.Root, content core.RichText, attachments []core.Attachment) error {
	loc := root.Location()

	if err := root.WriteFile(ctx, core.TextFile, content.Data); err != nil {
		return core.Wrap(core.CannotSaveText, err, map[string]any{"package": loc, "entry": core.TextFile})
	}

	keep := make(map[string]bool, len(attachments))
	for _, a := range attachments {
		if err := root.WriteFile(ctx, core.AttachmentPath(a.Name), a.Data); err != nil {
			return core.Wrap(core.CannotSaveAttachment, err, map[string]any{"package": loc, "attachment": a.Name})
		}
		keep[a.Name] = true
	}

	existing, err := root.ReadDir(ctx, core.AttachmentsDirectory)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return core.Wrap(core.CannotSaveAttachment, err, map[string]any{"package": loc, "reason": "list attachments"})
	}
	for _, name := range existing {
		if keep[name] {
			continue
		}
		if err := root.Remove(ctx, core.AttachmentPath(name)); err != nil {
			return core.Wrap(core.CannotSaveAttachment, err, map[string]any{"package": loc, "orphan": name})
		}
	}

	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || os.IsNotExist(err)
}
