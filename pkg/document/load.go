package document

import (
	"context"
	"slices"

	"github.com/aretw0/notes/pkg/core"
)

// load reads the package in order: root, entry list, text, attachments.
// Each stage fails with its own classification.
func (d *Document) load(ctx context.Context, root core.Root) error {
	d.setStatus(Loading, nil)

	content, attachments, err := readPackage(ctx, root)
	if err != nil {
		d.setStatus(LoadFailed, err)
		d.logger.Warn("failed to load note", "package", root.Location(), "error", err)
		return err
	}

	d.mu.Lock()
	d.root = root
	d.content = content
	d.attachments = attachments
	d.status = Loaded
	d.lastErr = nil
	d.loads++
	d.mu.Unlock()

	d.logger.Debug("loaded note", "package", root.Location(), "attachments", len(attachments))
	return nil
}

func readPackage(ctx context.Context, root core.Root) (core.RichText, map[string]core.Attachment, error) {
	loc := root.Location()

	if err := root.Stat(ctx); err != nil {
		return core.RichText{}, nil, core.Wrap(core.CannotAccessDocument, err, map[string]any{"package": loc})
	}

	entries, err := root.ReadDir(ctx, "")
	if err != nil {
		return core.RichText{}, nil, core.Wrap(core.CannotLoadFileWrappers, err, map[string]any{"package": loc})
	}

	if !slices.Contains(entries, core.TextFile) {
		return core.RichText{}, nil, core.Err(core.CannotLoadText, map[string]any{"package": loc, "entry": core.TextFile, "reason": "missing"})
	}
	text, err := root.ReadFile(ctx, core.TextFile)
	if err != nil {
		return core.RichText{}, nil, core.Wrap(core.CannotLoadText, err, map[string]any{"package": loc, "entry": core.TextFile})
	}

	attachments := make(map[string]core.Attachment)

	// A package without an Attachments folder simply has no attachments.
	if !slices.Contains(entries, core.AttachmentsDirectory) {
		return core.RichText{Data: text}, attachments, nil
	}

	names, err := root.ReadDir(ctx, core.AttachmentsDirectory)
	if err != nil {
		return core.RichText{}, nil, core.Wrap(core.CannotAccessAttachments, err, map[string]any{"package": loc})
	}
	for _, name := range names {
		data, err := root.ReadFile(ctx, core.AttachmentPath(name))
		if err != nil {
			return core.RichText{}, nil, core.Wrap(core.CannotAccessAttachments, err, map[string]any{"package": loc, "attachment": name})
		}
		attachments[name] = core.NewAttachment(name, data)
	}

	return core.RichText{Data: text}, attachments, nil
}
