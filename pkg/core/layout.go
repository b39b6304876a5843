package core

import "path"

// Names of files and directories inside a note package. They are part of the
// on-disk format and must not change.
const (
	// TextFile holds the note text in Rich Text Format.
	TextFile = "Text.rtf"

	// AttachmentsDirectory holds every attachment of the note.
	AttachmentsDirectory = "Attachments"

	// QuickLookDirectory holds derived preview assets.
	QuickLookDirectory = "QuickLook"

	// QuickLookTextFile is the preview text, inside QuickLookDirectory.
	QuickLookTextFile = "Preview.rtf"

	// QuickLookThumbnail is the preview image, inside QuickLookDirectory.
	QuickLookThumbnail = "Thumbnail.png"

	// LocationAttachment is the conventional name of a location attachment.
	LocationAttachment = "location.json"
)

// AttachmentPath returns the package-relative path of an attachment entry.
func AttachmentPath(name string) string {
	return path.Join(AttachmentsDirectory, name)
}

// QuickLookPath returns the package-relative path of a QuickLook entry.
func QuickLookPath(name string) string {
	return path.Join(QuickLookDirectory, name)
}
