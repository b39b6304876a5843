// Package notes is the composition root for note libraries.
//
// A note is stored as a package directory:
//
//	Buy milk.note/
//	  Text.rtf
//	  Attachments/photo1.png
//	  Attachments/location.json
//	  QuickLook/Preview.rtf
//	  QuickLook/Thumbnail.png
//
// pkg/document loads and saves one package, queueing operations so they never
// overlap. pkg/library manages a directory of packages and answers the watch
// protocol, which pkg/watch and pkg/adapters/ws carry between a companion
// device and its host.
//
// Usage:
//
//	lib, err := notes.Open(ctx, "./Notes", notes.WithLogger(logger))
//
//	// Create a note from plain text
//	entry, err := lib.Create(ctx, "buy milk")
//
//	// Open it, attach a photo and save
//	doc, _, err := lib.OpenNote(ctx, entry.Locator())
//	err = doc.AddAttachment("photo1.png", data)
//	err = doc.Save(ctx, doc.Root())
package notes
