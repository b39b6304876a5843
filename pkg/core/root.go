package core

import "context"

// Root is a handle to the storage backing one note package.
// Adhering to this interface keeps documents independent of the underlying
// storage (local directory, cloud container, in-memory).
//
// Names are package-relative and slash separated, e.g. "Attachments/a.png".
// A Root is exclusively owned by the document that opened it.
type Root interface {
	// Location identifies the package, e.g. its directory path.
	Location() string

	// Stat checks that the package exists and can be opened.
	Stat(ctx context.Context) error

	// ReadDir lists the entry names of dir ("" for the package itself).
	ReadDir(ctx context.Context, dir string) ([]string, error)

	// ReadFile returns the contents of a file entry.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// WriteFile replaces a file entry, creating parent folders as needed.
	WriteFile(ctx context.Context, name string, data []byte) error

	// Remove deletes a file entry. Removing a missing entry is not an error.
	Remove(ctx context.Context, name string) error
}

// Syncable is implemented by storage that can reconcile with a remote copy
// (e.g. a cloud container).
type Syncable interface {
	Sync(ctx context.Context) error
}
