package notes

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/aretw0/notes/internal/platform"
	"github.com/aretw0/notes/pkg/core"
	"github.com/aretw0/notes/pkg/document"
	"github.com/aretw0/notes/pkg/library"
	"github.com/aretw0/notes/pkg/watch"
)

// Version exposes the version of the module.
//
//go:embed VERSION
var Version string

// --- Types ---

// Document is a public alias for one note package in memory.
type Document = document.Document

// Library is a public alias for a directory of note packages.
type Library = library.Library

// Session is a public alias for the companion sync session.
type Session = watch.Session

// Config is a public alias for the user configuration.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for opening a library.
type Option = platform.Option

// WithLogger sets the logger for the library and its documents.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSyncer attaches a sync backend to the library.
func WithSyncer(s core.Syncable) Option {
	return platform.WithSyncer(s)
}

// WithSyncCommand syncs the library by running an external program in it.
func WithSyncCommand(args []string) Option {
	return platform.WithSyncCommand(args)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist fails instead of creating a missing library directory.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithDevSafety controls the sandbox used when running via `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// --- Factory ---

// Open opens the library at dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Library, error) {
	return platform.Open(ctx, dir, opts...)
}

// LoadConfig reads a notes.yaml file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// --- Safety & Utils ---

// ResolveLibraryPath determines the actual path for the library based on safety rules.
func ResolveLibraryPath(userPath string, forceTemp bool) string {
	return platform.ResolveLibraryPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindLibraryRoot looks upwards for a library root.
func FindLibraryRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
