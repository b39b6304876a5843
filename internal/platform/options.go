package platform

import (
	"log/slog"

	"github.com/aretw0/notes/pkg/core"
)

// options holds the internal configuration for opening a library.
type options struct {
	logger    *slog.Logger
	syncer    core.Syncable
	syncCmd   []string
	forceTemp bool
	devSafety bool
	mustExist bool
}

// Option defines a functional option for opening a library.
type Option func(*options)

func defaultOptions() *options {
	return &options{devSafety: true}
}

// WithLogger sets the logger for the library and its documents.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSyncer attaches a sync backend to the library.
func WithSyncer(s core.Syncable) Option {
	return func(o *options) {
		o.syncer = s
	}
}

// WithSyncCommand syncs the library by running args in its directory.
// It is ignored when WithSyncer is also given.
func WithSyncCommand(args []string) Option {
	return func(o *options) {
		o.syncCmd = args
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithMustExist fails instead of creating a missing library directory.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true), the library is re-rooted into a temporary directory so a
// development build never touches real notes.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}
