package platform

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/notes/pkg/library"
)

// Open opens the library at dir.
//
//	lib, err := platform.Open(ctx, "./notes", platform.WithLogger(logger))
func Open(ctx context.Context, dir string, opts ...Option) (*library.Library, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	useTemp := o.forceTemp || (o.devSafety && IsDevRun())
	resolved := ResolveLibraryPath(dir, useTemp)
	if o.logger != nil && useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", dir, "resolved_path", resolved)
	}

	if o.mustExist {
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("library not found: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("library %s is not a directory", resolved)
		}
	}

	var libOpts []library.Option
	if o.logger != nil {
		libOpts = append(libOpts, library.WithLogger(o.logger))
	}
	syncer := o.syncer
	if syncer == nil && len(o.syncCmd) > 0 {
		cs, err := NewCommandSyncer(resolved, o.syncCmd, o.logger)
		if err != nil {
			return nil, err
		}
		syncer = cs
	}
	if syncer != nil {
		libOpts = append(libOpts, library.WithSyncer(syncer))
	}
	return library.Open(ctx, resolved, libOpts...)
}
