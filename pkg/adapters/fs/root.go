package fs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/notes/pkg/core"
)

// PackageExt is the directory extension of a note package.
const PackageExt = ".note"

// Root implements core.Root on top of a local directory.
//
// Writes go through a temp file and a rename, so a reader never observes a
// half-written entry. Hidden entries (leading ".") are not part of the package.
type Root struct {
	Path   string
	logger *slog.Logger

	mu        sync.RWMutex
	writes    int
	removes   int
	lastWrite *time.Time
}

// NewRoot returns a Root for the package directory at path.
// The directory does not need to exist until the first write.
func NewRoot(path string, logger *slog.Logger) *Root {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Root{Path: path, logger: logger}
}

// Location implements core.Root.
func (r *Root) Location() string {
	return r.Path
}

// resolve maps a package-relative slash path into the directory.
// Cleaning against "/" keeps ".." from escaping the package.
func (r *Root) resolve(name string) string {
	clean := path.Clean("/" + name)
	return filepath.Join(r.Path, filepath.FromSlash(clean))
}

// Stat implements core.Root.
func (r *Root) Stat(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(r.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("package path is not a directory: %s", r.Path)
	}
	return nil
}

// ReadDir implements core.Root. Names are returned sorted.
func (r *Root) ReadDir(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.resolve(dir))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ReadFile implements core.Root.
func (r *Root) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(r.resolve(name))
}

// WriteFile implements core.Root.
func (r *Root) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := r.resolve(name)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := writeEntry(full, data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Debug("wrote package entry", "package", r.Path, "entry", name, "bytes", len(data))
	r.recordWrite(false)
	return nil
}

// Remove implements core.Root.
func (r *Root) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := removeEntry(r.resolve(name)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	r.logger.Debug("removed package entry", "package", r.Path, "entry", name)
	r.recordWrite(true)
	return nil
}

func (r *Root) recordWrite(remove bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remove {
		r.removes++
	} else {
		r.writes++
	}
	now := time.Now()
	r.lastWrite = &now
}

var _ core.Root = (*Root)(nil)
