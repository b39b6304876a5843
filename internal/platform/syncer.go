package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aretw0/notes/pkg/core"
)

// ErrEmptySyncCommand is returned for a sync command without a program.
var ErrEmptySyncCommand = errors.New("sync command is empty")

// CommandSyncer reconciles the library with its remote copy by running an
// external program (rclone, unison, a cloud CLI) in the library directory.
type CommandSyncer struct {
	Dir    string
	Args   []string
	Logger *slog.Logger
}

// NewCommandSyncer returns a syncer running args in dir.
func NewCommandSyncer(dir string, args []string, logger *slog.Logger) (*CommandSyncer, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, ErrEmptySyncCommand
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandSyncer{Dir: dir, Args: append([]string(nil), args...), Logger: logger}, nil
}

// Sync implements core.Syncable.
func (s *CommandSyncer) Sync(ctx context.Context) error {
	s.Logger.Debug("executing sync", "args", s.Args, "dir", s.Dir)

	cmd := exec.CommandContext(ctx, s.Args[0], s.Args[1:]...)
	cmd.Dir = s.Dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\nOutput: %s", s.Args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

var _ core.Syncable = (*CommandSyncer)(nil)
