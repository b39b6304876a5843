package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notes/pkg/adapters/fs"
	"github.com/aretw0/notes/pkg/core"
)

// EventType describes what happened to a package.
type EventType string

const (
	EventCreate EventType = "create"
	EventModify EventType = "modify"
	EventDelete EventType = "delete"
)

// Event reports a change to a package on disk, whether made by this process
// or by a sync client.
type Event struct {
	Type EventType
	ID   string
	Name string
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s (%s)", e.Type, e.Name, e.ID)
}

// DebounceDelay is how long a package must be quiet before its event fires.
const DebounceDelay = 50 * time.Millisecond

// Watch reports package changes until ctx is done. The index is updated before
// each event is delivered. The watcher is restarted if it fails.
func (l *Library) Watch(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event)

	spec := supervisor.Spec{
		Name: "library-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(l, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("library", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		l.logger.Warn("watcher shutdown failed", "error", err)
	}))

	return events, nil
}

// Watching reports whether a watcher is running.
func (l *Library) Watching() bool {
	return l.watching.Load()
}

type watchWorker struct {
	*worker.BaseWorker
	lib       *Library
	events    chan<- Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(lib *Library, events chan<- Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("library-watcher"),
		lib:        lib,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.addPackages(watcher); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(DebounceDelay)
	w.lib.watching.Store(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// addPackages watches the library directory and every package in it, with
// their attachment folders.
func (w *watchWorker) addPackages(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(w.lib.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.lib.dir, err)
	}
	dirs, err := doublestar.Glob(os.DirFS(w.lib.dir), packagePattern)
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}
	for _, rel := range dirs {
		w.addPackage(watcher, filepath.Join(w.lib.dir, rel))
	}
	return nil
}

func (w *watchWorker) addPackage(watcher *fsnotify.Watcher, p string) {
	for _, d := range []string{p, filepath.Join(p, core.AttachmentsDirectory)} {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			_ = watcher.Add(d)
		}
	}
}

// packageOf maps a filesystem path to the package it belongs to, relative to
// the library. inside is true when the path is an entry of the package rather
// than the package itself.
func (w *watchWorker) packageOf(name string) (rel string, inside bool, ok bool) {
	r, err := filepath.Rel(w.lib.dir, name)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", false, false
	}
	parts := strings.Split(filepath.ToSlash(r), "/")
	if match, _ := doublestar.Match(packagePattern, parts[0]); !match {
		return "", false, false
	}
	// Temp files from atomic writes are not changes yet.
	if strings.HasPrefix(parts[len(parts)-1], fs.TempFilePrefix) {
		return "", false, false
	}
	return parts[0], len(parts) > 1, true
}

func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.lib.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	rel, inside, ok := w.packageOf(event.Name)
	if !ok || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
		return false
	}

	var eType EventType
	switch {
	case inside:
		eType = EventModify
		if event.Has(fsnotify.Create) {
			// A new attachment folder needs its own watch.
			w.addPackage(w.watcher, filepath.Join(w.lib.dir, rel))
		}
	case event.Has(fsnotify.Create):
		eType = EventCreate
		w.addPackage(w.watcher, filepath.Join(w.lib.dir, rel))
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = EventDelete
	default:
		eType = EventModify
	}

	e, exists := w.lib.refresh(rel)
	if !exists {
		eType = EventDelete
	}

	w.sendEvent(ctx, Event{Type: eType, ID: e.ID, Name: e.Name})
	return true
}

// sendEvent delivers through the debouncer. The channel may already be closed
// during shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event Event) {
	w.debouncer.add(event, func(e Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.lib.logger.Enabled(ctx, slog.LevelDebug) {
				w.lib.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.lib.logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.lib.watching.Store(false)
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.lib.logger.Error("fsnotify error", "error", wErr)
		}
	}
}
