// Package library manages a directory of note packages. It is the host side of
// the watch protocol: it lists, loads and creates notes on request.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/aretw0/notes/pkg/adapters/fs"
	"github.com/aretw0/notes/pkg/core"
	"github.com/aretw0/notes/pkg/document"
	"github.com/aretw0/notes/pkg/watch"
)

// Scheme is the URL scheme of note locators.
const Scheme = "note"

// DefaultName is used for notes whose text has no title.
const DefaultName = "Untitled"

// maxNameRunes bounds names derived from note titles.
const maxNameRunes = 64

var packagePattern = "*" + fs.PackageExt

// namespace seeds note ids, so the same package name always gets the same id.
var namespace = uuid.MustParse("5f0c6f3e-8a55-4b55-9a43-6e6f7465732e")

var (
	// ErrNotFound is returned for locators that match no package.
	ErrNotFound = errors.New("note not found")

	// ErrInvalidLocator is returned for locators that are not note URLs.
	ErrInvalidLocator = errors.New("invalid note locator")

	// ErrSyncUnsupported is returned by Sync when the library has no syncer.
	ErrSyncUnsupported = errors.New("library storage does not support sync")
)

// Entry describes one package in the library.
type Entry struct {
	ID   string
	Name string
	Path string
}

// Locator returns the note URL for the entry.
func (e Entry) Locator() string {
	return (&url.URL{Scheme: Scheme, Host: e.ID}).String()
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger for the library and the documents it opens.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithSyncer attaches a sync backend used by Sync.
func WithSyncer(s core.Syncable) Option {
	return func(l *Library) {
		l.syncer = s
	}
}

// Library is a directory of note packages.
type Library struct {
	dir    string
	logger *slog.Logger
	syncer core.Syncable
	index  *index

	mu   sync.Mutex
	docs map[string]*document.Document

	watching atomic.Bool
}

// Open opens the library at dir, creating the directory if needed, and
// refreshes its index.
func Open(ctx context.Context, dir string, opts ...Option) (*Library, error) {
	l := &Library{dir: dir, docs: make(map[string]*document.Document)}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}
	idx, err := openIndex(dir)
	if err != nil {
		return nil, err
	}
	l.index = idx

	if _, err := l.Reindex(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the index. Open documents are dropped.
func (l *Library) Close() error {
	l.mu.Lock()
	clear(l.docs)
	l.mu.Unlock()
	return l.index.Close()
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// IDFor returns the id of the package named name.
func IDFor(name string) string {
	return uuid.NewSHA1(namespace, []byte(norm.NFC.String(name))).String()
}

// Reindex scans the directory for packages and rewrites the index to match.
// Entries come back sorted by name.
func (l *Library) Reindex(ctx context.Context) ([]Entry, error) {
	dirs, err := doublestar.Glob(os.DirFS(l.dir), packagePattern, doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("failed to scan library: %w", err)
	}

	entries := make(map[string]indexEntry, len(dirs))
	var out []Entry
	for _, rel := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, ie, ok := l.stat(rel)
		if !ok {
			continue
		}
		entries[e.ID] = ie
		out = append(out, e)
	}

	if err := l.index.Replace(entries); err != nil {
		return nil, fmt.Errorf("failed to update index: %w", err)
	}
	sortEntries(out)
	l.logger.Debug("library indexed", "dir", l.dir, "notes", len(out))
	return out, nil
}

// refresh updates the index entry of one package after a change.
func (l *Library) refresh(rel string) (Entry, bool) {
	e, ie, ok := l.stat(rel)
	if !ok {
		name := packageName(rel)
		id := IDFor(name)
		if err := l.index.Delete(id); err != nil {
			l.logger.Warn("failed to drop index entry", "id", id, "error", err)
		}
		return Entry{ID: id, Name: name, Path: filepath.Join(l.dir, rel)}, false
	}
	if err := l.index.Set(e.ID, ie); err != nil {
		l.logger.Warn("failed to update index entry", "id", e.ID, "error", err)
	}
	return e, true
}

func (l *Library) stat(rel string) (Entry, indexEntry, bool) {
	p := filepath.Join(l.dir, rel)
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return Entry{}, indexEntry{}, false
	}
	name := packageName(rel)
	return Entry{ID: IDFor(name), Name: name, Path: p}, indexEntry{Name: name, Rel: rel, ModTime: info.ModTime()}, true
}

func packageName(rel string) string {
	return norm.NFC.String(strings.TrimSuffix(filepath.Base(rel), fs.PackageExt))
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// Entries lists the indexed packages sorted by name.
func (l *Library) Entries() ([]Entry, error) {
	var out []Entry
	err := l.index.Range(func(id string, ie indexEntry) bool {
		out = append(out, Entry{ID: id, Name: ie.Name, Path: filepath.Join(l.dir, ie.Rel)})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	sortEntries(out)
	return out, nil
}

func (l *Library) packagePath(name string) string {
	return filepath.Join(l.dir, name+fs.PackageExt)
}

// Lookup finds an entry by locator, name or id.
func (l *Library) Lookup(ctx context.Context, ref string) (Entry, error) {
	id := ref
	if strings.HasPrefix(ref, Scheme+":") {
		var err error
		if id, err = ParseLocator(ref); err != nil {
			return Entry{}, err
		}
	} else if _, err := uuid.Parse(ref); err != nil {
		id = IDFor(ref)
	}

	if e, ok := l.lookupID(id); ok {
		return e, nil
	}
	// The package may have appeared since the last scan.
	if _, err := l.Reindex(ctx); err != nil {
		return Entry{}, err
	}
	if e, ok := l.lookupID(id); ok {
		return e, nil
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (l *Library) lookupID(id string) (Entry, bool) {
	ie, ok := l.index.Get(id)
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: id, Name: ie.Name, Path: filepath.Join(l.dir, ie.Rel)}, true
}

// ParseLocator extracts the note id from a note URL.
func ParseLocator(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidLocator, locator)
	}
	return u.Host, nil
}

// OpenNote returns the document of the referenced note, loading it on first
// use. Later calls share the same document until CloseNote.
func (l *Library) OpenNote(ctx context.Context, ref string) (*document.Document, Entry, error) {
	e, err := l.Lookup(ctx, ref)
	if err != nil {
		return nil, Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if doc, ok := l.docs[e.ID]; ok {
		return doc, e, nil
	}

	doc, err := document.Open(ctx, fs.NewRoot(e.Path, l.logger), document.WithLogger(l.logger))
	if err != nil {
		return nil, Entry{}, err
	}
	l.docs[e.ID] = doc
	return doc, e, nil
}

// CloseNote forgets the open document of the referenced note.
func (l *Library) CloseNote(ctx context.Context, ref string) error {
	e, err := l.Lookup(ctx, ref)
	if err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.docs, e.ID)
	l.mu.Unlock()
	return nil
}

// Create stores a new note with text and returns its entry. The name comes
// from the first line of text and is made unique within the library.
func (l *Library) Create(ctx context.Context, text string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name := l.uniqueName(NameFromText(text))
	p := l.packagePath(name)

	doc := document.New(document.WithLogger(l.logger))
	doc.SetText(text)
	if err := doc.Save(ctx, fs.NewRoot(p, l.logger)); err != nil {
		return Entry{}, err
	}

	e, _ := l.refresh(name + fs.PackageExt)
	l.docs[e.ID] = doc
	l.logger.Info("created note", "name", name)
	return e, nil
}

func (l *Library) uniqueName(base string) string {
	name := base
	for n := 2; ; n++ {
		if _, err := os.Stat(l.packagePath(name)); errors.Is(err, os.ErrNotExist) {
			return name
		}
		name = base + " " + strconv.Itoa(n)
	}
}

// NameFromText derives a package name from the title of text.
func NameFromText(text string) string {
	title := core.RichText{Data: []byte(text)}.Title()

	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, title)
	title = strings.TrimLeft(strings.TrimSpace(title), ".")

	if utf8.RuneCountInString(title) > maxNameRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxNameRunes]))
	}
	if title == "" {
		return DefaultName
	}
	return title
}

// Sync runs the attached syncer and reindexes.
func (l *Library) Sync(ctx context.Context) error {
	if l.syncer == nil {
		return ErrSyncUnsupported
	}
	if err := l.syncer.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync library: %w", err)
	}
	_, err := l.Reindex(ctx)
	return err
}

// ListNotes implements watch.Host.
func (l *Library) ListNotes(ctx context.Context) ([]watch.Summary, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]watch.Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, watch.NewSummary(e.Name, e.Locator()))
	}
	return out, nil
}

// LoadNote implements watch.Host. An open document is read as it is in
// memory; otherwise the package is read from disk.
func (l *Library) LoadNote(ctx context.Context, locator string) (string, error) {
	e, err := l.Lookup(ctx, locator)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	doc, ok := l.docs[e.ID]
	l.mu.Unlock()
	if ok {
		return doc.Text(), nil
	}

	doc, err = document.Open(ctx, fs.NewRoot(e.Path, l.logger), document.WithLogger(l.logger))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// CreateNote implements watch.Host.
func (l *Library) CreateNote(ctx context.Context, text string) ([]watch.Summary, error) {
	if _, err := l.Create(ctx, text); err != nil {
		return nil, err
	}
	return l.ListNotes(ctx)
}

var _ watch.Host = (*Library)(nil)
var _ core.Syncable = (*Library)(nil)
