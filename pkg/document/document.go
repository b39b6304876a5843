// Package document implements the in-memory model of one note package and its
// load/save lifecycle against a core.Root.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notes/pkg/core"
)

// Status is the lifecycle state of a Document.
type Status int

const (
	Unopened Status = iota
	Loading
	Loaded
	LoadFailed
	Saving
	SaveFailed
)

func (s Status) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load-failed"
	case Saving:
		return "saving"
	case SaveFailed:
		return "save-failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Document is one note: rich text content plus named attachments.
//
// Load and Save are queued: an operation issued while another is in flight on
// the same document runs after it, in issue order. Different documents are
// independent.
type Document struct {
	logger *slog.Logger

	mu          sync.Mutex
	root        core.Root
	content     core.RichText
	attachments map[string]core.Attachment
	status      Status
	lastErr     error
	loads       int
	saves       int

	queueMu sync.Mutex
	tail    chan struct{} // closed when the most recently queued operation finishes
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used for non-fatal problems such as QuickLook
// regeneration failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a fresh, empty document.
func New(opts ...Option) *Document {
	d := &Document{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		attachments: make(map[string]core.Attachment),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open creates a document and loads it from root.
func Open(ctx context.Context, root core.Root, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Load(ctx, root); err != nil {
		return nil, err
	}
	return d, nil
}

// Status returns the current lifecycle state.
func (d *Document) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Err returns the error of the last failed Load or Save, if the document is
// currently in a failed state.
func (d *Document) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Root returns the package root of the last successful Load or Save.
func (d *Document) Root() core.Root {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Content returns the rich text content.
func (d *Document) Content() core.RichText {
	d.mu.Lock()
	defer d.mu.Unlock()
	return core.RichText{Data: bytes.Clone(d.content.Data)}
}

// SetContent replaces the rich text content.
func (d *Document) SetContent(text core.RichText) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = core.RichText{Data: bytes.Clone(text.Data)}
}

// SetText replaces the content with plain text wrapped as rich text.
func (d *Document) SetText(s string) {
	d.SetContent(core.RichTextFromPlain(s))
}

// Text returns the plain-text projection of the content.
func (d *Document) Text() string {
	return d.Content().PlainText()
}

// Attachments returns the attachments sorted by name.
func (d *Document) Attachments() []core.Attachment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotAttachments()
}

// snapshotAttachments must be called with d.mu held.
func (d *Document) snapshotAttachments() []core.Attachment {
	out := make([]core.Attachment, 0, len(d.attachments))
	for _, a := range d.attachments {
		a.Data = bytes.Clone(a.Data)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Attachment returns the named attachment.
func (d *Document) Attachment(name string) (core.Attachment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.attachments[name]
	if !ok {
		return core.Attachment{}, false
	}
	a.Data = bytes.Clone(a.Data)
	return a, true
}

// Location decodes the named location attachment. A payload missing either
// coordinate is reported as absent.
func (d *Document) Location(name string) (core.Location, bool) {
	a, ok := d.Attachment(name)
	if !ok {
		return core.Location{}, false
	}
	return a.Location()
}

// AddAttachment inserts the named attachment, replacing any attachment that
// already has that name. Nothing is written until the next Save.
func (d *Document) AddAttachment(name string, data []byte) error {
	if err := core.ValidateAttachmentName(name); err != nil {
		return core.Wrap(core.CannotSaveAttachment, err, map[string]any{"attachment": name, "reason": "invalid name"})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachments[name] = core.NewAttachment(name, bytes.Clone(data))
	return nil
}

// DeleteAttachment removes the named attachment. Deleting a name that is not
// present does nothing.
func (d *Document) DeleteAttachment(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.attachments, name)
}

// ReplaceAttachment removes old and adds data under name in one step. old and
// name may be equal. If name is invalid nothing changes.
func (d *Document) ReplaceAttachment(old, name string, data []byte) error {
	if err := core.ValidateAttachmentName(name); err != nil {
		return core.Wrap(core.CannotSaveAttachment, err, map[string]any{"attachment": name, "reason": "invalid name"})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.attachments, old)
	d.attachments[name] = core.NewAttachment(name, bytes.Clone(data))
	return nil
}

// SetLocation stores loc as a location attachment. When existing names an
// attachment it is replaced under the same name; otherwise a new name is
// generated. The name used is returned.
func (d *Document) SetLocation(existing string, loc core.Location) (string, error) {
	data, err := loc.Marshal()
	if err != nil {
		return "", core.Wrap(core.CannotSaveAttachment, err, map[string]any{"attachment": existing})
	}

	name := existing
	if name == "" {
		name = core.NewAttachmentName("json")
	}
	if err := d.ReplaceAttachment(existing, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Load reads the package at root, replacing the in-memory state.
// It waits for any queued operation on this document first.
func (d *Document) Load(ctx context.Context, root core.Root) error {
	return <-d.LoadAsync(ctx, root)
}

// LoadAsync queues a Load and returns a channel that receives its result.
func (d *Document) LoadAsync(ctx context.Context, root core.Root) <-chan error {
	return d.enqueue(ctx, core.CannotAccessDocument, func(ctx context.Context) error {
		return d.load(ctx, root)
	})
}

// Save writes the in-memory state to root.
// It waits for any queued operation on this document first.
func (d *Document) Save(ctx context.Context, root core.Root) error {
	return <-d.SaveAsync(ctx, root)
}

// SaveAsync queues a Save and returns a channel that receives its result.
// The state written is the state at the time the save starts running.
func (d *Document) SaveAsync(ctx context.Context, root core.Root) <-chan error {
	return d.enqueue(ctx, core.CannotSaveText, func(ctx context.Context) error {
		return d.save(ctx, root)
	})
}

// enqueue runs op after every previously queued operation has finished.
// A panic in op is reported as a classified error of kind panicKind.
func (d *Document) enqueue(ctx context.Context, panicKind core.Kind, op func(context.Context) error) <-chan error {
	result := make(chan error, 1)
	done := make(chan struct{})

	d.queueMu.Lock()
	prev := d.tail
	d.tail = done
	d.queueMu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) (err error) {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				err = core.Wrap(panicKind, fmt.Errorf("panic: %v", p), nil)
			}
			result <- err
		}()

		if prev != nil {
			<-prev
		}
		return op(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		d.logger.Debug("document operation failed", "error", err)
	}))

	return result
}

func (d *Document) setStatus(s Status, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = s
	d.lastErr = err
}
