package document_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notes/pkg/adapters/fs"
	"github.com/aretw0/notes/pkg/core"
	"github.com/aretw0/notes/pkg/document"
)

var errInjected = errors.New("injected failure")

// faultyRoot wraps a real package directory and fails selected operations.
// Keys of fail are "<op>:<name>", e.g. "write:Text.rtf" or "readdir:".
type faultyRoot struct {
	*fs.Root
	fail map[string]bool

	mu      sync.Mutex
	written []string
	texts   []string      // Text.rtf payloads in write order
	gate    chan struct{} // when set, the first write blocks until closed
}

func newFaultyRoot(t *testing.T, fail ...string) *faultyRoot {
	t.Helper()
	r := &faultyRoot{
		Root: fs.NewRoot(filepath.Join(t.TempDir(), "Note"+fs.PackageExt), nil),
		fail: make(map[string]bool),
	}
	for _, f := range fail {
		r.fail[f] = true
	}
	return r
}

func (r *faultyRoot) Stat(ctx context.Context) error {
	if r.fail["stat:"] {
		return errInjected
	}
	return r.Root.Stat(ctx)
}

func (r *faultyRoot) ReadDir(ctx context.Context, dir string) ([]string, error) {
	if r.fail["readdir:"+dir] {
		return nil, errInjected
	}
	return r.Root.ReadDir(ctx, dir)
}

func (r *faultyRoot) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if r.fail["read:"+name] {
		return nil, errInjected
	}
	return r.Root.ReadFile(ctx, name)
}

func (r *faultyRoot) WriteFile(ctx context.Context, name string, data []byte) error {
	r.mu.Lock()
	gate := r.gate
	r.gate = nil
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if r.fail["write:"+name] {
		return errInjected
	}
	if err := r.Root.WriteFile(ctx, name, data); err != nil {
		return err
	}

	r.mu.Lock()
	r.written = append(r.written, name)
	if name == core.TextFile {
		r.texts = append(r.texts, core.RichText{Data: data}.PlainText())
	}
	r.mu.Unlock()
	return nil
}

func (r *faultyRoot) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.written...)
}

// writePackage lays out a package directory by hand.
func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Fixture"+fs.PackageExt)
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func TestLoad_TextWithoutAttachments(t *testing.T) {
	ctx := context.Background()
	dir := writePackage(t, map[string]string{"Text.rtf": "Hello"})

	doc, err := document.Open(ctx, fs.NewRoot(dir, nil))
	require.NoError(t, err)

	assert.Equal(t, "Hello", string(doc.Content().Data))
	assert.Equal(t, "Hello", doc.Text())
	assert.Empty(t, doc.Attachments())
	assert.Equal(t, document.Loaded, doc.Status())
}

func TestRoundTrip_AttachmentBytes(t *testing.T) {
	ctx := context.Background()
	root := fs.NewRoot(filepath.Join(t.TempDir(), "Trip"+fs.PackageExt), nil)
	photo := []byte{0x89, 'P', 'N', 'G', 0x00, 0xFF, 0x10}

	doc := document.New()
	doc.SetText("Packing list")
	require.NoError(t, doc.AddAttachment("photo1.png", photo))
	require.NoError(t, doc.AddAttachment(core.LocationAttachment, []byte(`{"lat":1.5,"long":2.5}`)))
	require.NoError(t, doc.Save(ctx, root))

	loaded, err := document.Open(ctx, fs.NewRoot(root.Path, nil))
	require.NoError(t, err)

	got, ok := loaded.Attachment("photo1.png")
	require.True(t, ok)
	assert.Equal(t, photo, got.Data)
	assert.Equal(t, core.KindImage, got.Kind)

	assert.Equal(t, doc.Content(), loaded.Content())
	assert.Equal(t, "Packing list", loaded.Text())
	assert.Len(t, loaded.Attachments(), 2)

	loc, ok := loaded.Location(core.LocationAttachment)
	require.True(t, ok)
	assert.Equal(t, core.Location{Lat: 1.5, Long: 2.5}, loc)
}

func TestRoundTrip_EveryAddedAttachmentLoads(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "Names"+fs.PackageExt)

	doc := document.New()
	doc.SetText("names")
	require.NoError(t, doc.AddAttachment("scan.2024.png", []byte{1, 2, 3}))
	require.NoError(t, doc.AddAttachment("notes", []byte("plain")))
	err := doc.AddAttachment(".hidden.png", []byte{1, 2, 3})
	assert.True(t, core.IsKind(err, core.CannotSaveAttachment), "%v", err)
	require.NoError(t, doc.Save(ctx, fs.NewRoot(dir, nil)))

	_, err = os.Stat(filepath.Join(dir, core.AttachmentsDirectory, ".hidden.png"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := document.Open(ctx, fs.NewRoot(dir, nil))
	require.NoError(t, err)
	var names []string
	for _, a := range loaded.Attachments() {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"scan.2024.png", "notes"}, names)
}

func TestSave_WritesLayout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "Layout"+fs.PackageExt)

	doc := document.New()
	doc.SetText("x")
	require.NoError(t, doc.AddAttachment("a.txt", []byte("a")))
	require.NoError(t, doc.Save(ctx, fs.NewRoot(dir, nil)))

	for _, entry := range []string{
		"Text.rtf",
		"Attachments/a.txt",
		"QuickLook/Preview.rtf",
		"QuickLook/Thumbnail.png",
	} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(entry)))
		assert.NoError(t, err, "expected %s", entry)
	}
}

func TestSave_EmptyDocumentHasNoAttachmentsFolder(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "Empty"+fs.PackageExt)

	require.NoError(t, document.New().Save(ctx, fs.NewRoot(dir, nil)))

	_, err := os.Stat(filepath.Join(dir, core.TextFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, core.AttachmentsDirectory))
	assert.True(t, os.IsNotExist(err))
}

func TestSave_RemovesOrphans(t *testing.T) {
	ctx := context.Background()
	dir := writePackage(t, map[string]string{
		"Text.rtf":          "note",
		"Attachments/a.txt": "a",
		"Attachments/b.txt": "b",
	})
	root := fs.NewRoot(dir, nil)

	doc, err := document.Open(ctx, root)
	require.NoError(t, err)
	doc.DeleteAttachment("b.txt")
	require.NoError(t, doc.Save(ctx, root))

	names, err := root.ReadDir(ctx, core.AttachmentsDirectory)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestDeleteAttachment_AbsentIsNoOp(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.AddAttachment("keep.png", []byte{1}))

	doc.DeleteAttachment("never-added.png")
	doc.DeleteAttachment("never-added.png")

	assert.Len(t, doc.Attachments(), 1)
}

func TestAddAttachment(t *testing.T) {
	t.Run("Replaces Same Name", func(t *testing.T) {
		doc := document.New()
		require.NoError(t, doc.AddAttachment("a.bin", []byte("old")))
		require.NoError(t, doc.AddAttachment("a.bin", []byte("new")))

		got, ok := doc.Attachment("a.bin")
		require.True(t, ok)
		assert.Equal(t, "new", string(got.Data))
		assert.Len(t, doc.Attachments(), 1)
	})

	t.Run("Rejects Invalid Names", func(t *testing.T) {
		doc := document.New()
		for _, name := range []string{"", "..", "dir/file.png", ".hidden.png"} {
			err := doc.AddAttachment(name, []byte("x"))
			assert.True(t, core.IsKind(err, core.CannotSaveAttachment), "name %q: %v", name, err)
		}
		assert.Empty(t, doc.Attachments())
	})

	t.Run("Copies Caller Buffer", func(t *testing.T) {
		doc := document.New()
		buf := []byte("abc")
		require.NoError(t, doc.AddAttachment("a.txt", buf))
		buf[0] = 'z'

		got, _ := doc.Attachment("a.txt")
		assert.Equal(t, "abc", string(got.Data))
	})
}

func TestReplaceAttachment(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.AddAttachment("old.png", []byte("old")))
	require.NoError(t, doc.AddAttachment("other.png", []byte("other")))

	require.NoError(t, doc.ReplaceAttachment("old.png", "new.png", []byte("new")))

	_, ok := doc.Attachment("old.png")
	assert.False(t, ok)
	got, ok := doc.Attachment("new.png")
	require.True(t, ok)
	assert.Equal(t, "new", string(got.Data))

	other, _ := doc.Attachment("other.png")
	assert.Equal(t, "other", string(other.Data))
}

func TestSetLocation(t *testing.T) {
	doc := document.New()

	name, err := doc.SetLocation("", core.Location{Lat: 10, Long: 20})
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(name))

	same, err := doc.SetLocation(name, core.Location{Lat: 11, Long: 21})
	require.NoError(t, err)
	assert.Equal(t, name, same)
	assert.Len(t, doc.Attachments(), 1)

	loc, ok := doc.Location(name)
	require.True(t, ok)
	assert.Equal(t, core.Location{Lat: 11, Long: 21}, loc)
}

func TestLoad_PartialLocationIsAbsent(t *testing.T) {
	ctx := context.Background()
	dir := writePackage(t, map[string]string{
		"Text.rtf":                  "note",
		"Attachments/location.json": `{"lat": -42.88}`,
	})

	doc, err := document.Open(ctx, fs.NewRoot(dir, nil))
	require.NoError(t, err)

	_, ok := doc.Location(core.LocationAttachment)
	assert.False(t, ok)

	raw, ok := doc.Attachment(core.LocationAttachment)
	require.True(t, ok, "bytes are still kept for round-trip")
	assert.Equal(t, `{"lat": -42.88}`, string(raw.Data))
}

func TestLoad_Classification(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Package", func(t *testing.T) {
		root := fs.NewRoot(filepath.Join(t.TempDir(), "nope"+fs.PackageExt), nil)
		err := document.New().Load(ctx, root)
		assert.True(t, core.IsKind(err, core.CannotAccessDocument), "got %v", err)
	})

	t.Run("Entries Cannot Be Listed", func(t *testing.T) {
		root := newFaultyRoot(t, "readdir:")
		require.NoError(t, root.Root.WriteFile(ctx, core.TextFile, []byte("x")))

		err := document.New().Load(ctx, root)
		assert.True(t, core.IsKind(err, core.CannotLoadFileWrappers), "got %v", err)
	})

	t.Run("Missing Text", func(t *testing.T) {
		dir := writePackage(t, map[string]string{"Attachments/a.txt": "a"})
		err := document.New().Load(ctx, fs.NewRoot(dir, nil))
		assert.True(t, core.IsKind(err, core.CannotLoadText), "got %v", err)
	})

	t.Run("Unreadable Text", func(t *testing.T) {
		root := newFaultyRoot(t, "read:Text.rtf")
		require.NoError(t, root.Root.WriteFile(ctx, core.TextFile, []byte("x")))

		err := document.New().Load(ctx, root)
		assert.True(t, core.IsKind(err, core.CannotLoadText), "got %v", err)
	})

	t.Run("Unreadable Attachments", func(t *testing.T) {
		root := newFaultyRoot(t, "readdir:Attachments")
		require.NoError(t, root.Root.WriteFile(ctx, core.TextFile, []byte("x")))
		require.NoError(t, root.Root.WriteFile(ctx, core.AttachmentPath("a.txt"), []byte("a")))

		err := document.New().Load(ctx, root)
		assert.True(t, core.IsKind(err, core.CannotAccessAttachments), "got %v", err)
	})

	t.Run("Unreadable Attachment Entry", func(t *testing.T) {
		root := newFaultyRoot(t, "read:Attachments/a.txt")
		require.NoError(t, root.Root.WriteFile(ctx, core.TextFile, []byte("x")))
		require.NoError(t, root.Root.WriteFile(ctx, core.AttachmentPath("a.txt"), []byte("a")))

		err := document.New().Load(ctx, root)
		require.True(t, core.IsKind(err, core.CannotAccessAttachments), "got %v", err)

		var ce *core.Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "a.txt", ce.Context["attachment"])
	})
}

func TestSave_Classification(t *testing.T) {
	ctx := context.Background()

	t.Run("Text Write Fails", func(t *testing.T) {
		root := newFaultyRoot(t, "write:Text.rtf")
		doc := document.New()
		doc.SetText("x")

		err := doc.Save(ctx, root)
		assert.True(t, core.IsKind(err, core.CannotSaveText), "got %v", err)
		assert.Equal(t, document.SaveFailed, doc.Status())
	})

	t.Run("First Attachment Failure Aborts", func(t *testing.T) {
		root := newFaultyRoot(t, "write:Attachments/b.bin")
		doc := document.New()
		for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
			require.NoError(t, doc.AddAttachment(name, []byte(name)))
		}

		err := doc.Save(ctx, root)
		require.True(t, core.IsKind(err, core.CannotSaveAttachment), "got %v", err)

		var ce *core.Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "b.bin", ce.Context["attachment"])

		assert.Equal(t, []string{"Text.rtf", "Attachments/a.bin"}, root.writes())
	})

	t.Run("QuickLook Failure Is Not Fatal", func(t *testing.T) {
		root := newFaultyRoot(t, "write:QuickLook/Preview.rtf", "write:QuickLook/Thumbnail.png")
		doc := document.New()
		doc.SetText("x")

		require.NoError(t, doc.Save(ctx, root))
		assert.Equal(t, document.Loaded, doc.Status())
	})

	t.Run("Retry After Failure", func(t *testing.T) {
		root := newFaultyRoot(t, "write:Text.rtf")
		doc := document.New()
		doc.SetText("x")

		require.Error(t, doc.Save(ctx, root))
		delete(root.fail, "write:Text.rtf")
		require.NoError(t, doc.Save(ctx, root))
		assert.Equal(t, document.Loaded, doc.Status())
		assert.NoError(t, doc.Err())
	})
}

func TestSave_RefusedAfterFailedLoad(t *testing.T) {
	ctx := context.Background()
	dir := writePackage(t, map[string]string{"Attachments/a.txt": "a"})
	root := fs.NewRoot(dir, nil)

	doc := document.New()
	require.Error(t, doc.Load(ctx, root))
	assert.Equal(t, document.LoadFailed, doc.Status())

	err := doc.Save(ctx, root)
	assert.True(t, core.IsKind(err, core.CannotAccessDocument), "got %v", err)

	_, statErr := os.Stat(filepath.Join(dir, core.TextFile))
	assert.True(t, os.IsNotExist(statErr), "package must be left untouched")
}

func TestOperationsAreQueued(t *testing.T) {
	ctx := context.Background()
	root := newFaultyRoot(t)
	gate := make(chan struct{})
	root.gate = gate

	doc := document.New()
	doc.SetText("first")

	first := doc.SaveAsync(ctx, root)

	// Wait until the first save is blocked inside its first write.
	require.Eventually(t, func() bool { return doc.Status() == document.Saving }, time.Second, time.Millisecond)

	load := doc.LoadAsync(ctx, root)

	select {
	case err := <-load:
		t.Fatalf("load completed before the queued save: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-first)
	require.NoError(t, <-load)

	assert.Equal(t, "first", doc.Text())
	assert.Equal(t, document.Loaded, doc.Status())
}

func TestSave_WritesStateWhenItStartsRunning(t *testing.T) {
	ctx := context.Background()
	root := newFaultyRoot(t)
	gate := make(chan struct{})
	root.gate = gate

	doc := document.New()
	doc.SetText("first")
	first := doc.SaveAsync(ctx, root)
	require.Eventually(t, func() bool { return doc.Status() == document.Saving }, time.Second, time.Millisecond)

	// Edits made while the first save runs belong to the next save.
	doc.SetText("second")
	second := doc.SaveAsync(ctx, root)
	doc.SetText("third")

	close(gate)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	root.mu.Lock()
	defer root.mu.Unlock()
	assert.Equal(t, []string{"first", "third"}, root.texts)
}

func TestIndependentDocumentsRunConcurrently(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root := fs.NewRoot(filepath.Join(t.TempDir(), "n"+fs.PackageExt), nil)
			doc := document.New()
			doc.SetText("note")
			assert.NoError(t, doc.AddAttachment("a.txt", []byte{byte(i)}))
			assert.NoError(t, doc.Save(ctx, root))
		}(i)
	}
	wg.Wait()
}

func TestState(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.AddAttachment("a.txt", []byte("a")))

	state := doc.State().(document.DocumentState)
	assert.Equal(t, "unopened", state.Status)
	assert.Equal(t, 1, state.Attachments)
	assert.Equal(t, "document", doc.ComponentType())
}
