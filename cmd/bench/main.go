package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/notes/pkg/adapters/fs"
	"github.com/aretw0/notes/pkg/document"
	"github.com/aretw0/notes/pkg/library"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark library after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "notes_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	ctx := context.Background()

	// Packages are written directly, as a sync client would, so the library
	// starts with nothing indexed.
	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()
	for i := 0; i < *count; i++ {
		doc := document.New()
		doc.SetText(fmt.Sprintf("Benchmark Note %d\nThis is a test note written %s.", i, time.Now().Format("2006-01-02")))
		if err := doc.AddAttachment("data.bin", []byte{byte(i)}); err != nil {
			panic(err)
		}
		root := fs.NewRoot(filepath.Join(benchDir, fmt.Sprintf("note_%d%s", i, fs.PackageExt)), nil)
		if err := doc.Save(ctx, root); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Run 1: Open scans every package and fills the index.
	fmt.Println("Running Open (Run 1 - Cold)...")
	start := time.Now()
	lib, err := library.Open(ctx, benchDir, library.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	cold := time.Since(start)
	list, err := lib.ListNotes(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Run 1 Result: %v (Items: %d)\n", cold, len(list))

	// Run 2: listing straight from the persisted index.
	fmt.Println("Running List (Run 2 - Index)...")
	start = time.Now()
	list, err = lib.ListNotes(ctx)
	if err != nil {
		panic(err)
	}
	warm := time.Since(start)
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", warm, len(list))

	// Run 3: loading every note through the host interface.
	fmt.Println("Running Load (Run 3 - All Notes)...")
	start = time.Now()
	for _, s := range list {
		if _, err := lib.LoadNote(ctx, s.Locator()); err != nil {
			panic(err)
		}
	}
	load := time.Since(start)
	_ = lib.Close()

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	fmt.Printf("  Open:  %v\n", cold)
	fmt.Printf("  List:  %v\n", warm)
	fmt.Printf("  Load:  %v\n", load)
	fmt.Printf("--------------------------------------------------\n")
}
