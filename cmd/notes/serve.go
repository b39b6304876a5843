package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	notelifecycle "github.com/aretw0/notes/pkg/adapters/lifecycle"
	"github.com/aretw0/notes/pkg/adapters/ws"
	"github.com/aretw0/notes/pkg/watch"
)

// WatchPath is the HTTP path of the companion endpoint.
const WatchPath = "/watch"

var (
	serveListen string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer a paired companion over websocket",
	Long: `Serve the library to companion devices. Companions connect to
ws://<listen>/watch and may list, load and create notes.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		codec, err := watch.CodecByName(cfg.Codec)
		if err != nil {
			fatal("Invalid codec", err)
		}
		addr := serveListen
		if addr == "" {
			addr = cfg.Listen
		}

		lib := openLibrary(ctx)
		defer lib.Close()

		events, err := lib.Watch(ctx)
		if err != nil {
			fatal("Failed to watch library", err)
		}
		src := notelifecycle.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to watch library", err)
		}
		go func() {
			for e := range src.Events() {
				slog.Info("note changed", "event", e.String())
			}
		}()

		mux := http.NewServeMux()
		mux.Handle(WatchPath, ws.Handler(watch.NewResponder(lib),
			ws.WithLogger(slog.Default()),
			ws.WithCodec(codec),
		))
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		slog.Info("serving library", "dir", lib.Dir(), "addr", addr, "path", WatchPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
}
