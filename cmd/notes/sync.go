package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes/pkg/library"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the library with its synced storage",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		fmt.Println("Syncing...")
		if err := lib.Sync(ctx); err != nil {
			if errors.Is(err, library.ErrSyncUnsupported) {
				fmt.Fprintln(os.Stderr, "Error: this library is stored locally and has no sync backend.")
				if !cfg.HasPromptedForCloud {
					fmt.Println("Tip: set use_cloud and sync_command in notes.yaml to enable syncing.")
				}
				os.Exit(1)
			}
			fatal("Sync failed", err)
		}

		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
