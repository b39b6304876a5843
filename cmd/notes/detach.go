package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var detachCmd = &cobra.Command{
	Use:   "detach [note] [attachment]",
	Short: "Remove an attachment from a note",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		doc, entry, err := lib.OpenNote(ctx, args[0])
		if err != nil {
			fatal("Failed to open note", err)
		}

		if _, ok := doc.Attachment(args[1]); !ok {
			fmt.Printf("'%s' has no attachment '%s'.\n", entry.Name, args[1])
			return
		}
		doc.DeleteAttachment(args[1])
		if err := doc.Save(ctx, doc.Root()); err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Printf("Removed '%s' from '%s'.\n", args[1], entry.Name)
	},
}

func init() {
	rootCmd.AddCommand(detachCmd)
}
