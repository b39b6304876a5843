package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes/pkg/core"
)

var (
	attachName     string
	attachGenerate bool
	attachReplace  string
)

var attachCmd = &cobra.Command{
	Use:   "attach [note] [file]",
	Short: "Add a file to a note",
	Long: `Copy a file into the note's Attachments folder and save the note.
The attachment keeps the file's name unless --name or --generate is given.
With --replace, the named attachment is removed in the same save.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[1])
		if err != nil {
			fatal("Failed to read file", err)
		}

		name := filepath.Base(args[1])
		switch {
		case attachName != "":
			name = attachName
		case attachGenerate:
			name = core.NewAttachmentName(filepath.Ext(args[1]))
		}

		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		doc, entry, err := lib.OpenNote(ctx, args[0])
		if err != nil {
			fatal("Failed to open note", err)
		}

		if attachReplace != "" {
			err = doc.ReplaceAttachment(attachReplace, name, data)
		} else {
			err = doc.AddAttachment(name, data)
		}
		if err != nil {
			fatal("Failed to attach file", err)
		}
		if err := doc.Save(ctx, doc.Root()); err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Printf("Attached '%s' to '%s'.\n", name, entry.Name)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().StringVar(&attachName, "name", "", "Attachment name")
	attachCmd.Flags().BoolVar(&attachGenerate, "generate", false, "Generate a unique attachment name")
	attachCmd.Flags().StringVar(&attachReplace, "replace", "", "Attachment to replace")
}
