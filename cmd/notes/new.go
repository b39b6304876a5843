package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [text]",
	Short: "Create a note",
	Long: `Create a note from text. The first line becomes the note's name.
With no argument, or "-", the text is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var text string
		if len(args) == 0 || args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal("Failed to read stdin", err)
			}
			text = strings.TrimRight(string(data), "\n")
		} else {
			text = args[0]
		}

		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		entry, err := lib.Create(ctx, text)
		if err != nil {
			fatal("Failed to create note", err)
		}
		fmt.Printf("%s\t%s\n", entry.Name, entry.Locator())
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
