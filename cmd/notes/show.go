package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes/pkg/core"
	"github.com/aretw0/notes/pkg/watch"
)

var (
	showJSON    bool
	showHandoff bool
)

type attachmentView struct {
	Name     string         `json:"name"`
	Size     int            `json:"size"`
	Kind     string         `json:"kind"`
	Location *core.Location `json:"location,omitempty"`
}

type noteView struct {
	Name        string           `json:"name"`
	URL         string           `json:"url"`
	Status      string           `json:"status"`
	Text        string           `json:"text"`
	Attachments []attachmentView `json:"attachments"`
}

var showCmd = &cobra.Command{
	Use:   "show [note]",
	Short: "Print a note",
	Long: `Print a note's text by name, id or note:// locator. With --json, attachments are listed too.
With --handoff, print the handoff user info that opens the note on a paired device.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		doc, entry, err := lib.OpenNote(ctx, args[0])
		if err != nil {
			fatal("Failed to open note", err)
		}

		if showHandoff {
			printJSON(watch.HandoffMessage(entry.Locator()))
			return
		}
		if !showJSON {
			fmt.Println(doc.Text())
			return
		}

		view := noteView{
			Name:        entry.Name,
			URL:         entry.Locator(),
			Status:      doc.Status().String(),
			Text:        doc.Text(),
			Attachments: []attachmentView{},
		}
		for _, a := range doc.Attachments() {
			av := attachmentView{Name: a.Name, Size: len(a.Data), Kind: string(a.Kind)}
			if loc, ok := a.Location(); ok {
				av.Location = &loc
			}
			view.Attachments = append(view.Attachments, av)
		}

		printJSON(view)
	},
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Failed to encode JSON", err)
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showHandoff, "handoff", false, "Print handoff user info for the note")
}
